// Package extract calls the AI extraction function and turns its loosely typed answer into a
// quote form. Nothing here writes to the database: the result is only merged into a form that
// the operator reviews.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/pkg/errors"
)

const serviceName = "ai_extraction"

// Extractor turns free-text email content into a candidate quote form.
type Extractor interface {
	Extract(ctx context.Context, emailContent string) (models.QuoteForm, error)
}

// Client posts {emailContent} to the extraction endpoint.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{endpoint: endpoint, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

// Extract returns the normalized form. Transport failures and non-2xx answers are AdapterErrors;
// a 2xx answer that is not a JSON object is also an AdapterError. Malformed fields inside a
// valid object are defaulted, never fatal.
func (c *Client) Extract(ctx context.Context, emailContent string) (models.QuoteForm, error) {
	if strings.TrimSpace(emailContent) == "" {
		return models.QuoteForm{}, apperr.Validation(map[string]string{"emailContent": "required"})
	}
	if c.endpoint == "" {
		return models.QuoteForm{}, apperr.Adapter(serviceName, errors.New("endpoint not configured"))
	}
	body, err := json.Marshal(map[string]string{"emailContent": emailContent})
	if err != nil {
		return models.QuoteForm{}, errors.Wrap(err, "encode extraction request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.QuoteForm{}, apperr.Adapter(serviceName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return models.QuoteForm{}, apperr.Adapter(serviceName, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.QuoteForm{}, apperr.Adapter(serviceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.QuoteForm{}, apperr.Adapter(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}
	payload, err := decodePayload(raw)
	if err != nil {
		return models.QuoteForm{}, apperr.Adapter(serviceName, err)
	}
	return Normalize(payload), nil
}

// decodePayload accepts a bare object or one wrapped in "data" / "quote",
// optionally delivered as a JSON string (some model outputs are double-encoded).
func decodePayload(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrap(err, "decode extraction response")
	}
	for depth := 0; depth < 4; depth++ {
		switch t := v.(type) {
		case string:
			var inner any
			if err := json.Unmarshal([]byte(t), &inner); err != nil {
				return nil, errors.Wrap(err, "decode embedded extraction payload")
			}
			v = inner
		case map[string]any:
			inner, ok := unwrap(t)
			if !ok {
				return t, nil
			}
			v = inner
		default:
			return nil, errors.New("extraction response is not an object")
		}
	}
	return nil, errors.New("extraction response nested too deeply")
}

func unwrap(m map[string]any) (any, bool) {
	for _, key := range []string{"data", "quote"} {
		switch inner := m[key].(type) {
		case map[string]any, string:
			return inner, true
		}
	}
	return nil, false
}
