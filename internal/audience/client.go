// Package audience subscribes website visitors to the newsletter audience.
package audience

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
	"github.com/dbuatti/danielebuatti-sub001/validation"
	"github.com/pkg/errors"
)

const serviceName = "audience"

// Outcome distinguishes a new subscription from one that already existed.
type Outcome string

const (
	OutcomeSubscribed        Outcome = "subscribed"
	OutcomeAlreadySubscribed Outcome = "already_subscribed"
)

// Subscriber is the person joining the audience.
type Subscriber struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Normalize trims names and lower-cases the email.
func (s *Subscriber) Normalize() {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
}

// Validate requires a well-formed email.
func (s Subscriber) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Email("email", s.Email, v)
	return v
}

// Subscribing is implemented by Client.
type Subscribing interface {
	Subscribe(ctx context.Context, s Subscriber) (Outcome, error)
}

type providerError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status string `json:"status"`
}

// Client posts subscribers to the audience endpoint.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{endpoint: endpoint, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

// Subscribe adds s to the audience. HTTP 409, or a provider error titled "Member Exists",
// means the address was already on the list and is reported as OutcomeAlreadySubscribed.
func (c *Client) Subscribe(ctx context.Context, s Subscriber) (Outcome, error) {
	s.Normalize()
	if err := apperr.Validation(s.Validate()); err != nil {
		return "", err
	}
	if c.endpoint == "" {
		return "", apperr.Adapter(serviceName, errors.New("endpoint not configured"))
	}
	body, err := json.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "encode subscriber")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Adapter(serviceName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperr.Adapter(serviceName, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusConflict {
		return OutcomeAlreadySubscribed, nil
	}
	var pe providerError
	_ = json.Unmarshal(raw, &pe)
	if strings.EqualFold(pe.Title, "Member Exists") || pe.Status == string(OutcomeAlreadySubscribed) {
		return OutcomeAlreadySubscribed, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := pe.Detail
		if msg == "" {
			msg = string(bytes.TrimSpace(raw))
		}
		return "", apperr.Adapter(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	return OutcomeSubscribed, nil
}
