// Package notify sends rendered quote emails through the email function endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const serviceName = "email"

// Message is one email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message or returns an error.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendRequest struct {
	RecipientEmail string `json:"recipientEmail"`
	Subject        string `json:"subject"`
	HTMLBody       string `json:"htmlBody"`
}

type sendResponse struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// HTTPSender posts messages to the email function.
type HTTPSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPSender creates a sender. An empty endpoint makes every send fail with an AdapterError.
func NewHTTPSender(endpoint, apiKey string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{endpoint: endpoint, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

// Send posts {recipientEmail, subject, htmlBody}. A 2xx answer is success unless the body
// explicitly says success=false.
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if s.endpoint == "" {
		return apperr.Adapter(serviceName, errors.New("endpoint not configured"))
	}
	body, err := json.Marshal(sendRequest{RecipientEmail: msg.To, Subject: msg.Subject, HTMLBody: msg.HTML})
	if err != nil {
		return errors.Wrap(err, "encode email")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.Adapter(serviceName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Adapter(serviceName, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Adapter(serviceName, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}
	var out sendResponse
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &out) == nil && out.Success != nil && !*out.Success {
		reason := out.Error
		if reason == "" {
			reason = "provider reported failure"
		}
		return apperr.Adapter(serviceName, errors.New(reason))
	}
	return nil
}

// RetryingSender retries a failed send a bounded number of times with exponential backoff.
type RetryingSender struct {
	inner   Sender
	retries uint64
	initial time.Duration
	log     logrus.FieldLogger
}

// NewRetryingSender wraps inner. retries is the number of extra attempts after the first.
func NewRetryingSender(inner Sender, retries uint64, initial time.Duration, log logrus.FieldLogger) *RetryingSender {
	return &RetryingSender{inner: inner, retries: retries, initial: initial, log: log}
}

// SendCounting sends and reports how many attempts were made.
func (s *RetryingSender) SendCounting(ctx context.Context, msg Message) (int, error) {
	attempts := 0
	op := func() error {
		attempts++
		err := s.inner.Send(ctx, msg)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initial
	notify := func(err error, wait time.Duration) {
		s.log.WithError(err).WithFields(logrus.Fields{"recipient": msg.To, "retry_in": wait}).Warn("email send failed, retrying")
	}
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, s.retries), ctx), notify)
	return attempts, err
}

// Send implements Sender.
func (s *RetryingSender) Send(ctx context.Context, msg Message) error {
	_, err := s.SendCounting(ctx, msg)
	return err
}
