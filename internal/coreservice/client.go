package coreservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"kickride/internal/metrics"
)

// OpcodeUnknown marks failures without a usable core-service response.
const OpcodeUnknown = -1

// APIError is a normalized core-service failure.
type APIError struct {
	Service string
	Status  int
	Opcode  int
	Message string
	cause   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: opcode %d: %s", e.Service, e.Opcode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// IsNotFound reports whether err is a 404 answer from a core service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// client is the shared transport of the accounts and payments clients:
// a base URL, a token source and New Relic traced HTTP.
type client struct {
	service string
	baseURL string
	tokens  *TokenSource
	http    *http.Client
}

func newClient(service, baseURL string, tokens *TokenSource, timeout time.Duration) *client {
	return &client{
		service: service,
		baseURL: baseURL + "/internal/",
		tokens:  tokens,
		http: &http.Client{
			Timeout:   timeout,
			Transport: newrelic.NewRoundTripper(http.DefaultTransport),
		},
	}
}

func (c *client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() {
		opcode := 0
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			opcode = apiErr.Opcode
		}
		metrics.ObserveUpstream(c.service, operation, opcode, time.Since(start))
	}()

	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.unknown(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.unknown(resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			Opcode  int    `json:"opcode"`
			Message string `json:"message"`
		}
		if len(data) == 0 || json.Unmarshal(data, &env) != nil {
			return c.unknown(resp.StatusCode, nil)
		}
		return &APIError{Service: c.service, Status: resp.StatusCode, Opcode: env.Opcode, Message: env.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.unknown(resp.StatusCode, err)
	}
	return nil
}

func (c *client) unknown(status int, cause error) *APIError {
	return &APIError{
		Service: c.service,
		Status:  status,
		Opcode:  OpcodeUnknown,
		Message: "unknown error occurred",
		cause:   cause,
	}
}
