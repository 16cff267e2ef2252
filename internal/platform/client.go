package platform

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

	"kickride/internal/config"
	"kickride/internal/metrics"
)

const (
	accessKeyIDHeader     = "X-HIKICK-PLATFORM-ACCESS-KEY-ID"
	secretAccessKeyHeader = "X-HIKICK-PLATFORM-SECRET-ACCESS-KEY"

	unknownErrorMessage = "unknown error occurred"
)

// Client talks to the fleet platform. It is safe for concurrent use and is
// meant to be built once at startup.
type Client struct {
	baseURL         string
	accessKeyID     string
	secretAccessKey string
	http            *http.Client
}

// NewClient creates a platform client. Outbound requests are traced as New
// Relic external segments when the request context carries a transaction.
func NewClient(cfg config.PlatformConfig) *Client {
	return &Client{
		baseURL:         cfg.URL + "/v1/",
		accessKeyID:     cfg.AccessKeyID,
		secretAccessKey: cfg.SecretAccessKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newrelic.NewRoundTripper(http.DefaultTransport),
		},
	}
}

// envelope is the common shape of every platform response.
type envelope struct {
	Opcode  int    `json:"opcode"`
	Message string `json:"message"`
}

// do performs one request. body is JSON-encoded when non-nil and the response
// is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() {
		opcode := 0
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			opcode = apiErr.Opcode
		}
		metrics.ObserveUpstream("platform", operation, opcode, time.Since(start))
	}()

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
	req.Header.Set(accessKeyIDHeader, c.accessKeyID)
	req.Header.Set(secretAccessKeyHeader, c.secretAccessKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Opcode: OpcodeUnknown, Message: unknownErrorMessage, cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, Opcode: OpcodeUnknown, Message: unknownErrorMessage, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Opcode: OpcodeUnknown, Message: unknownErrorMessage, cause: err}
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var env envelope
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return &APIError{Status: status, Opcode: OpcodeUnknown, Message: unknownErrorMessage}
	}
	return &APIError{Status: status, Opcode: env.Opcode, Message: env.Message}
}
