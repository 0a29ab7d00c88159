// Package apiclient is the HTTP transport to the migrant-care backend. Every
// response is decoded into a typed model and validated before it leaves the
// package.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

var validate = validator.New()

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) string
}

type Config struct {
	BaseURL string
	// Timeout of zero means requests wait as long as their context allows.
	Timeout    time.Duration
	Tokens     TokenSource
	Logger     zerolog.Logger
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  zerolog.Logger
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		tokens:  cfg.Tokens,
		logger:  cfg.Logger.With().Str("component", "apiclient").Logger(),
	}
}

type request struct {
	op     string
	method string
	path   string
	body   any
	auth   bool
}

// do sends the request and returns the body of a 2xx response. Any other
// status becomes an *Error carrying the server's message.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", r.op, err)
	}
	rid := uuid.NewString()
	req.Header.Set(RequestIDHeader, rid)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth && c.tokens != nil {
		if tok := c.tokens.Token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("request_id", rid).
			Str("method", r.method).
			Str("path", r.path).
			Dur("latency", time.Since(start)).
			Msg("request failed")
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("request_id", rid).
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newError(r.op, resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", r.op, err)
	}
	return data, nil
}

// decodeInto unmarshals and validates a response body.
func decodeInto(op string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%s: invalid response: %w", op, err)
	}
	return nil
}
