// Package gateway is the HTTP client for the external expression
// evaluator. It satisfies calculator.Gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"calculator-api/internal/observability"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 64 << 10

// Config names the evaluator endpoint.
type Config struct {
	URL     string
	Timeout time.Duration
}

// EvaluateRequest is the JSON body sent to the evaluator.
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse is the evaluator's success body.
type EvaluateResponse struct {
	Result string `json:"result"`
}

// errorBody covers both connect-style {"code","message"} and plain
// {"error"} failure bodies.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Error is a rejection reported by the evaluator. Its text follows the
// "[code] message" convention.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Client posts expressions to the evaluator.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate submits expression and returns the evaluator's result text.
func (c *Client) Evaluate(ctx context.Context, expression string) (string, error) {
	logger := observability.LoggerWithTrace(ctx)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(EvaluateRequest{Expression: expression})
	if err != nil {
		return "", fmt.Errorf("encode evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build evaluate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := observability.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(observability.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call evaluator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read evaluator response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		evalErr := decodeError(resp.StatusCode, raw)
		logger.Debug("evaluator rejected expression",
			zap.String("expression", expression),
			zap.Int("status", resp.StatusCode),
			zap.String("code", evalErr.Code),
		)
		return "", evalErr
	}

	var out EvaluateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode evaluator response: %w", err)
	}

	logger.Debug("evaluator answered",
		zap.String("expression", expression),
		zap.String("result", out.Result),
	)
	return out.Result, nil
}

func decodeError(status int, raw []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		if msg != "" {
			code := eb.Code
			if code == "" {
				code = codeForStatus(status)
			}
			return &Error{Status: status, Code: code, Message: msg}
		}
	}
	return &Error{Status: status, Code: codeForStatus(status), Message: http.StatusText(status)}
}

// codeForStatus names a status the way connect error codes read.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "unimplemented"
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "unavailable"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return "http_" + strconv.Itoa(status)
	}
}
