package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calculator-api/internal/calculator"
	"calculator-api/internal/observability"
)

var _ calculator.Gateway = (*Client)(nil)

func newEvaluator(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/calculate", Timeout: time.Second})
}

func TestEvaluateReturnsResult(t *testing.T) {
	var got EvaluateRequest
	var gotRequestID string

	client := newEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/calculate" {
			t.Errorf("expected path /calculate, got %s", r.URL.Path)
		}
		gotRequestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(EvaluateResponse{Result: "9"})
	})

	ctx := observability.ContextWithRequestID(context.Background(), "req-42")
	result, err := client.Evaluate(ctx, "4+5")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != "9" {
		t.Fatalf("expected result %q, got %q", "9", result)
	}
	if got.Expression != "4+5" {
		t.Fatalf("expected expression %q, got %q", "4+5", got.Expression)
	}
	if gotRequestID != "req-42" {
		t.Fatalf("expected request id to be forwarded, got %q", gotRequestID)
	}
}

func TestEvaluateMapsRejections(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		wantMsg string
	}{
		{
			name:    "connect style",
			status:  http.StatusBadRequest,
			body:    `{"code":"invalid_argument","message":"division by zero"}`,
			wantErr: "[invalid_argument] division by zero",
			wantMsg: "division by zero",
		},
		{
			name:    "plain error field",
			status:  http.StatusUnprocessableEntity,
			body:    `{"error":"malformed expression"}`,
			wantErr: "[http_422] malformed expression",
			wantMsg: "malformed expression",
		},
		{
			name:    "undecodable body",
			status:  http.StatusServiceUnavailable,
			body:    `<html>down</html>`,
			wantErr: "[unavailable] Service Unavailable",
			wantMsg: "Service Unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := client.Evaluate(context.Background(), "5/0")
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tc.wantErr {
				t.Fatalf("expected error %q, got %q", tc.wantErr, err.Error())
			}

			var evalErr *Error
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if evalErr.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, evalErr.Status)
			}

			if got := calculator.ExtractMessage(err, "unknown error"); got != tc.wantMsg {
				t.Fatalf("expected extracted message %q, got %q", tc.wantMsg, got)
			}
		})
	}
}

func TestEvaluateTransportFailureHasNoBracketPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(Config{URL: url, Timeout: time.Second})
	_, err := client.Evaluate(context.Background(), "1+1")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "]") {
		t.Fatalf("expected no bracket in transport error, got %q", err.Error())
	}
	if got := calculator.ExtractMessage(err, "unknown error"); got != "unknown error" {
		t.Fatalf("expected unknown error sentinel, got %q", got)
	}
}

func TestEvaluateHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := New(Config{URL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Evaluate(context.Background(), "1+1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEvaluateRejectsMalformedSuccessBody(t *testing.T) {
	client := newEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nine"))
	})

	if _, err := client.Evaluate(context.Background(), "4+5"); err == nil {
		t.Fatal("expected decode error")
	}
}

// Nothing in this package initializes calculator metrics, so this drives a
// store on the default instruments.
func TestStoreEvaluatesThroughClientWithoutMetricsInit(t *testing.T) {
	client := newEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(EvaluateResponse{Result: "9"})
	})

	store := calculator.NewStore(client, calculator.StoreConfig{})
	id, _ := store.Create()

	buttons := make([]calculator.Button, 0, 4)
	for _, label := range []string{"4", "+", "5", "="} {
		b, err := calculator.ParseButton(label)
		if err != nil {
			t.Fatalf("parse %q: %v", label, err)
		}
		buttons = append(buttons, b)
	}

	st, err := store.Press(context.Background(), id, buttons, nil)
	if err != nil {
		t.Fatalf("press: %v", err)
	}
	if st.CurrentOperand != "9" || st.Mode != calculator.ModeResult {
		t.Fatalf("expected result 9, got %+v", st)
	}
}
