// Package testutil holds HTTP helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ExecuteRequest serves req through handler and returns the recording.
func ExecuteRequest(req *http.Request, handler http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// JSONRequest builds a request whose body is v encoded as JSON. A nil v
// sends no body.
func JSONRequest(t testing.TB, method, target string, v any) *http.Request {
	t.Helper()
	if v == nil {
		return httptest.NewRequest(method, target, nil)
	}
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encoding JSON request: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func CheckResponseCode(t testing.TB, expected, actual int) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected status %d, got %d", expected, actual)
	}
}

func DecodeJSONBody(t testing.TB, body io.Reader, dst any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		t.Fatalf("decoding JSON response: %v", err)
	}
}
