package calculator

import (
	"context"
	"strings"
)

// Gateway evaluates a finished expression. A non-nil error is a rejected
// expression; its message may carry a "[code]" prefix.
type Gateway interface {
	Evaluate(ctx context.Context, expression string) (string, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, expression string) (string, error)

func (f GatewayFunc) Evaluate(ctx context.Context, expression string) (string, error) {
	return f(ctx, expression)
}

// ExtractMessage returns the user-facing part of an evaluation failure:
// the text after the last ']', trimmed, which may be empty. fallback is
// returned when err has no ']'.
func ExtractMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	i := strings.LastIndex(msg, "]")
	if i < 0 {
		return fallback
	}
	return strings.TrimSpace(msg[i+1:])
}
