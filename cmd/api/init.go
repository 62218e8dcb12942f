package main

import (
	"context"

	"calculator-api/internal/calculator"
	"calculator-api/internal/observability"
)

// initMetrics initialises the OTel meter provider and the calculator's
// instruments. Instruments must exist before the first session is pressed.
func initMetrics(ctx context.Context) (func(context.Context) error, error) {
	shutdown, err := observability.InitMetrics(ctx)
	if err != nil {
		return nil, err
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, err
	}

	return shutdown, nil
}
