package calculator

import (
	"context"
	"strconv"
	"time"

	"calculator-api/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// instrumented wraps a Gateway with a span, metrics and a log line per
// evaluation.
type instrumented struct {
	next Gateway
}

func instrument(gw Gateway) Gateway {
	if _, ok := gw.(instrumented); ok {
		return gw
	}
	return instrumented{next: gw}
}

func (g instrumented) Evaluate(ctx context.Context, expression string) (string, error) {
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.evaluate",
		trace.WithAttributes(attribute.String("calculator.expression", expression)),
	)
	defer span.End()

	start := time.Now()
	result, err := g.next.Evaluate(ctx, expression)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	evalCounter.Add(ctx, 1, attrs)
	evalHistogram.Record(ctx, elapsed, attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation rejected")
		logger.Warn("expression rejected",
			zap.String("expression", expression),
			zap.Error(err),
			zap.Float64("duration_ms", elapsed),
		)
		return "", err
	}

	if v, perr := strconv.ParseFloat(result, 64); perr == nil {
		resultGauge.Record(ctx, v)
	}
	span.SetAttributes(attribute.String("calculator.result", result))
	span.SetStatus(codes.Ok, "")

	logger.Info("expression evaluated",
		zap.String("expression", expression),
		zap.String("result", result),
		zap.Float64("duration_ms", elapsed),
	)
	return result, nil
}
