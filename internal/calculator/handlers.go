package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"calculator-api/internal/handlers"
	"calculator-api/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler serves the session endpoints backed by a Store.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// ---------------------------------------------------------------------------
// Handlers — session lifecycle
// ---------------------------------------------------------------------------

// Create handles POST /calculator/sessions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	_, span := tracer.Start(ctx, "calculator.session.create")
	defer span.End()

	id, st := h.store.Create()
	span.SetAttributes(attribute.String("calculator.session.id", id))

	logger.Info("calculator session created",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, newSessionResponse(id, st))
}

// Get handles GET /calculator/sessions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "calculator.session.get",
		trace.WithAttributes(attribute.String("calculator.session.id", id)),
	)
	defer span.End()

	st, err := h.store.Get(id)
	if err != nil {
		h.fail(ctx, span, w, "get", err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(id, st))
}

// Delete handles DELETE /calculator/sessions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "calculator.session.delete",
		trace.WithAttributes(attribute.String("calculator.session.id", id)),
	)
	defer span.End()

	if err := h.store.Delete(id); err != nil {
		h.fail(ctx, span, w, "delete", err)
		return
	}

	logger.Info("calculator session discarded", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Handler — button presses (one child span per button)
// ---------------------------------------------------------------------------

// Press handles POST /calculator/sessions/{id}/press. The body names one
// button or a batch; a batch produces a child span per button.
func (h *Handler) Press(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "calculator.press",
		trace.WithAttributes(
			attribute.String("calculator.session.id", id),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req PressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "press", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	labels := req.labels()
	if len(labels) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "press", "no buttons provided", fmt.Errorf("button and buttons are empty"), http.StatusBadRequest, w)
		return
	}

	// Parse the whole batch before touching the session.
	buttons := make([]Button, 0, len(labels))
	for _, label := range labels {
		b, err := ParseButton(label)
		if err != nil {
			observability.RecordError(ctx, span, logger, errorCounter, "press", err.Error(), err, http.StatusBadRequest, w)
			return
		}
		buttons = append(buttons, b)
	}
	span.SetAttributes(attribute.Int("calculator.press.count", len(buttons)))

	st, err := h.store.Press(ctx, id, buttons, pressStep)
	if err != nil {
		h.fail(ctx, span, w, "press", err)
		return
	}

	span.SetAttributes(
		attribute.String("calculator.expression", st.Expression),
		attribute.String("calculator.mode", st.Mode.String()),
	)
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator buttons applied",
		zap.String("session_id", id),
		zap.Int("buttons", len(buttons)),
		zap.String("expression", st.Expression),
		zap.String("mode", st.Mode.String()),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(id, st))
}

// pressStep applies one button inside its own child span.
func pressStep(ctx context.Context, i int, b Button, sess *Session) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.press.step.%d.%s", i, b),
		trace.WithAttributes(
			attribute.Int("calculator.press.index", i),
			attribute.String("calculator.button", b.String()),
			attribute.String("calculator.expression.before", sess.Expression()),
		),
	)
	defer span.End()

	evaluated := sess.Press(ctx, b)
	pressCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("button", b.String())))

	span.SetAttributes(
		attribute.String("calculator.expression.after", sess.Expression()),
		attribute.Bool("calculator.evaluated", evaluated),
	)
	if msg, failed := sess.Error(); failed && evaluated {
		span.AddEvent("evaluation.failed", trace.WithAttributes(attribute.String("message", msg)))
	}
}

// fail maps store errors onto HTTP statuses.
func (h *Handler) fail(ctx context.Context, span trace.Span, w http.ResponseWriter, opName string, err error) {
	logger := observability.LoggerWithTrace(ctx)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrEvaluationInFlight):
		status = http.StatusConflict
	case errors.Is(err, ErrEqualsThrottled):
		status = http.StatusTooManyRequests
	}
	observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, status, w)
}
