// Package tracing threads a correlation id through one HTTP exchange or one
// RIVA dispatch rendezvous and logs its start, duration, and outcome, the
// same request-id-plus-structured-log shape used for cross-component
// request correlation elsewhere in this stack.
package tracing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type ctxKey struct{}

var correlationIDKey ctxKey

// Tracer logs span start/end pairs tagged with a correlation id.
type Tracer struct {
	log *slog.Logger
}

// New returns a Tracer that logs through log, falling back to slog.Default
// if log is nil.
func New(log *slog.Logger) *Tracer {
	if log == nil {
		log = slog.Default()
	}
	return &Tracer{log: log.With("component", "tracing")}
}

// Span is one timed, correlation-id-tagged operation.
type Span struct {
	log *slog.Logger
	name string
	id string
	start time.Time
}

// ExchangeSpan starts a span around one HTTP worker exchange. The returned
// context carries the correlation id for any logging further down the
// exchange.
func (t *Tracer) ExchangeSpan(ctx context.Context, method, path string) (context.Context, *Span) {
	return t.start(ctx, "worker.exchange", "http.method", method, "http.target", path)
}

// DispatchSpan starts a span around one RIVA action-dispatch rendezvous: the
// interval between an action thread placing a DispatchAction event on the
// GUI queue and the faux-GUI thread signaling it back.
func (t *Tracer) DispatchSpan(ctx context.Context, widgetID string) (context.Context, *Span) {
	return t.start(ctx, "riva.dispatch_action", "riva.widget_id", widgetID)
}

func (t *Tracer) start(ctx context.Context, name string, attrs ...any) (context.Context, *Span) {
	id:= uuid.NewString()
	ctx = context.WithValue(ctx, correlationIDKey, id)
	s:= &Span{log: t.log, name: name, id: id, start: time.Now()}
	s.log.Debug("span start", append([]any{"correlation_id", id, "span", name}, attrs...)...)
	return ctx, s
}

// CorrelationID returns the id a Span threaded onto ctx, or "" if none.
func CorrelationID(ctx context.Context) string {
	id, _:= ctx.Value(correlationIDKey).(string)
	return id
}

// End logs span completion along with its duration.
func (s *Span) End() {
	s.log.Debug("span end", "correlation_id", s.id, "span", s.name, "duration_ms", time.Since(s.start).Milliseconds())
}

// EndWithError logs err (if non-nil) as a warning before ending the span.
func EndWithError(s *Span, err error) {
	if err != nil {
		s.log.Warn("span error", "correlation_id", s.id, "span", s.name, "err", err)
	}
	s.End()
}
