package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestExchangeSpanThreadsCorrelationID(t *testing.T) {
	tr:= New(nil)
	ctx, span:= tr.ExchangeSpan(context.Background(), "GET", "/index.html")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	if CorrelationID(ctx) == "" {
		t.Fatal("expected a correlation id on the returned context")
	}
	EndWithError(span, nil)
}

func TestDispatchSpanEndsWithError(t *testing.T) {
	tr:= New(nil)
	_, span:= tr.DispatchSpan(context.Background(), "widget-42")
	EndWithError(span, errors.New("boom"))
}

func TestNewFallsBackToDefaultLogger(t *testing.T) {
	tr:= New(nil)
	if tr == nil {
		t.Fatal("expected a non-nil Tracer")
	}
}

func TestCorrelationIDAbsentByDefault(t *testing.T) {
	if CorrelationID(context.Background()) != "" {
		t.Fatal("expected no correlation id on a bare context")
	}
}
