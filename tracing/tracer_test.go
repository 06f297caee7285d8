package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartEnd_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := Start(context.Background(), "analytics.overview")
	End(span, errors.New("boom"))

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, "analytics.overview", spans[0].Name())
		assert.Len(t, spans[0].Events(), 1)
	}
}
