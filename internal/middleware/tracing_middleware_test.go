package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	app := fiber.New()
	app.Use(middleware.Tracing())
	app.Get("/ok", func(c *fiber.Ctx) error {
		assert.True(t, trace.SpanContextFromContext(c.UserContext()).IsValid())
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "HTTP GET /ok", spans[0].Name())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	assert.Equal(t, "HTTP GET /fail", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestTracing_AttributesSurviveBufferReuse(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)

	app := fiber.New()
	app.Use(middleware.Tracing())
	app.Get("/:name", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	urls := []string{"/AAAAAAAA?x=1", "/BBBBBBBB?x=2", "/CCCCCCCC?x=3"}
	agents := []string{"agent-one", "agent-two", "agent-six"}
	for i, target := range urls {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set(fiber.HeaderUserAgent, agents[i])
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	spans := recorder.Ended()
	require.Len(t, spans, len(urls))
	for i, span := range spans {
		attrs := map[attribute.Key]string{}
		for _, kv := range span.Attributes() {
			attrs[kv.Key] = kv.Value.Emit()
		}
		assert.Equal(t, urls[i], attrs["http.url"])
		assert.Equal(t, agents[i], attrs["http.user_agent"])
		assert.Equal(t, http.MethodGet, attrs["http.method"])
	}
}
