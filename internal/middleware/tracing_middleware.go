package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "catalog/http"

// Tracing starts a server span for every request, continuing any trace
// propagated in the request headers. The span context is stored in the
// request's user context so handlers and services create child spans.
//
// Span attributes outlive the request, so every value taken from the Ctx is
// copied out of fasthttp's reusable buffers.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		headers := http.Header(c.GetReqHeaders())
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(headers))

		method := utils.CopyString(c.Method())
		ctx, span := otel.Tracer(tracerName).Start(ctx, "HTTP "+method+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", utils.CopyString(c.OriginalURL())),
			attribute.String("http.user_agent", utils.CopyString(c.Get(fiber.HeaderUserAgent))),
		)

		c.SetUserContext(ctx)
		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
		}
		if status >= fiber.StatusInternalServerError || err != nil {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}
