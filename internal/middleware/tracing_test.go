package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"clanhub/internal/models"
	"clanhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("clanhub-test")
	t.Cleanup(func() { observability.Tracer = prev })
	return rec
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	rec := recordSpans(t)
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/clans/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/clans/17", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /clans/:id", spans[0].Name())
	route, ok := spanAttr(spans[0], "http.route")
	require.True(t, ok)
	assert.Equal(t, "/clans/:id", route.AsString())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracingMiddleware_TagsAppErrorsAndServerFailures(t *testing.T) {
	rec := recordSpans(t)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if models.HasCode(err, models.CodeStoreUnavailable) {
				return c.SendStatus(fiber.StatusServiceUnavailable)
			}
			return c.SendStatus(fiber.StatusForbidden)
		},
	})
	app.Use(TracingMiddleware())
	app.Get("/denied", func(c *fiber.Ctx) error {
		return models.NewPermissionDeniedError("no")
	})
	app.Get("/down", func(c *fiber.Ctx) error {
		// the handler writes the status itself, as the server helpers do
		c.Status(fiber.StatusServiceUnavailable)
		return models.NewStoreUnavailableError(assert.AnError)
	})

	for _, path := range []string{"/denied", "/down"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	spans := rec.Ended()
	require.Len(t, spans, 2)

	code, ok := spanAttr(spans[0], "app.error_code")
	require.True(t, ok)
	assert.Equal(t, models.CodePermissionDenied, code.AsString())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	code, ok = spanAttr(spans[1], "app.error_code")
	require.True(t, ok)
	assert.Equal(t, models.CodeStoreUnavailable, code.AsString())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
