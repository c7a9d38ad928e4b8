package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"clanhub/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Logger is the process-wide structured logger. It starts from APP_ENV and
// LOG_LEVEL so package init code can log, and ConfigureLogger replaces it once
// the configuration is loaded.
var Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"), "", os.Getenv("LOG_LEVEL"))

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// ctxHandler stamps correlation ids carried in the context onto each record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok {
		r.AddAttrs(slog.Any("user_id", uid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a context-aware logger. format is "json" or "text"; empty
// means JSON in production and text elsewhere. An unparsable level is info.
func NewLogger(w io.Writer, env, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "" {
		format = "text"
		if env == "production" || env == "prod" {
			format = "json"
		}
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

// ConfigureLogger replaces Logger according to cfg and makes it the slog default.
func ConfigureLogger(cfg *config.Config) error {
	switch strings.ToLower(cfg.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", cfg.LogFormat)
	}
	Logger = NewLogger(os.Stdout, cfg.Env, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(Logger)
	return nil
}

// ContextMiddleware copies the request id, user id and trace id from Fiber
// locals into the user context. Register it after the middleware that sets
// them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			rid = uuid.NewString()
			c.Locals("requestid", rid)
		}
		ctx = context.WithValue(ctx, RequestIDKey, rid)

		if uid, ok := c.Locals("userID").(uint); ok {
			ctx = context.WithValue(ctx, UserIDKey, uid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request. 5xx responses and handler
// errors log at error level, 4xx at warn.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}

		ctx := c.UserContext()
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			Logger.ErrorContext(ctx, "request failed", attrs...)
		case status >= fiber.StatusInternalServerError:
			Logger.ErrorContext(ctx, "request failed", attrs...)
		case status >= fiber.StatusBadRequest:
			Logger.WarnContext(ctx, "request rejected", attrs...)
		default:
			Logger.InfoContext(ctx, "request processed", attrs...)
		}
		return err
	}
}
