package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const traceIDHeader = "X-Trace-Id"
const traceIDLocal = "trace_id"

// Tracing adds a trace ID to the request and response. An inbound
// X-Trace-Id that parses as a UUID is kept so the frontend can correlate.
// The request's user context carries a logger tagged with the trace ID.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(traceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}
		c.Locals(traceIDLocal, traceID)
		c.Set(traceIDHeader, traceID)

		logger := log.With().Str("trace_id", traceID).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	}
}

// GetTraceID returns the trace ID from context.
func GetTraceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(traceIDLocal).(string); ok {
		return id
	}
	return ""
}

// Logger returns the request's trace-tagged logger, or the global one.
func Logger(c *fiber.Ctx) *zerolog.Logger {
	l := zerolog.Ctx(c.UserContext())
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}
