package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RouteLogger logs each request entry and exit with duration, status and the
// signed-in user.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := Logger(c)
		start := time.Now()
		logger.Debug().Str("method", c.Method()).Str("path", c.Path()).Msg("Entering request")

		err := c.Next()

		ev := logger.Info()
		status := responseStatus(c, err)
		if status >= fiber.StatusInternalServerError {
			ev = logger.Warn()
		}
		if sess := CurrentSession(c); sess != nil {
			ev = ev.Str("user_id", sess.UserID)
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("ms", time.Since(start).Milliseconds()).
			Msg("Exiting request")
		return err
	}
}

// responseStatus is the status the client will see. When a handler returned
// an error the global ErrorHandler has not run yet.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if e, ok := err.(*fiber.Error); ok {
		return e.Code
	}
	return fiber.StatusInternalServerError
}
