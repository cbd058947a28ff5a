package health

import (
	"time"

	healthsvc "epos-backend/internal/application/health"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "epos-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Sources        healthsvc.Sources
	HealthAdminKey string
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Forbidden(c, "Unauthorized")
	}
	if h.Sources.Redis == nil {
		return response.ServiceUnavailable(c, "Redis is not configured")
	}
	if err := healthsvc.Reset(c.UserContext(), h.Sources.Redis, time.Now()); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns the health payload plus the service name.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.UserContext(), h.Sources)
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors returns the last 50 recorded 5xx responses.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if h.Sources.Redis == nil {
		return c.JSON([]middleware.ErrorEntry{})
	}
	entries, err := healthsvc.ErrorLog(c.UserContext(), h.Sources.Redis)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]middleware.ErrorEntry{})
	}
	return c.JSON(entries)
}

// Dashboard returns the HTML health status page.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	html, err := healthsvc.RenderDashboardHTML(healthsvc.CollectHealth(c.UserContext(), h.Sources))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}
