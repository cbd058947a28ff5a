package access

import (
	"errors"
	"strconv"

	"epos-backend/internal/application/access"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the shared access password screen.
type Handlers struct {
	Guard  *access.Guard
	Config middleware.SessionConfig
}

type verifyRequest struct {
	Password string `json:"password"`
}

// Status GET /api/v1/access/status
func (h *Handlers) Status(c *fiber.Ctx) error {
	st, err := h.Guard.Status(c.UserContext(), c.IP())
	if err != nil {
		middleware.Logger(c).Error().Err(err).Msg("access status failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	granted := !st.Enabled || middleware.AccessGranted(c)
	return response.Success(c, "Access status", fiber.Map{"status": st, "granted": granted}, nil)
}

// Verify POST /api/v1/access/verify. On success the session is marked as
// granted, starting a session if the visitor has none yet.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return response.Error(c, "Password is required", fiber.StatusBadRequest, nil)
	}

	err := h.Guard.Verify(c.UserContext(), c.IP(), req.Password)
	var wrong *access.IncorrectPasswordError
	var locked *access.LockedError
	switch {
	case err == nil:
	case errors.As(err, &wrong):
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, fiber.Map{"remaining": wrong.Remaining})
	case errors.As(err, &locked):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(locked.Wait.Seconds())+1))
		return response.Error(c, err.Error(), fiber.StatusTooManyRequests, fiber.Map{"lockedUntil": locked.Until})
	default:
		middleware.Logger(c).Error().Err(err).Msg("access verify failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	if middleware.GetSessionID(c) == "" {
		middleware.IssueSessionCookie(c, h.Config)
	}
	middleware.SetAccessGranted(c)
	return response.Success(c, "Access granted", fiber.Map{"granted": true}, nil)
}
