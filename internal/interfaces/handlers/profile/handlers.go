package profile

import (
	"errors"

	"epos-backend/internal/application/gate"
	profilesvc "epos-backend/internal/application/profile"
	"epos-backend/internal/domain"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the gated organization profile client.
type Handlers struct {
	Service *profilesvc.Service
}

// Get GET /api/v1/profile. The user's profile, or null when there is none
// or the backend is unreachable (backendStatus tells which).
func (h *Handlers) Get(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	p, err := h.Service.FetchOne(c.UserContext(), sess)
	if err != nil {
		return profileError(c, err)
	}
	st := h.Service.State(sess)
	return response.Success(c, "Profile fetched", fiber.Map{
		"profile":              p,
		"backendStatus":        st.BackendStatus,
		"isOnboardingComplete": p != nil && p.OnboardingComplete(),
	}, nil)
}

// State GET /api/v1/profile/state
func (h *Handlers) State(c *fiber.Ctx) error {
	return response.Success(c, "Profile state", h.Service.State(middleware.CurrentSession(c)), nil)
}

// BackendStatus GET /api/v1/profile/backend-status. Runs a fresh probe.
func (h *Handlers) BackendStatus(c *fiber.Ctx) error {
	status := h.Service.BackendStatus(c.UserContext(), middleware.CurrentSession(c))
	return response.Success(c, "Backend status", fiber.Map{"backendStatus": status}, nil)
}

// Create POST /api/v1/profile
func (h *Handlers) Create(c *fiber.Ctx) error {
	var fields domain.Fields
	if err := c.BodyParser(&fields); err != nil {
		return response.Error(c, "Invalid profile payload", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.CreateOne(c.UserContext(), middleware.CurrentSession(c), fields)
	if err != nil {
		return profileError(c, err)
	}
	return response.SuccessCreated(c, "Profile created", fiber.Map{"profile": p}, nil)
}

// Update PATCH /api/v1/profile/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	var patch domain.Fields
	if err := c.BodyParser(&patch); err != nil {
		return response.Error(c, "Invalid profile payload", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.UpdateOne(c.UserContext(), middleware.CurrentSession(c), c.Params("id"), patch)
	if err != nil {
		return profileError(c, err)
	}
	return response.Success(c, "Profile updated", fiber.Map{"profile": p}, nil)
}

// profileError maps profile service failures to status codes. Backend
// failures after a successful probe surface as 502 with the backend's text.
func profileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, profilesvc.ErrNotAuthenticated):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, profilesvc.ErrOrganizationNameRequired), errors.Is(err, profilesvc.ErrNoProfileToUpdate):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, gate.ErrUnavailable):
		return response.ServiceUnavailable(c, err.Error())
	default:
		middleware.Logger(c).Error().Err(err).Msg("profile backend request failed")
		return response.Error(c, err.Error(), fiber.StatusBadGateway, nil)
	}
}
