package onboarding

import (
	"encoding/json"
	"errors"

	"epos-backend/internal/application/gate"
	"epos-backend/internal/application/onboarding"
	profilesvc "epos-backend/internal/application/profile"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"
	"epos-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Wizard *onboarding.Wizard
}

// Steps GET /api/v1/onboarding/steps. Page order of the wizard.
func (h *Handlers) Steps(c *fiber.Ctx) error {
	return response.Success(c, "Onboarding steps", fiber.Map{"steps": onboarding.StepOrder}, nil)
}

// ValidateStep POST /api/v1/onboarding/steps/:kind/validate. Checks one
// page and autosaves it into the onboarding draft.
func (h *Handlers) ValidateStep(c *fiber.Ctx) error {
	userID := ""
	if sess := middleware.CurrentSession(c); sess != nil {
		userID = sess.UserID
	}
	step, err := h.Wizard.SubmitStep(c.UserContext(), userID, c.Params("kind"), c.Body())
	if err != nil {
		return wizardError(c, err)
	}
	return response.Success(c, "Step is valid", fiber.Map{"step": step.Kind(), "fields": onboarding.StepFields(step)}, nil)
}

// Complete POST /api/v1/onboarding/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	p, err := h.Wizard.Complete(c.UserContext(), middleware.CurrentSession(c), c.Body())
	if err != nil {
		return wizardError(c, err)
	}
	return response.SuccessCreated(c, "Onboarding complete", fiber.Map{"profile": p}, nil)
}

// Skip POST /api/v1/onboarding/skip. Persists the stub profile.
func (h *Handlers) Skip(c *fiber.Ctx) error {
	p, err := h.Wizard.Skip(c.UserContext(), middleware.CurrentSession(c))
	if err != nil {
		return wizardError(c, err)
	}
	return response.SuccessCreated(c, "Onboarding skipped", fiber.Map{"profile": p}, nil)
}

func wizardError(c *fiber.Ctx, err error) error {
	var stepErr *onboarding.StepError
	var verrs validation.Errors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &stepErr) && errors.As(err, &verrs):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{"step": stepErr.Step, "fields": verrs})
	case errors.Is(err, onboarding.ErrUnknownStep):
		return response.NotFound(c, err.Error())
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return response.Error(c, "Invalid onboarding payload", fiber.StatusBadRequest, nil)
	case errors.Is(err, profilesvc.ErrNotAuthenticated):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, profilesvc.ErrOrganizationNameRequired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, gate.ErrUnavailable):
		return response.ServiceUnavailable(c, err.Error())
	default:
		middleware.Logger(c).Error().Err(err).Msg("onboarding failed")
		return response.Error(c, err.Error(), fiber.StatusBadGateway, nil)
	}
}
