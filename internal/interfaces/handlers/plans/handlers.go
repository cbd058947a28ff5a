package plans

import (
	"errors"
	"fmt"

	"epos-backend/internal/application/plans"
	"epos-backend/internal/infrastructure/planapi"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"
	"epos-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for the plan endpoints.
type Handlers struct {
	Service *plans.Service
}

// Generate POST /api/v1/plans/generate
func (h *Handlers) Generate(c *fiber.Ctx) error {
	var form plans.Form
	if err := c.BodyParser(&form); err != nil {
		return response.Error(c, "Invalid plan form", fiber.StatusBadRequest, nil)
	}
	rec, err := h.Service.Generate(c.UserContext(), middleware.CurrentSession(c), form)
	if err != nil {
		return planError(c, err)
	}
	return response.SuccessCreated(c, "Plan requested", fiber.Map{"plan": rec}, nil)
}

// List GET /api/v1/plans
func (h *Handlers) List(c *fiber.Ctx) error {
	recs, err := h.Service.List(c.UserContext(), middleware.CurrentSession(c).UserID)
	if err != nil {
		return planError(c, err)
	}
	return response.Success(c, "Plans fetched", fiber.Map{"plans": recs}, map[string]interface{}{"count": len(recs)})
}

// Get GET /api/v1/plans/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	rec, err := h.Service.Get(c.UserContext(), middleware.CurrentSession(c).UserID, c.Params("id"))
	if err != nil {
		return planError(c, err)
	}
	return response.Success(c, "Plan fetched", fiber.Map{"plan": rec}, nil)
}

// TaskStatus GET /api/v1/plans/tasks/:taskId
func (h *Handlers) TaskStatus(c *fiber.Ctx) error {
	task, rec, err := h.Service.TaskStatus(c.UserContext(), middleware.CurrentSession(c), c.Params("taskId"))
	if err != nil {
		return planError(c, err)
	}
	return response.Success(c, "Task status", fiber.Map{"task": task, "plan": rec}, nil)
}

// DownloadPDF POST /api/v1/plans/download-pdf. Streams the protected PDF back.
func (h *Handlers) DownloadPDF(c *fiber.Ctx) error {
	var in plans.PDFInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, plans.ErrMissingPDFInput.Error(), fiber.StatusBadRequest, nil)
	}
	pdf, name, err := h.Service.DownloadPDF(c.UserContext(), in)
	if err != nil {
		return planError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Send(pdf)
}

// Email POST /api/v1/plans/email
func (h *Handlers) Email(c *fiber.Ctx) error {
	var in plans.EmailInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, plans.ErrMissingEmailFields.Error(), fiber.StatusBadRequest, nil)
	}
	resp, err := h.Service.EmailPlan(c.UserContext(), middleware.CurrentSession(c), in)
	if err != nil {
		return planError(c, err)
	}
	msg := resp.Message
	if msg == "" {
		msg = "Plan sent"
	}
	return response.Success(c, msg, fiber.Map{"sent": resp.Success}, nil)
}

// Prefill GET /api/v1/plans/prefill. An unreachable profile backend yields
// the default form, not an error.
func (h *Handlers) Prefill(c *fiber.Ctx) error {
	form, found, err := h.Service.Prefill(c.UserContext(), middleware.CurrentSession(c))
	if err != nil {
		middleware.Logger(c).Warn().Err(err).Msg("plan prefill without profile")
	}
	return response.Success(c, "Plan form", fiber.Map{
		"form":              form,
		"fromProfile":       found,
		"organizationTypes": plans.OrganizationTypes,
	}, nil)
}

func planError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return response.Invalid(c, verrs.Error(), verrs)
	}
	switch {
	case errors.Is(err, plans.ErrNotAuthenticated):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, plans.ErrPlanNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, plans.ErrMissingPDFInput), errors.Is(err, plans.ErrMissingEmailFields):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	var ae *plans.ActionError
	if errors.As(err, &ae) {
		details := map[string]interface{}{}
		var apiErr *planapi.APIError
		if errors.As(err, &apiErr) {
			details["upstreamStatus"] = apiErr.StatusCode
		}
		middleware.Logger(c).Warn().Err(err).Msg("plan api call failed")
		return response.Error(c, ae.Error(), fiber.StatusBadGateway, details)
	}
	middleware.Logger(c).Error().Err(err).Msg("plan request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
