package drafts

import (
	"errors"

	"epos-backend/internal/application/drafts"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the autosave endpoints for the plan form and the
// onboarding wizard.
type Handlers struct {
	Store *drafts.Store
}

// Get GET /api/v1/drafts/:kind. Data is null when there is no fresh draft.
func (h *Handlers) Get(c *fiber.Ctx) error {
	d, err := h.Store.Load(c.UserContext(), c.Params("kind"), userID(c))
	if err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Draft fetched", fiber.Map{"draft": d}, nil)
}

// Save PUT /api/v1/drafts/:kind
func (h *Handlers) Save(c *fiber.Ctx) error {
	var data map[string]interface{}
	if err := c.BodyParser(&data); err != nil {
		return response.Error(c, "Draft must be a JSON object", fiber.StatusBadRequest, nil)
	}
	d, err := h.Store.Save(c.UserContext(), c.Params("kind"), userID(c), data)
	if err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Draft saved", fiber.Map{"draft": d}, nil)
}

// Clear DELETE /api/v1/drafts/:kind
func (h *Handlers) Clear(c *fiber.Ctx) error {
	if err := h.Store.Clear(c.UserContext(), c.Params("kind"), userID(c)); err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Draft cleared", nil, nil)
}

func userID(c *fiber.Ctx) string {
	if sess := middleware.CurrentSession(c); sess != nil {
		return sess.UserID
	}
	return ""
}

func draftError(c *fiber.Ctx, err error) error {
	if errors.Is(err, drafts.ErrUnknownKind) {
		return response.NotFound(c, err.Error())
	}
	middleware.Logger(c).Error().Err(err).Msg("draft store failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
