package drafts

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"epos-backend/internal/application/drafts"
	"epos-backend/internal/domain"
	"epos-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func setup(t *testing.T) *fiber.App {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	h := &Handlers{Store: drafts.NewStore(rdb)}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetSessionUser(c, &domain.Session{UserID: "u1"})
		return c.Next()
	})
	app.Get("/api/v1/drafts/:kind", h.Get)
	app.Put("/api/v1/drafts/:kind", h.Save)
	app.Delete("/api/v1/drafts/:kind", h.Clear)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestDraftLifecycle(t *testing.T) {
	app := setup(t)

	status, out := call(t, app, "GET", "/api/v1/drafts/plan", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, out.Data["draft"])

	status, out = call(t, app, "PUT", "/api/v1/drafts/plan", `{"city":"Halifax","pdf_password":"s3cret"}`)
	require.Equal(t, fiber.StatusOK, status)
	saved := out.Data["draft"].(map[string]interface{})
	assert.Equal(t, "plan", saved["kind"])
	assert.NotContains(t, saved["data"], "pdf_password")

	_, out = call(t, app, "GET", "/api/v1/drafts/plan", "")
	loaded := out.Data["draft"].(map[string]interface{})
	assert.Equal(t, "Halifax", loaded["data"].(map[string]interface{})["city"])

	status, _ = call(t, app, "DELETE", "/api/v1/drafts/plan", "")
	assert.Equal(t, fiber.StatusOK, status)
	_, out = call(t, app, "GET", "/api/v1/drafts/plan", "")
	assert.Nil(t, out.Data["draft"])
}

func TestUnknownKind(t *testing.T) {
	app := setup(t)
	status, out := call(t, app, "GET", "/api/v1/drafts/invoice", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, drafts.ErrUnknownKind.Error(), out.Error.Message)

	status, _ = call(t, app, "PUT", "/api/v1/drafts/plan", `[1,2]`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
