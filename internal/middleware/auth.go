package middleware

import (
	"context"
	"time"

	"epos-backend/internal/domain"
	"epos-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const userLocal = "user"

var now = time.Now

// TokenRefresher renews a session's tokens from its refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error)
}

// AuthConfig for RequireAuth. Both fields are optional.
type AuthConfig struct {
	Refresher TokenRefresher
	// OnExpired runs with the user ID once an expired session could not be
	// renewed and has been signed out.
	OnExpired func(userID string)
}

// RequireAuth ensures a user is in the session and their tokens have not
// expired. Expired tokens are renewed through cfg.Refresher when the session
// holds a refresh token; the new tokens are written back to the session.
// Returns 401 with the standard error format otherwise.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := CurrentSession(c)
		if sess == nil || sess.Tokens.AccessToken == "" {
			return response.Unauthorized(c, "Not signed in")
		}
		if sess.Tokens.ExpiresAt.IsZero() || !sess.Tokens.ExpiresAt.Before(now()) {
			return c.Next()
		}
		if cfg.Refresher != nil && sess.Tokens.RefreshToken != "" {
			tok, err := cfg.Refresher.Refresh(c.UserContext(), sess.Tokens.RefreshToken)
			if err == nil {
				renewed := *sess
				renewed.Tokens = *tok
				SetSessionUser(c, &renewed)
				return c.Next()
			}
			log.Info().Err(err).Str("user_id", sess.UserID).Msg("token refresh failed")
		}
		SetSessionUser(c, nil)
		if cfg.OnExpired != nil {
			cfg.OnExpired(sess.UserID)
		}
		return response.Unauthorized(c, "Session expired. Please sign in again.")
	}
}

// AccessChecker is the part of the shared-password guard the middleware needs.
type AccessChecker interface {
	Enabled() bool
}

// RequireAccess blocks sessions that have not passed the shared-password
// screen. A disabled guard admits everyone.
func RequireAccess(guard AccessChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if guard == nil || !guard.Enabled() || AccessGranted(c) {
			return c.Next()
		}
		return response.Forbidden(c, "Access password required")
	}
}
