package auth

import (
	"context"
	"errors"

	authsvc "epos-backend/internal/application/auth"
	"epos-backend/internal/domain"
	"epos-backend/internal/middleware"
	"epos-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const userSessionsPrefix = "user_sessions:"

// ProfileStates is opened on sign-in and closed on sign-out.
type ProfileStates interface {
	Open(userID string)
	Close(userID string)
}

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	States  ProfileStates
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SignUp POST /api/v1/auth/sign-up
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req authsvc.SignUpInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrCredentialsMissing.Error(), fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.SignUp(c.UserContext(), req)
	if err != nil {
		return authError(c, err)
	}
	msg := "Account created. Check your email for a confirmation code."
	if res.UserConfirmed {
		msg = "Account created"
	}
	return response.SuccessCreated(c, msg, fiber.Map{"signUp": res}, nil)
}

// ConfirmSignUp POST /api/v1/auth/confirm
func (h *Handlers) ConfirmSignUp(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Code == "" {
		return response.Error(c, "Email and confirmation code are required", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.ConfirmSignUp(c.UserContext(), req.Email, req.Code); err != nil {
		return authError(c, err)
	}
	return response.Success(c, "Email confirmed. You can now sign in.", nil, nil)
}

// ResendCode POST /api/v1/auth/resend-code
func (h *Handlers) ResendCode(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Error(c, "Email is required", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.ResendCode(c.UserContext(), req.Email); err != nil {
		return authError(c, err)
	}
	return response.Success(c, "Confirmation code sent", nil, nil)
}

// SignIn POST /api/v1/auth/sign-in. The session id is rotated and tracked
// under user_sessions:<user>.
func (h *Handlers) SignIn(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	sess, err := h.Service.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return authError(c, err)
	}

	ctx := c.UserContext()
	if old := middleware.GetSessionID(c); old != "" && h.Rdb != nil {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+old).Err()
	}
	sid := middleware.IssueSessionCookie(c, h.Config)
	middleware.SetSessionUser(c, sess)
	if h.Rdb != nil {
		if err := h.Rdb.SAdd(ctx, userSessionsPrefix+sess.UserID, sid).Err(); err != nil {
			middleware.Logger(c).Warn().Err(err).Msg("could not track session")
		}
	}
	if h.States != nil {
		h.States.Open(sess.UserID)
	}
	middleware.Logger(c).Info().Str("user_id", sess.UserID).Msg("signed in")
	return response.Success(c, "Signed in", fiber.Map{"user": publicUser(sess)}, nil)
}

// Me GET /api/v1/auth/me. The session lookup against the identity provider.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	id, err := h.Service.CurrentUser(c.UserContext(), sess)
	if err != nil {
		middleware.Logger(c).Info().Err(err).Bool("session_user_nil", sess == nil).Msg("auth/me: not authenticated")
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": id}, nil)
}

// UpdateAttributes PATCH /api/v1/auth/attributes
func (h *Handlers) UpdateAttributes(c *fiber.Ctx) error {
	var attrs map[string]string
	if err := c.BodyParser(&attrs); err != nil {
		return response.Error(c, "Invalid attributes", fiber.StatusBadRequest, nil)
	}
	updated, err := h.Service.UpdateAttributes(c.UserContext(), middleware.CurrentSession(c), attrs)
	if err != nil {
		return authError(c, err)
	}
	return response.Success(c, "Profile updated", fiber.Map{"attributes": updated}, nil)
}

// ChangePassword POST /api/v1/auth/change-password
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	var req authsvc.ChangePasswordInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Current and new password are required", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.ChangePassword(c.UserContext(), middleware.CurrentSession(c), req); err != nil {
		// A wrong current password must not read as a dead session.
		var ae *authsvc.Error
		if errors.As(err, &ae) && ae.Name == "NotAuthorizedException" {
			return response.Error(c, ae.Message, fiber.StatusBadRequest, nil)
		}
		return authError(c, err)
	}
	return response.Success(c, "Password changed successfully", nil, nil)
}

// SignOut DELETE /api/v1/auth/sign-out. Token revocation is global, so every
// session of the user is dropped.
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	sess := middleware.CurrentSession(c)
	ctx := c.UserContext()
	h.Service.SignOut(ctx, sess)

	if sess != nil {
		if h.States != nil {
			h.States.Close(sess.UserID)
		}
		if h.Rdb != nil {
			h.dropUserSessions(ctx, sess.UserID)
		}
	}
	if sid := middleware.GetSessionID(c); sid != "" && h.Rdb != nil {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sid).Err()
	}
	middleware.DestroySession(c)
	middleware.ClearSessionCookie(c, h.Config)
	return response.Success(c, "Signed out successfully", nil, nil)
}

func (h *Handlers) dropUserSessions(ctx context.Context, userID string) {
	key := userSessionsPrefix + userID
	sids, err := h.Rdb.SMembers(ctx, key).Result()
	if err != nil {
		return
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, middleware.SessionRedisPrefix+sid)
	}
	keys = append(keys, key)
	_ = h.Rdb.Del(ctx, keys...).Err()
}

func publicUser(sess *domain.Session) fiber.Map {
	return fiber.Map{
		"user_id":  sess.UserID,
		"username": sess.Username,
		"email":    sess.Email,
	}
}

// authError maps auth service failures to status codes.
func authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authsvc.ErrNoSession):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, authsvc.ErrTermsNotAccepted),
		errors.Is(err, authsvc.ErrCredentialsMissing),
		errors.Is(err, authsvc.ErrInvalidEmail),
		errors.Is(err, authsvc.ErrPasswordMismatch),
		errors.Is(err, authsvc.ErrPasswordTooShort):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	var ae *authsvc.Error
	if !errors.As(err, &ae) {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	details := map[string]interface{}{"name": ae.Name}
	switch ae.Name {
	case "":
		middleware.Logger(c).Error().Err(err).Msg("identity provider unreachable")
		return response.Error(c, ae.Message, fiber.StatusBadGateway, nil)
	case "NotAuthorizedException", "UserNotFoundException":
		return response.Error(c, ae.Message, fiber.StatusUnauthorized, details)
	case "UserNotConfirmedException":
		return response.Error(c, ae.Message, fiber.StatusForbidden, details)
	case "UsernameExistsException":
		return response.Error(c, ae.Message, fiber.StatusConflict, details)
	case "TooManyRequestsException", "LimitExceededException":
		return response.Error(c, ae.Message, fiber.StatusTooManyRequests, details)
	default:
		return response.Error(c, ae.Message, fiber.StatusBadRequest, details)
	}
}
