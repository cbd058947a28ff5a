package auth

import (
	"context"
	"errors"
	"strings"

	"epos-backend/internal/domain"
	"epos-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
)

var (
	ErrTermsNotAccepted   = errors.New("You must accept the Terms and Conditions to create an account.")
	ErrCredentialsMissing = errors.New("Email and password are required to create an account.")
	ErrInvalidEmail       = errors.New("Please enter a valid email address.")
	ErrPasswordMismatch   = errors.New("New passwords do not match")
	ErrPasswordTooShort   = errors.New("Password must be at least 8 characters long")
	ErrNoSession          = errors.New("Not signed in")
)

// Provider is the identity provider contract (Cognito in production).
type Provider interface {
	SignUp(ctx context.Context, email, password string, attrs map[string]string) (*domain.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
	SignIn(ctx context.Context, email, password string) (*domain.Tokens, error)
	CurrentUser(ctx context.Context, accessToken string) (*domain.Identity, error)
	UpdateAttributes(ctx context.Context, accessToken string, attrs map[string]string) error
	ChangePassword(ctx context.Context, accessToken, previous, proposed string) error
	SignOut(ctx context.Context, accessToken string) error
}

// editableAttributes are the user attributes the profile page may change.
var editableAttributes = map[string]bool{
	"given_name":  true,
	"family_name": true,
}

type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	AcceptTerms bool   `json:"acceptTerms"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type Service struct {
	Provider Provider
}

func NewService(p Provider) *Service {
	return &Service{Provider: p}
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*domain.SignUpResult, error) {
	if !in.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrCredentialsMissing
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	attrs := map[string]string{}
	if in.FirstName != "" {
		attrs["given_name"] = in.FirstName
	}
	if in.LastName != "" {
		attrs["family_name"] = in.LastName
	}
	res, err := s.Provider.SignUp(ctx, email, in.Password, attrs)
	if err != nil {
		return nil, Friendly("Sign-up", err)
	}
	log.Info().Str("userId", res.UserID).Bool("confirmed", res.UserConfirmed).Msg("sign-up accepted")
	return res, nil
}

func (s *Service) ConfirmSignUp(ctx context.Context, email, code string) error {
	if err := s.Provider.ConfirmSignUp(ctx, strings.TrimSpace(email), strings.TrimSpace(code)); err != nil {
		return Friendly("Confirmation", err)
	}
	return nil
}

func (s *Service) ResendCode(ctx context.Context, email string) error {
	if err := s.Provider.ResendCode(ctx, strings.TrimSpace(email)); err != nil {
		return Friendly("", err)
	}
	return nil
}

// SignIn authenticates and resolves the user behind the new tokens.
func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	tokens, err := s.Provider.SignIn(ctx, email, password)
	if err != nil {
		log.Warn().Str("email", email).Err(err).Msg("sign-in failed")
		return nil, Friendly("Sign-in", err)
	}
	id, err := s.Provider.CurrentUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, Friendly("Sign-in", err)
	}
	return &domain.Session{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    firstNonEmpty(id.Email, email),
		Tokens:   *tokens,
	}, nil
}

// CurrentUser is the session lookup; it fails once tokens are revoked or expired.
func (s *Service) CurrentUser(ctx context.Context, sess *domain.Session) (*domain.Identity, error) {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return nil, ErrNoSession
	}
	return s.Provider.CurrentUser(ctx, sess.Tokens.AccessToken)
}

// UpdateAttributes changes the editable name attributes; other keys are ignored.
func (s *Service) UpdateAttributes(ctx context.Context, sess *domain.Session, attrs map[string]string) (map[string]string, error) {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return nil, ErrNoSession
	}
	updates := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if editableAttributes[k] {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return updates, nil
	}
	if err := s.Provider.UpdateAttributes(ctx, sess.Tokens.AccessToken, updates); err != nil {
		return nil, Friendly("Update", err)
	}
	return updates, nil
}

func (s *Service) ChangePassword(ctx context.Context, sess *domain.Session, in ChangePasswordInput) error {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return ErrNoSession
	}
	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(in.NewPassword) < 8 {
		return ErrPasswordTooShort
	}
	err := s.Provider.ChangePassword(ctx, sess.Tokens.AccessToken, in.CurrentPassword, in.NewPassword)
	if err == nil {
		return nil
	}
	var idErr *domain.IdentityError
	if errors.As(err, &idErr) && idErr.Name == "NotAuthorizedException" {
		return &Error{Name: idErr.Name, Message: "Current password is incorrect", Err: err}
	}
	return Friendly("Update", err)
}

// SignOut revokes the tokens. A provider failure is logged only; the caller
// drops the local session either way.
func (s *Service) SignOut(ctx context.Context, sess *domain.Session) {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return
	}
	if err := s.Provider.SignOut(ctx, sess.Tokens.AccessToken); err != nil {
		log.Warn().Str("userId", sess.UserID).Err(err).Msg("global sign-out failed")
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
