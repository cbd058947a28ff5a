package auth

import (
	"errors"

	"epos-backend/internal/domain"
)

// Error is a provider failure rewritten for display. Name is the vendor
// error name, empty for transport failures.
type Error struct {
	Name    string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

var friendlyMessages = map[string]string{
	"UserNotFoundException":     "User not found. Please check your email address or sign up for a new account.",
	"NotAuthorizedException":    "Incorrect password. Please try again.",
	"UserNotConfirmedException": "Please confirm your email address before signing in.",
	"InvalidPasswordException":  "Password does not meet requirements",
	"UsernameExistsException":   "An account with this email already exists.",
	"CodeMismatchException":     "Invalid verification code. Please try again.",
	"ExpiredCodeException":      "Verification code has expired. Please request a new one.",
}

// Friendly maps a provider error to user-facing text. Known vendor names get
// a fixed message; anything else reads "<action> failed: <message>".
func Friendly(action string, err error) error {
	if err == nil {
		return nil
	}
	name := ""
	var idErr *domain.IdentityError
	if errors.As(err, &idErr) {
		name = idErr.Name
	}
	if msg, ok := friendlyMessages[name]; ok {
		return &Error{Name: name, Message: msg, Err: err}
	}
	msg := err.Error()
	if action != "" {
		msg = action + " failed: " + msg
	}
	return &Error{Name: name, Message: msg, Err: err}
}
