package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"epos-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// emailRe is the same loose check the sign-up form uses: /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PasswordSpecials are the characters the plan API accepts as "special".
const PasswordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("pdfpassword", func(fl validator.FieldLevel) bool {
		return PasswordProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	// parseint accepts anything the profile sanitizer can coerce to an integer.
	_ = v.RegisterValidation("parseint", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseInt(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors is returned by Struct; Error() is the first message.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Message
}

// MessageFunc turns one validator failure into user-facing text. Returning
// "" falls back to DefaultMessage.
type MessageFunc func(fe validator.FieldError) string

// Struct validates s and returns Errors (or nil).
func Struct(s interface{}, messages ...MessageFunc) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		msg := ""
		for _, fn := range messages {
			if msg = fn(fe); msg != "" {
				break
			}
		}
		if msg == "" {
			msg = DefaultMessage(fe)
		}
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: msg})
	}
	return out
}

func DefaultMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("Missing required field: %s", fe.Field())
	case "email", "looseemail":
		return "Please enter a valid email address."
	case "pdfpassword":
		return PasswordProblem(fmt.Sprint(fe.Value()))
	case "parseint":
		return fmt.Sprintf("%s must be a whole number", fe.Field())
	case "required_unless", "required_if":
		return fmt.Sprintf("Missing required field: %s", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// PasswordProblem returns the first rule a PDF password breaks, in the order
// the plan API checks them, or "" when the password is acceptable.
func PasswordProblem(password string) string {
	if password == "" {
		return "PDF password is required"
	}
	if len(password) < 8 {
		return "Password must be at least 8 characters long"
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	switch {
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !digit:
		return "Password must contain at least one number"
	case !special:
		return "Password must contain at least one special character"
	}
	return ""
}
