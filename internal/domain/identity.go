package domain

import "time"

// Tokens are the credentials issued by the identity provider at sign-in.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UserID     string            `json:"user_id"`
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Session is what a request carries once the user has signed in.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Tokens   Tokens `json:"tokens"`
}

// SignUpResult reports whether the new account still needs a confirmation code.
type SignUpResult struct {
	UserID           string `json:"user_id"`
	UserConfirmed    bool   `json:"user_confirmed"`
	CodeDeliveryTo   string `json:"code_delivery_to,omitempty"`
	CodeDeliveryType string `json:"code_delivery_type,omitempty"`
}

// IdentityError carries the vendor error name (e.g. "NotAuthorizedException")
// so callers can pick a friendlier message.
type IdentityError struct {
	Name    string
	Message string
}

func (e *IdentityError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Message
}
