package auth

import (
	"context"
	"errors"
	"testing"

	"epos-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	signUpAttrs map[string]string
	updated     map[string]string
	signInErr   error
	changeErr   error
	signOutErr  error
	signedOut   bool
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string, attrs map[string]string) (*domain.SignUpResult, error) {
	f.signUpAttrs = attrs
	if email == "taken@b.com" {
		return nil, &domain.IdentityError{Name: "UsernameExistsException", Message: "User already exists"}
	}
	return &domain.SignUpResult{UserID: "sub-1"}, nil
}

func (f *fakeProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	if code != "123456" {
		return &domain.IdentityError{Name: "LimitExceededException", Message: "Attempt limit exceeded"}
	}
	return nil
}

func (f *fakeProvider) ResendCode(ctx context.Context, email string) error { return nil }

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*domain.Tokens, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &domain.Tokens{AccessToken: "access", IDToken: "id"}, nil
}

func (f *fakeProvider) CurrentUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	return &domain.Identity{UserID: "sub-1", Username: "sub-1", Email: "a@b.com"}, nil
}

func (f *fakeProvider) UpdateAttributes(ctx context.Context, accessToken string, attrs map[string]string) error {
	f.updated = attrs
	return nil
}

func (f *fakeProvider) ChangePassword(ctx context.Context, accessToken, previous, proposed string) error {
	return f.changeErr
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	f.signedOut = true
	return f.signOutErr
}

func session() *domain.Session {
	return &domain.Session{UserID: "sub-1", Tokens: domain.Tokens{AccessToken: "access"}}
}

func TestSignIn_FriendlyMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&domain.IdentityError{Name: "UserNotFoundException"}, "User not found. Please check your email address or sign up for a new account."},
		{&domain.IdentityError{Name: "NotAuthorizedException", Message: "Incorrect username or password."}, "Incorrect password. Please try again."},
		{&domain.IdentityError{Name: "UserNotConfirmedException"}, "Please confirm your email address before signing in."},
		{&domain.IdentityError{Name: "TooManyRequestsException", Message: "Rate exceeded"}, "Sign-in failed: Rate exceeded"},
		{errors.New("dial tcp: timeout"), "Sign-in failed: dial tcp: timeout"},
	}
	for _, tc := range cases {
		svc := NewService(&fakeProvider{signInErr: tc.err})
		_, err := svc.SignIn(context.Background(), "a@b.com", "pw")
		assert.EqualError(t, err, tc.want)
		assert.ErrorIs(t, err, tc.err)
	}
}

func TestSignIn_BuildsSession(t *testing.T) {
	svc := NewService(&fakeProvider{})
	sess, err := svc.SignIn(context.Background(), " a@b.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sess.UserID)
	assert.Equal(t, "a@b.com", sess.Email)
	assert.Equal(t, "access", sess.Tokens.AccessToken)
}

func TestSignUp_Validation(t *testing.T) {
	svc := NewService(&fakeProvider{})
	_, err := svc.SignUp(context.Background(), SignUpInput{Email: "a@b.com", Password: "x"})
	assert.ErrorIs(t, err, ErrTermsNotAccepted)
	_, err = svc.SignUp(context.Background(), SignUpInput{AcceptTerms: true, Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrCredentialsMissing)
	_, err = svc.SignUp(context.Background(), SignUpInput{AcceptTerms: true, Email: "a@b", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestSignUp_Attributes(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p)
	res, err := svc.SignUp(context.Background(), SignUpInput{AcceptTerms: true, Email: "a@b.com", Password: "pw", FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", res.UserID)
	assert.Equal(t, map[string]string{"given_name": "Ann"}, p.signUpAttrs)

	_, err = svc.SignUp(context.Background(), SignUpInput{AcceptTerms: true, Email: "taken@b.com", Password: "pw"})
	assert.EqualError(t, err, "An account with this email already exists.")
}

func TestConfirmSignUp_Fallback(t *testing.T) {
	svc := NewService(&fakeProvider{})
	assert.NoError(t, svc.ConfirmSignUp(context.Background(), "a@b.com", "123456"))
	assert.EqualError(t, svc.ConfirmSignUp(context.Background(), "a@b.com", "1"), "Confirmation failed: Attempt limit exceeded")
}

func TestChangePassword(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ChangePassword(ctx, session(), ChangePasswordInput{NewPassword: "a", ConfirmPassword: "b"}), ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ChangePassword(ctx, session(), ChangePasswordInput{NewPassword: "short", ConfirmPassword: "short"}), ErrPasswordTooShort)
	assert.ErrorIs(t, svc.ChangePassword(ctx, nil, ChangePasswordInput{}), ErrNoSession)

	ok := ChangePasswordInput{CurrentPassword: "old", NewPassword: "Longer123!", ConfirmPassword: "Longer123!"}
	assert.NoError(t, svc.ChangePassword(ctx, session(), ok))

	p.changeErr = &domain.IdentityError{Name: "NotAuthorizedException"}
	assert.EqualError(t, svc.ChangePassword(ctx, session(), ok), "Current password is incorrect")
	p.changeErr = &domain.IdentityError{Name: "InvalidPasswordException"}
	assert.EqualError(t, svc.ChangePassword(ctx, session(), ok), "Password does not meet requirements")
	p.changeErr = &domain.IdentityError{Name: "LimitExceededException", Message: "slow down"}
	assert.EqualError(t, svc.ChangePassword(ctx, session(), ok), "Update failed: slow down")
}

func TestUpdateAttributes_OnlyEditable(t *testing.T) {
	p := &fakeProvider{}
	svc := NewService(p)
	got, err := svc.UpdateAttributes(context.Background(), session(), map[string]string{"given_name": "Ann", "email": "x@y.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"given_name": "Ann"}, got)
	assert.Equal(t, got, p.updated)
}

func TestSignOut_IgnoresProviderFailure(t *testing.T) {
	p := &fakeProvider{signOutErr: errors.New("network")}
	svc := NewService(p)
	svc.SignOut(context.Background(), session())
	assert.True(t, p.signedOut)
}
