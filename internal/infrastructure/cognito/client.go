package cognito

import (
	"context"
	"errors"
	"time"

	"epos-backend/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the Cognito user pool client used here.
type API interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	UpdateUserAttributes(ctx context.Context, in *cip.UpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error)
	ChangePassword(ctx context.Context, in *cip.ChangePasswordInput, optFns ...func(*cip.Options)) (*cip.ChangePasswordOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Client is the identity provider backed by a Cognito user pool app client.
type Client struct {
	API      API
	ClientID string
	Now      func() time.Time
}

// New builds a Client for the given region. The user pool APIs used here
// are public, so requests go out with anonymous credentials.
func New(ctx context.Context, region, clientID string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, err
	}
	return &Client{API: cip.NewFromConfig(cfg), ClientID: clientID, Now: time.Now}, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, attrs map[string]string) (*domain.SignUpResult, error) {
	userAttrs := []types.AttributeType{{Name: aws.String("email"), Value: aws.String(email)}}
	userAttrs = append(userAttrs, toAttributes(attrs)...)
	out, err := c.API.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(c.ClientID),
		Username:       aws.String(email),
		Password:       aws.String(password),
		UserAttributes: userAttrs,
	})
	if err != nil {
		return nil, convertError(err)
	}
	res := &domain.SignUpResult{
		UserID:        aws.ToString(out.UserSub),
		UserConfirmed: out.UserConfirmed,
	}
	if d := out.CodeDeliveryDetails; d != nil {
		res.CodeDeliveryTo = aws.ToString(d.Destination)
		res.CodeDeliveryType = string(d.DeliveryMedium)
	}
	return res, nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.API.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.ClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	return convertError(err)
}

func (c *Client) ResendCode(ctx context.Context, email string) error {
	_, err := c.API.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId: aws.String(c.ClientID),
		Username: aws.String(email),
	})
	return convertError(err)
}

// SignIn runs the USER_PASSWORD_AUTH flow. Challenges (MFA, new password)
// are reported as an IdentityError named "ChallengeRequired".
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Tokens, error) {
	out, err := c.API.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.ClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, convertError(err)
	}
	if out.AuthenticationResult == nil {
		return nil, &domain.IdentityError{
			Name:    "ChallengeRequired",
			Message: "Additional sign-in step required: " + string(out.ChallengeName),
		}
	}
	return c.tokens(out.AuthenticationResult), nil
}

// Refresh trades a refresh token for new access and ID tokens through the
// REFRESH_TOKEN_AUTH flow. Cognito does not rotate the refresh token, so the
// one passed in is kept.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Tokens, error) {
	out, err := c.API.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.ClientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, convertError(err)
	}
	if out.AuthenticationResult == nil {
		return nil, &domain.IdentityError{Name: "NotAuthorizedException", Message: "Refresh token rejected"}
	}
	tok := c.tokens(out.AuthenticationResult)
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *Client) tokens(r *types.AuthenticationResultType) *domain.Tokens {
	return &domain.Tokens{
		AccessToken:  aws.ToString(r.AccessToken),
		IDToken:      aws.ToString(r.IdToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		ExpiresAt:    c.now().Add(time.Duration(r.ExpiresIn) * time.Second),
	}
}

// CurrentUser resolves the access token to its user; an expired or revoked
// token fails with NotAuthorizedException.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	out, err := c.API.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return nil, convertError(err)
	}
	attrs := make(map[string]string, len(out.UserAttributes))
	for _, a := range out.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return &domain.Identity{
		UserID:     attrs["sub"],
		Username:   aws.ToString(out.Username),
		Email:      attrs["email"],
		Attributes: attrs,
	}, nil
}

func (c *Client) UpdateAttributes(ctx context.Context, accessToken string, attrs map[string]string) error {
	_, err := c.API.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken:    aws.String(accessToken),
		UserAttributes: toAttributes(attrs),
	})
	return convertError(err)
}

func (c *Client) ChangePassword(ctx context.Context, accessToken, previous, proposed string) error {
	_, err := c.API.ChangePassword(ctx, &cip.ChangePasswordInput{
		AccessToken:      aws.String(accessToken),
		PreviousPassword: aws.String(previous),
		ProposedPassword: aws.String(proposed),
	})
	return convertError(err)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.API.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(accessToken)})
	return convertError(err)
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func toAttributes(attrs map[string]string) []types.AttributeType {
	out := make([]types.AttributeType, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, types.AttributeType{Name: aws.String(k), Value: aws.String(v)})
	}
	return out
}

// convertError keeps the service error name so the auth service can map it.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &domain.IdentityError{Name: apiErr.ErrorCode(), Message: apiErr.ErrorMessage()}
	}
	return err
}
