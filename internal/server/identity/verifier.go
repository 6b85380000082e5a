// Package identity verifies identity assertions issued by Google and runs the
// OAuth2 authorization-code flow that produces them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// GoogleIssuers are the issuer values Google puts in ID tokens.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

const certsFetchTimeout = 10 * time.Second

// Claims is the verified subset of an identity assertion.
type Claims struct {
	Email         string
	Subject       string
	DisplayName   string
	EmailVerified bool
}

// Verifier turns a raw identity token into verified claims. Any failure is
// reported as common.ErrInvalidToken.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// TokenValidator checks signature, expiry and audience of an ID token.
// *idtoken.Validator satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier validates Google ID tokens against Google's published keys
// for a fixed audience (the OAuth client id).
type GoogleVerifier struct {
	validator TokenValidator
	audience  string
	issuers   []string
}

// NewGoogleVerifier builds a verifier that downloads signing keys with
// httpClient (nil means a client with a 10s timeout).
func NewGoogleVerifier(ctx context.Context, audience string, httpClient *http.Client) (*GoogleVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: certsFetchTimeout}
	}
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("id token validator: %w", err)
	}
	return NewVerifier(v, audience, GoogleIssuers)
}

// NewVerifier wires an arbitrary TokenValidator.
func NewVerifier(v TokenValidator, audience string, issuers []string) (*GoogleVerifier, error) {
	if audience == "" {
		return nil, errors.New("identity verifier: audience is required")
	}
	return &GoogleVerifier{validator: v, audience: audience, issuers: issuers}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	payload, err := g.validator.Validate(ctx, token, g.audience)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if len(g.issuers) > 0 && !slices.Contains(g.issuers, payload.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", common.ErrInvalidToken, payload.Issuer)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	return &Claims{
		Email:         stringClaim(payload.Claims, "email"),
		Subject:       payload.Subject,
		DisplayName:   stringClaim(payload.Claims, "name"),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
	}, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

// email_verified comes as a JSON bool, older tokens used the string "true".
func boolClaim(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
