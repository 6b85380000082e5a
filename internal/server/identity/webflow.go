package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// exchangeTimeout bounds the code-for-token round trip to the provider.
const exchangeTimeout = 10 * time.Second

// ErrExchangeFailed is returned when the provider rejects the authorization
// code or cannot be reached.
var ErrExchangeFailed = errors.New("oauth2 code exchange failed")

// Scopes requested from Google.
var Scopes = []string{"openid", "email", "profile"}

// WebFlow drives the browser sign-in: it builds the consent URL and turns the
// returned authorization code into verified claims. The ID token from the
// token response goes through the same Verifier as mobile sign-ins.
type WebFlow struct {
	config   *oauth2.Config
	verifier Verifier
}

// NewGoogleWebFlow configures the flow against Google's endpoints.
func NewGoogleWebFlow(clientID, clientSecret, redirectURL string, verifier Verifier) *WebFlow {
	return NewWebFlow(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}, verifier)
}

func NewWebFlow(cfg *oauth2.Config, verifier Verifier) *WebFlow {
	return &WebFlow{config: cfg, verifier: verifier}
}

// AuthCodeURL returns the provider consent URL bound to state.
func (f *WebFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange redeems code and verifies the returned ID token.
func (f *WebFlow) Exchange(ctx context.Context, code string) (*Claims, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrExchangeFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", common.ErrInvalidToken)
	}

	return f.verifier.Verify(ctx, rawIDToken)
}
