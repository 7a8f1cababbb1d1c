// Package googleauth runs the Google sign-in leg: a standard OAuth2
// authorization-code flow that yields the id token the backend
// exchanges for a parking session. The backend does its own
// verification; the tokeninfo check here only catches obvious garbage
// before a round trip.
package googleauth

import (
	"context"
	"fmt"

	"gridee/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Tokens is what the backend's /oauth2/google/authenticate expects.
type Tokens struct {
	IDToken     string
	AccessToken string
}

type Flow struct {
	oauth    *oauth2.Config
	clientID string
	// overridden in tests to point tokeninfo at a fake
	serviceOpts []option.ClientOption
}

func NewFlow(cfg config.GoogleConfig) (*Flow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google client id and secret are required")
	}
	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  "http://localhost:8765/callback",
			Scopes:       []string{"openid", "email", "profile"},
		},
		clientID: cfg.ClientID,
	}, nil
}

// AuthURL returns the consent page URL the user opens in a browser.
func (f *Flow) AuthURL(state string) string {
	return f.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for Google tokens.
func (f *Flow) Exchange(ctx context.Context, code string) (Tokens, error) {
	if code == "" {
		return Tokens{}, fmt.Errorf("authorization code is required")
	}
	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return Tokens{}, fmt.Errorf("google response carried no id token")
	}
	return Tokens{IDToken: idToken, AccessToken: token.AccessToken}, nil
}

// ExchangeAndVerify trades the authorization code for tokens and
// rejects ids that fail the tokeninfo check, so nothing unvetted
// reaches the backend.
func (f *Flow) ExchangeAndVerify(ctx context.Context, code string) (Tokens, error) {
	tokens, err := f.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, err
	}
	if _, err := f.VerifyIDToken(ctx, tokens.IDToken); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

// VerifyIDToken checks the id token against Google's tokeninfo
// endpoint and that it was issued to our client id. Returns the
// token's email on success.
func (f *Flow) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	opts := append([]option.ClientOption{option.WithoutAuthentication()}, f.serviceOpts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create tokeninfo service: %w", err)
	}

	info, err := svc.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("token rejected by google: %w", err)
	}
	if info.Audience != f.clientID {
		return "", fmt.Errorf("token issued for a different client")
	}
	return info.Email, nil
}
