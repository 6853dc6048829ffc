// Package provider signs users in through a third-party OpenID Connect
// provider using the authorization code flow with PKCE. The provider's ID
// token becomes the session token and is verified locally on each request.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/failuretoload/datamonster-web/internal/platform/timeouts"
	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

// Config configures the provider strategy.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	// RedirectURL is the absolute callback URL registered with the provider.
	RedirectURL string
	Scopes      []string
	// PublicKeyPEM verifies ID token signatures (RSA, ECDSA or Ed25519).
	PublicKeyPEM string
	Issuer       string
	// Audience defaults to ClientID.
	Audience string
	// RevocationURL is the optional RFC 7009 endpoint.
	RevocationURL string
	HTTPClient    *http.Client
}

// Strategy implements auth.Strategy against an OIDC provider.
type Strategy struct {
	oauth      oauth2.Config
	verifier   *TokenVerifier
	flows      *pendingFlows
	revokeURL  string
	httpClient *http.Client
}

var _ auth.Strategy = (*Strategy)(nil)

// New validates cfg and builds the strategy.
func New(cfg Config) (*Strategy, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		return nil, errors.New("provider client id is required")
	}
	for name, raw := range map[string]string{"auth url": cfg.AuthURL, "token url": cfg.TokenURL, "redirect url": cfg.RedirectURL} {
		if _, err := url.ParseRequestURI(strings.TrimSpace(raw)); err != nil {
			return nil, fmt.Errorf("provider %s is invalid: %q", name, raw)
		}
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = cfg.ClientID
	}
	verifier, err := NewTokenVerifier(cfg.PublicKeyPEM, cfg.Issuer, audience)
	if err != nil {
		return nil, err
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Strategy{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL},
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:   verifier,
		flows:      newPendingFlows(timeouts.PendingFlow),
		revokeURL:  strings.TrimSpace(cfg.RevocationURL),
		httpClient: client,
	}, nil
}

// Name identifies the strategy in logs.
func (s *Strategy) Name() string { return "provider" }

// Prompt starts a pending flow bound to the browser session and returns the
// authorization URL.
func (s *Strategy) Prompt(_ context.Context, cell *session.Cell, next string) (auth.Prompt, error) {
	if cell == nil || cell.ID() == "" {
		return auth.Prompt{}, errors.New("browser session is required to start sign-in")
	}
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	s.flows.put(state, pendingFlow{sessionID: cell.ID(), verifier: verifier, next: next})
	authURL := s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	return auth.Prompt{Kind: auth.PromptRedirect, URL: authURL}, nil
}

// CurrentUser verifies the stored token locally. A token that fails
// verification is cleared.
func (s *Strategy) CurrentUser(ctx context.Context, cell *session.Cell) (auth.User, error) {
	token, ok := cell.Token(ctx)
	if !ok {
		return auth.User{}, auth.ErrNoToken
	}
	user, err := s.verifier.Verify(token)
	if err == nil {
		return user, nil
	}
	if _, clearErr := cell.ClearIf(ctx, token); clearErr != nil {
		log.Printf("auth: clear invalid session: %v", clearErr)
	}
	return auth.User{}, fmt.Errorf("%w: %v", auth.ErrSessionInvalid, err)
}

// SignIn completes the callback: the state must match a pending flow of the
// same browser session, and the code is exchanged with its PKCE verifier.
func (s *Strategy) SignIn(ctx context.Context, cell *session.Cell, credential auth.Credential) (auth.User, string, error) {
	if strings.TrimSpace(credential.Code) == "" || strings.TrimSpace(credential.State) == "" {
		return auth.User{}, "", fmt.Errorf("%w: code and state are required", auth.ErrAuthentication)
	}
	flow, ok := s.flows.take(credential.State)
	if !ok || cell == nil || flow.sessionID != cell.ID() {
		return auth.User{}, "", fmt.Errorf("%w: unknown or expired sign-in flow", auth.ErrAuthentication)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.oauth.Exchange(ctx, credential.Code, oauth2.VerifierOption(flow.verifier))
	if err != nil {
		return auth.User{}, "", fmt.Errorf("%w: exchange code: %v", auth.ErrAuthentication, err)
	}
	sessionToken := tok.AccessToken
	if idToken, ok := tok.Extra("id_token").(string); ok && strings.TrimSpace(idToken) != "" {
		sessionToken = idToken
	}
	user, err := s.verifier.Verify(sessionToken)
	if err != nil {
		return auth.User{}, "", fmt.Errorf("%w: %v", auth.ErrAuthentication, err)
	}
	if err := cell.Set(ctx, sessionToken); err != nil {
		return auth.User{}, "", fmt.Errorf("store session token: %w", err)
	}
	return user, flow.next, nil
}

// SignOut revokes the token at the provider when a revocation endpoint is
// configured. Revocation failures are logged only.
func (s *Strategy) SignOut(ctx context.Context, cell *session.Cell, _ auth.User) auth.SignOutResult {
	token, ok := cell.Token(ctx)
	if ok && s.revokeURL != "" {
		if err := s.revoke(ctx, token); err != nil {
			log.Printf("auth: revoke provider token: %v", err)
		}
	}
	return auth.SignOutResult{}
}

func (s *Strategy) revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.BackendRequest)
	defer cancel()
	form := url.Values{"token": {token}, "client_id": {s.oauth.ClientID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.oauth.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(s.oauth.ClientID), url.QueryEscape(s.oauth.ClientSecret))
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation status %d", resp.StatusCode)
	}
	return nil
}

type pendingFlow struct {
	sessionID string
	verifier  string
	next      string
	created   time.Time
}
