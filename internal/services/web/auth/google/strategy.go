package google

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

// Config configures the Google strategy.
type Config struct {
	// ClientID is the Google OAuth client id rendered into the button.
	ClientID string
	// APIBaseURL is the campaign backend that exchanges and validates tokens.
	APIBaseURL string
	// LoginURI is the absolute or root-relative URL Google posts the
	// credential to.
	LoginURI string
	// HTTPClient is used for backend calls.
	HTTPClient *http.Client
}

// Strategy implements auth.Strategy over the campaign backend.
type Strategy struct {
	clientID  string
	loginURI  string
	exchanger *Exchanger
	validator *Validator
}

var _ auth.Strategy = (*Strategy)(nil)

// New validates cfg and builds the strategy.
func New(cfg Config) (*Strategy, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	if cfg.ClientID == "" {
		return nil, errors.New("google client id is required")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api base url is required")
	}
	if strings.TrimSpace(cfg.LoginURI) == "" {
		cfg.LoginURI = exchangePath
	}
	return &Strategy{
		clientID:  cfg.ClientID,
		loginURI:  cfg.LoginURI,
		exchanger: NewExchanger(cfg.APIBaseURL, cfg.HTTPClient),
		validator: NewValidator(cfg.APIBaseURL, cfg.HTTPClient),
	}, nil
}

// Name identifies the strategy in logs.
func (s *Strategy) Name() string { return "google" }

// Prompt renders the Google button.
func (s *Strategy) Prompt(context.Context, *session.Cell, string) (auth.Prompt, error) {
	return auth.Prompt{Kind: auth.PromptGoogleButton, ClientID: s.clientID, LoginURI: s.loginURI}, nil
}

// CurrentUser validates the stored token with the backend.
func (s *Strategy) CurrentUser(ctx context.Context, cell *session.Cell) (auth.User, error) {
	return s.validator.Validate(ctx, cell)
}

// SignIn exchanges the Google ID token carried in credential.
func (s *Strategy) SignIn(ctx context.Context, cell *session.Cell, credential auth.Credential) (auth.User, string, error) {
	user, err := s.exchanger.Exchange(ctx, cell, credential.IDToken)
	return user, "", err
}

// SignOut has nothing to revoke server side; the caller clears the token.
// The result carries the account hint for google.accounts.id.revoke.
func (s *Strategy) SignOut(_ context.Context, _ *session.Cell, user auth.User) auth.SignOutResult {
	hint := strings.TrimSpace(user.Email)
	if hint == "" {
		hint = strings.TrimSpace(user.ID)
	}
	return auth.SignOutResult{RevokeHint: hint, ClientID: s.clientID}
}
