// Package auth resolves who the browser session belongs to.
//
// A Strategy knows one way of signing in (Google credential exchange or a
// third-party identity provider). A Context drives one request through the
// initializing, authenticated and unauthenticated states using the chosen
// strategy, and Guard gates protected routes on it.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

var (
	// ErrNoToken means the session store holds no token. Validators return it
	// without touching the network.
	ErrNoToken = errors.New("no session token")
	// ErrAuthentication means a sign-in credential was rejected. The session
	// store is left unchanged.
	ErrAuthentication = errors.New("authentication rejected")
	// ErrSessionInvalid means a stored token failed validation and was
	// cleared.
	ErrSessionInvalid = errors.New("session invalid")
)

// User is the authenticated person. Name and Picture may be empty.
type User struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// DisplayName returns the name, falling back to the e-mail address.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return strings.TrimSpace(u.Email)
}

// Credential carries whatever the strategy's sign-in step produced: a Google
// ID token, or an authorization code with its state.
type Credential struct {
	IDToken string
	Code    string
	State   string
}

// PromptKind selects how the sign-in page renders.
type PromptKind string

const (
	// PromptGoogleButton renders the Google Identity Services button.
	PromptGoogleButton PromptKind = "google_button"
	// PromptRedirect sends the browser to the identity provider.
	PromptRedirect PromptKind = "redirect"
)

// Prompt describes the sign-in affordance.
type Prompt struct {
	Kind PromptKind
	// ClientID is the Google OAuth client id for the button.
	ClientID string
	// LoginURI is where Google posts the credential.
	LoginURI string
	// URL is the identity-provider authorization URL.
	URL string
}

// SignOutResult tells the signed-out page what the browser still has to do.
type SignOutResult struct {
	// RevokeHint asks Google Identity Services to revoke the grant for this
	// account.
	RevokeHint string
	// ClientID accompanies RevokeHint.
	ClientID string
}

// Strategy is one sign-in mechanism. Implementations write the token to the
// cell on successful sign-in and clear it on failed validation or sign-out.
type Strategy interface {
	Name() string
	// Prompt prepares the sign-in affordance for the browser session. next
	// is where to land after signing in.
	Prompt(ctx context.Context, cell *session.Cell, next string) (Prompt, error)
	// CurrentUser validates the stored token. It returns ErrNoToken when
	// there is none and an ErrSessionInvalid error after clearing a bad one.
	CurrentUser(ctx context.Context, cell *session.Cell) (User, error)
	// SignIn exchanges the credential and stores the resulting token. It
	// returns the next path recorded by Prompt when there is one.
	SignIn(ctx context.Context, cell *session.Cell, credential Credential) (User, string, error)
	// SignOut revokes the token where possible. The caller clears the
	// session afterwards.
	SignOut(ctx context.Context, cell *session.Cell, user User) SignOutResult
}
