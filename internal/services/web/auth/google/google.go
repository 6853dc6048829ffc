// Package google signs users in with Google Identity Services: the browser
// obtains a Google ID token, the campaign backend exchanges it for an
// application token, and the backend validates that token on later requests.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

const (
	exchangePath = "/auth/google"
	validatePath = "/auth/validate"
	// maxBodyBytes bounds auth responses read from the backend.
	maxBodyBytes = 1 << 20
)

// profile is the user payload shared by the exchange and validate responses.
type profile struct {
	Token   string `json:"token"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p profile) user() auth.User {
	return auth.User{
		ID:      strings.TrimSpace(p.UserID),
		Email:   strings.TrimSpace(p.Email),
		Name:    strings.TrimSpace(p.Name),
		Picture: strings.TrimSpace(p.Picture),
	}
}

// Exchanger trades a Google credential for an application session token.
type Exchanger struct {
	url    string
	client *http.Client
}

// NewExchanger targets {apiBaseURL}/auth/google.
func NewExchanger(apiBaseURL string, client *http.Client) *Exchanger {
	if client == nil {
		client = http.DefaultClient
	}
	return &Exchanger{url: strings.TrimRight(apiBaseURL, "/") + exchangePath, client: client}
}

// Exchange posts the credential and, on success only, writes the returned
// token to the cell. Any failure is an auth.ErrAuthentication error and
// leaves the cell untouched.
func (e *Exchanger) Exchange(ctx context.Context, cell *session.Cell, credential string) (auth.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return auth.User{}, fmt.Errorf("%w: credential is required", auth.ErrAuthentication)
	}
	body, err := json.Marshal(map[string]string{"credential": credential})
	if err != nil {
		return auth.User{}, fmt.Errorf("%w: encode request: %v", auth.ErrAuthentication, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return auth.User{}, fmt.Errorf("%w: build request: %v", auth.ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out profile
	if err := doJSON(e.client, req, &out); err != nil {
		return auth.User{}, fmt.Errorf("%w: %v", auth.ErrAuthentication, err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return auth.User{}, fmt.Errorf("%w: response carried no token", auth.ErrAuthentication)
	}
	if err := cell.Set(ctx, out.Token); err != nil {
		return auth.User{}, fmt.Errorf("store session token: %w", err)
	}
	return out.user(), nil
}

// Validator checks the stored token against {apiBaseURL}/auth/validate.
type Validator struct {
	url    string
	client *http.Client
}

// NewValidator targets {apiBaseURL}/auth/validate.
func NewValidator(apiBaseURL string, client *http.Client) *Validator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Validator{url: strings.TrimRight(apiBaseURL, "/") + validatePath, client: client}
}

// Validate returns the profile behind the stored token. Without a token it
// returns auth.ErrNoToken and makes no request. A rejected token, a network
// failure or an unreadable response clears the token and returns an
// auth.ErrSessionInvalid error.
func (v *Validator) Validate(ctx context.Context, cell *session.Cell) (auth.User, error) {
	token, ok := cell.Token(ctx)
	if !ok {
		return auth.User{}, auth.ErrNoToken
	}
	user, err := v.fetch(ctx, token)
	if err == nil {
		return user, nil
	}
	if _, clearErr := cell.ClearIf(ctx, token); clearErr != nil {
		log.Printf("auth: clear invalid session: %v", clearErr)
	}
	return auth.User{}, fmt.Errorf("%w: %v", auth.ErrSessionInvalid, err)
}

func (v *Validator) fetch(ctx context.Context, token string) (auth.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return auth.User{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	var out profile
	if err := doJSON(v.client, req, &out); err != nil {
		return auth.User{}, err
	}
	user := out.user()
	if user.ID == "" && user.Email == "" {
		return auth.User{}, errors.New("response carried no user")
	}
	return user, nil
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
