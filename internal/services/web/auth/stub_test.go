package auth

import (
	"context"
	"sync/atomic"

	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

// stubStrategy validates against a fixed token and counts network calls.
type stubStrategy struct {
	validToken string
	user       User
	block      chan struct{}
	// signInStarted and signInBlock hold SignIn mid-flight when set.
	signInStarted chan struct{}
	signInBlock   chan struct{}

	validateCalls atomic.Int32
	signOutCalls  atomic.Int32
	signInErr     error
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Prompt(context.Context, *session.Cell, string) (Prompt, error) {
	return Prompt{Kind: PromptRedirect, URL: "https://idp.example/authorize"}, nil
}

func (s *stubStrategy) CurrentUser(ctx context.Context, cell *session.Cell) (User, error) {
	token, ok := cell.Token(ctx)
	if !ok {
		return User{}, ErrNoToken
	}
	s.validateCalls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if token != s.validToken {
		_, _ = cell.ClearIf(ctx, token)
		return User{}, ErrSessionInvalid
	}
	return s.user, nil
}

func (s *stubStrategy) SignIn(ctx context.Context, cell *session.Cell, credential Credential) (User, string, error) {
	if s.signInStarted != nil {
		close(s.signInStarted)
	}
	if s.signInBlock != nil {
		<-s.signInBlock
	}
	if s.signInErr != nil {
		return User{}, "", s.signInErr
	}
	if err := cell.Set(ctx, credential.IDToken); err != nil {
		return User{}, "", err
	}
	return s.user, "/app/settlements/", nil
}

func (s *stubStrategy) SignOut(_ context.Context, _ *session.Cell, user User) SignOutResult {
	s.signOutCalls.Add(1)
	return SignOutResult{RevokeHint: user.Email}
}

func newCell(t interface{ Cleanup(func()) }, token string) (*session.Cell, *session.MemoryStore) {
	store := session.NewMemoryStore(0)
	if token != "" {
		_ = store.Put(context.Background(), session.Record{SessionID: "sid-1", Token: token})
	}
	cell := session.NewManager(store).Acquire("sid-1")
	t.Cleanup(cell.Release)
	return cell, store
}
