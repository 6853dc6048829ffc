package auth

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/failuretoload/datamonster-web/internal/platform/timeouts"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
)

// State is the resolution state of a Context.
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "initializing"
	}
}

// Context is the authentication state of one request. It starts
// initializing, resolves once against the strategy, and changes afterwards
// only through SignIn and SignOut.
type Context struct {
	strategy Strategy
	cell     *session.Cell
	timeout  time.Duration

	startOnce    sync.Once
	resolveOnce  sync.Once
	resolvedChan chan struct{}

	mu    sync.RWMutex
	state State
	user  User
	gen   uint64
}

// NewContext creates an initializing context over the browser session cell.
// A nil strategy or cell resolves straight to unauthenticated.
func NewContext(strategy Strategy, cell *session.Cell) *Context {
	return &Context{
		strategy:     strategy,
		cell:         cell,
		timeout:      timeouts.BackendRequest,
		resolvedChan: make(chan struct{}),
	}
}

// Start begins resolution once. Without a stored token the context becomes
// unauthenticated at once and no validation call is made. Otherwise the
// strategy validates in the background, detached from ctx cancellation so an
// abandoned request cannot be mistaken for a rejected token.
func (c *Context) Start(ctx context.Context) {
	if c == nil {
		return
	}
	c.startOnce.Do(func() {
		if c.strategy == nil || c.cell == nil {
			c.finish(0, StateUnauthenticated, User{})
			return
		}
		if _, ok := c.cell.Token(ctx); !ok {
			c.finish(0, StateUnauthenticated, User{})
			return
		}
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()
		resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		go func() {
			defer cancel()
			user, err := c.strategy.CurrentUser(resolveCtx, c.cell)
			if err != nil {
				if !errors.Is(err, ErrNoToken) {
					log.Printf("auth: %s session rejected: %v", c.strategy.Name(), err)
				}
				c.finish(gen, StateUnauthenticated, User{})
				return
			}
			c.finish(gen, StateAuthenticated, user)
		}()
	})
}

// finish records a resolution result unless SignIn or SignOut moved the
// context on since gen was read.
func (c *Context) finish(gen uint64, state State, user User) {
	c.mu.Lock()
	if c.gen == gen && c.state == StateInitializing {
		c.state = state
		c.user = user
	}
	c.mu.Unlock()
	c.markResolved()
}

func (c *Context) markResolved() {
	c.resolveOnce.Do(func() { close(c.resolvedChan) })
}

// Resolved is closed once the context has left the initializing state.
func (c *Context) Resolved() <-chan struct{} {
	return c.resolvedChan
}

// Await starts resolution and waits for it for at most wait, or until ctx is
// done. It returns the state at that point, which may still be initializing.
func (c *Context) Await(ctx context.Context, wait time.Duration) State {
	if c == nil {
		return StateUnauthenticated
	}
	c.Start(ctx)
	if wait <= 0 {
		select {
		case <-c.resolvedChan:
		default:
		}
		return c.State()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-c.resolvedChan:
	case <-timer.C:
	case <-ctx.Done():
	}
	return c.State()
}

// State returns the current state.
func (c *Context) State() State {
	if c == nil {
		return StateUnauthenticated
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Loading reports whether resolution is still pending.
func (c *Context) Loading() bool {
	return c.State() == StateInitializing
}

// Authenticated reports whether a user is signed in.
func (c *Context) Authenticated() bool {
	return c.State() == StateAuthenticated
}

// User returns the signed-in user.
func (c *Context) User() (User, bool) {
	if c == nil {
		return User{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.state == StateAuthenticated
}

// Token returns the stored session token for backend calls.
func (c *Context) Token(ctx context.Context) (string, bool) {
	if c == nil || c.cell == nil {
		return "", false
	}
	return c.cell.Token(ctx)
}

// Strategy returns the strategy the context signs in with.
func (c *Context) Strategy() Strategy {
	if c == nil {
		return nil
	}
	return c.strategy
}

// SessionID returns the browser-session id the context is bound to, or "".
func (c *Context) SessionID() string {
	if c == nil {
		return ""
	}
	return c.cell.ID()
}

// Prompt returns the strategy's sign-in affordance.
func (c *Context) Prompt(ctx context.Context, next string) (Prompt, error) {
	if c == nil || c.strategy == nil {
		return Prompt{}, errors.New("auth strategy is not configured")
	}
	return c.strategy.Prompt(ctx, c.cell, next)
}

// SignIn hands the credential to the strategy. On success the context is
// authenticated with the returned user; on failure its state is unchanged.
func (c *Context) SignIn(ctx context.Context, credential Credential) (User, string, error) {
	if c == nil || c.strategy == nil || c.cell == nil {
		return User{}, "", errors.New("auth strategy is not configured")
	}
	user, next, err := c.strategy.SignIn(ctx, c.cell, credential)
	if err != nil {
		return User{}, "", err
	}
	c.mu.Lock()
	c.gen++
	c.state = StateAuthenticated
	c.user = user
	c.mu.Unlock()
	c.markResolved()
	return user, next, nil
}

// SignOut clears the session and leaves the context unauthenticated whatever
// state it was in.
func (c *Context) SignOut(ctx context.Context) SignOutResult {
	if c == nil {
		return SignOutResult{}
	}
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()
	var result SignOutResult
	if c.strategy != nil && c.cell != nil {
		result = c.strategy.SignOut(ctx, c.cell, user)
	}
	if c.cell != nil {
		if err := c.cell.Clear(ctx); err != nil {
			log.Printf("auth: clear session on sign-out: %v", err)
		}
	}
	c.mu.Lock()
	c.gen++
	c.state = StateUnauthenticated
	c.user = User{}
	c.mu.Unlock()
	c.markResolved()
	return result
}

type contextKey struct{}

// WithContext stores the auth context on ctx.
func WithContext(ctx context.Context, authCtx *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// FromContext returns the auth context stored on ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	authCtx, ok := ctx.Value(contextKey{}).(*Context)
	return authCtx, ok && authCtx != nil
}
