package public

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/flash"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
	webi18n "github.com/failuretoload/datamonster-web/internal/services/web/platform/i18n"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/pagerender"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/requestmeta"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/sessioncookie"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/weberror"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
	"github.com/failuretoload/datamonster-web/internal/services/web/templates"
)

// googleCSRFCookie is the double-submit cookie Google Identity Services sets
// before posting the credential.
const googleCSRFCookie = "g_csrf_token"

type handlers struct {
	deps module.Dependencies
	cfg  Config
}

func newHandlers(deps module.Dependencies, cfg Config) handlers {
	return handlers{deps: deps, cfg: cfg}
}

func (h handlers) authContext(r *http.Request) *auth.Context {
	if h.deps.ResolveAuth == nil {
		return nil
	}
	return h.deps.ResolveAuth(r)
}

func (h handlers) beginSession(w http.ResponseWriter, r *http.Request) *auth.Context {
	if h.deps.BeginSession == nil {
		return h.authContext(r)
	}
	return h.deps.BeginSession(w, r)
}

func (h handlers) notFound() http.Handler {
	return weberror.NotFound(h.deps)
}

func (h handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (h handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	viewer := h.deps.Viewer(r)
	view := templates.HomeView{
		SignedIn:       viewer.SignedIn,
		DisplayName:    viewer.DisplayName,
		SettlementsURL: routepath.AppSettlements,
		SignInURL:      routepath.SignIn,
	}
	h.writePage(w, r, http.StatusOK, templates.T(loc, "core.app.name"), templates.Fragment("home", view))
}

func nextParam(r *http.Request) string {
	return httpx.SafeRedirectPath(r.URL.Query().Get("next"), routepath.AppSettlements)
}

func (h handlers) handleSignIn(w http.ResponseWriter, r *http.Request) {
	next := nextParam(r)
	authCtx := h.authContext(r)
	if authCtx.Await(r.Context(), h.cfg.AuthWait) == auth.StateAuthenticated {
		httpx.WriteRedirect(w, r, next)
		return
	}
	h.renderSignIn(w, r, http.StatusOK, next, "")
}

func (h handlers) renderSignIn(w http.ResponseWriter, r *http.Request, status int, next, message string) {
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	view := templates.SignInView{Error: message}
	prompt, err := h.beginSession(w, r).Prompt(r.Context(), next)
	switch {
	case err != nil:
		log.Printf("auth: prepare sign-in prompt: %v", err)
	case prompt.Kind == auth.PromptGoogleButton:
		view.GoogleClientID = prompt.ClientID
		view.GoogleLoginURI = h.googleLoginURI(r, prompt.LoginURI, next)
	case prompt.Kind == auth.PromptRedirect:
		view.RedirectURL = prompt.URL
	}
	h.writePage(w, r, status, templates.T(loc, "web.signin.title"), templates.Fragment("signin", view))
}

// googleLoginURI makes the credential endpoint absolute and carries next in
// its query, since Google posts back without any state of ours.
func (h handlers) googleLoginURI(r *http.Request, loginURI, next string) string {
	loginURI = strings.TrimSpace(loginURI)
	if loginURI == "" {
		loginURI = routepath.AuthGoogle
	}
	if strings.HasPrefix(loginURI, "/") {
		loginURI = requestmeta.Origin(r, h.deps.SchemePolicy) + loginURI
	}
	u, err := url.Parse(loginURI)
	if err != nil {
		return loginURI
	}
	if next != "" && next != routepath.AppSettlements {
		query := u.Query()
		query.Set("next", next)
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

type credentialResponse struct {
	Redirect string `json:"redirect,omitempty"`
	Error    string `json:"error,omitempty"`
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type"))), "application/json")
}

// handleGoogleCredential accepts the Google ID token, either as the redirect
// mode form post (double-submit checked) or as a same-origin JSON post.
func (h handlers) handleGoogleCredential(w http.ResponseWriter, r *http.Request) {
	next := nextParam(r)
	if isJSONRequest(r) {
		h.handleGoogleJSON(w, r, next)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderSignIn(w, r, http.StatusBadRequest, next, h.message(r, "web.signin.error.invalid_request"))
		return
	}
	if !validGoogleCSRF(r) {
		log.Printf("auth: google credential rejected: csrf token mismatch")
		h.renderSignIn(w, r, http.StatusForbidden, next, h.message(r, "web.signin.error.invalid_request"))
		return
	}
	credential := strings.TrimSpace(r.PostFormValue("credential"))
	if _, err := h.signIn(w, r, auth.Credential{IDToken: credential}); err != nil {
		h.renderSignIn(w, r, http.StatusUnauthorized, next, h.message(r, "web.signin.error.rejected"))
		return
	}
	flash.Write(w, r, flash.Success("web.flash.signed_in"), h.deps.SchemePolicy)
	httpx.WriteRedirect(w, r, next)
}

func (h handlers) handleGoogleJSON(w http.ResponseWriter, r *http.Request, next string) {
	if !requestmeta.HasSameOriginProof(r, h.deps.SchemePolicy) {
		_ = httpx.WriteJSON(w, http.StatusForbidden, credentialResponse{Error: "forbidden"})
		return
	}
	var body credentialRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil {
		_ = httpx.WriteJSON(w, http.StatusBadRequest, credentialResponse{Error: "invalid request"})
		return
	}
	if _, err := h.signIn(w, r, auth.Credential{IDToken: body.Credential}); err != nil {
		_ = httpx.WriteJSON(w, http.StatusUnauthorized, credentialResponse{Error: h.message(r, "web.signin.error.rejected")})
		return
	}
	flash.Write(w, r, flash.Success("web.flash.signed_in"), h.deps.SchemePolicy)
	_ = httpx.WriteJSON(w, http.StatusOK, credentialResponse{Redirect: next})
}

func validGoogleCSRF(r *http.Request) bool {
	cookie, ok := sessioncookie.ReadNamed(r, googleCSRFCookie)
	if !ok {
		return false
	}
	return cookie == strings.TrimSpace(r.PostFormValue(googleCSRFCookie))
}

func (h handlers) signIn(w http.ResponseWriter, r *http.Request, credential auth.Credential) (string, error) {
	authCtx := h.beginSession(w, r)
	if authCtx == nil {
		return "", errors.New("auth is not configured")
	}
	_, next, err := authCtx.SignIn(r.Context(), credential)
	if err != nil {
		log.Printf("auth: sign in with %s: %v", strategyName(authCtx), err)
		return "", err
	}
	return next, nil
}

func strategyName(authCtx *auth.Context) string {
	if strategy := authCtx.Strategy(); strategy != nil {
		return strategy.Name()
	}
	return "unconfigured strategy"
}

// handleProviderLogin starts a fresh provider flow and sends the browser to
// the identity provider.
func (h handlers) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	next := nextParam(r)
	authCtx := h.beginSession(w, r)
	prompt, err := authCtx.Prompt(r.Context(), next)
	if err != nil || prompt.Kind != auth.PromptRedirect || prompt.URL == "" {
		if err != nil {
			log.Printf("auth: start provider sign-in: %v", err)
		}
		httpx.WriteRedirect(w, r, routepath.SignInWithNext(next))
		return
	}
	http.Redirect(w, r, prompt.URL, http.StatusFound)
}

func (h handlers) handleProviderCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerErr := strings.TrimSpace(query.Get("error")); providerErr != "" {
		log.Printf("auth: provider returned error: %s", providerErr)
		h.renderSignIn(w, r, http.StatusUnauthorized, routepath.AppSettlements, h.message(r, "web.signin.error.rejected"))
		return
	}
	next, err := h.signIn(w, r, auth.Credential{Code: query.Get("code"), State: query.Get("state")})
	if err != nil {
		h.renderSignIn(w, r, http.StatusUnauthorized, routepath.AppSettlements, h.message(r, "web.signin.error.rejected"))
		return
	}
	flash.Write(w, r, flash.Success("web.flash.signed_in"), h.deps.SchemePolicy)
	httpx.WriteRedirect(w, r, httpx.SafeRedirectPath(next, routepath.AppSettlements))
}

func (h handlers) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if !requestmeta.HasSameOriginProof(r, h.deps.SchemePolicy) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	authCtx := h.authContext(r)
	// The revoke hint needs the user, so let a pending validation finish.
	authCtx.Await(r.Context(), h.cfg.AuthWait)
	result := authCtx.SignOut(r.Context())
	if h.deps.EndSession != nil {
		h.deps.EndSession(w, r)
	}
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	view := templates.SignedOutView{RevokeHint: result.RevokeHint, ClientID: result.ClientID, HomeURL: routepath.Root}
	h.writePage(w, r, http.StatusOK, templates.T(loc, "web.signout.title"), templates.Fragment("signed_out", view))
}

func (h handlers) message(r *http.Request, key string) string {
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	return templates.T(loc, key)
}

func (h handlers) writePage(w http.ResponseWriter, r *http.Request, status int, title string, fragment templ.Component) {
	if err := pagerender.WriteModulePage(w, r, h.deps, pagerender.ModulePage{Title: title, StatusCode: status, Fragment: fragment}); err != nil {
		log.Printf("web: render %s: %v", r.URL.Path, err)
	}
}
