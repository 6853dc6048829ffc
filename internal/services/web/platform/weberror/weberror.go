// Package weberror renders shared app-shell error responses for modules.
package weberror

import (
	"log"
	"net/http"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
	webi18n "github.com/failuretoload/datamonster-web/internal/services/web/platform/i18n"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/pagerender"
	"github.com/failuretoload/datamonster-web/internal/services/web/templates"
)

// ShouldRenderAppError reports whether status should use app error-page UX.
func ShouldRenderAppError(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode >= http.StatusInternalServerError
}

// PublicMessage resolves a user-safe localized error message.
func PublicMessage(loc webi18n.Localizer, err error) string {
	if err == nil {
		return ""
	}
	if msg := strings.TrimSpace(webi18n.LocalizeError(loc, err)); msg != "" {
		return msg
	}
	return http.StatusText(http.StatusInternalServerError)
}

func titleKey(statusCode int) string {
	if statusCode == http.StatusNotFound {
		return "web.error.not_found.title"
	}
	return "web.error.server.title"
}

func messageKey(statusCode int) string {
	if statusCode == http.StatusNotFound {
		return "web.error.not_found.body"
	}
	return "web.error.server.body"
}

// WriteAppError writes a localized app-shell error response for full-page and HTMX requests.
func WriteAppError(w http.ResponseWriter, r *http.Request, statusCode int, deps module.Dependencies) {
	if w == nil {
		return
	}
	if !ShouldRenderAppError(statusCode) {
		statusCode = http.StatusInternalServerError
	}
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	view := templates.ErrorView{
		StatusCode: statusCode,
		Title:      templates.T(loc, titleKey(statusCode)),
		Message:    templates.T(loc, messageKey(statusCode)),
	}
	err := pagerender.WriteModulePage(w, r, deps, pagerender.ModulePage{
		Title:      view.Title,
		StatusCode: statusCode,
		Fragment:   templates.Fragment("error", view),
	})
	if err != nil {
		log.Printf("web: render error page: %v", err)
	}
}

// WriteModuleError writes a module-safe localized error response.
func WriteModuleError(w http.ResponseWriter, r *http.Request, err error, deps module.Dependencies) {
	if w == nil {
		return
	}
	statusCode := apperrors.HTTPStatus(err)
	if ShouldRenderAppError(statusCode) {
		WriteAppError(w, r, statusCode, deps)
		return
	}
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	http.Error(w, PublicMessage(loc, err), statusCode)
}

// NotFound is an http.Handler rendering the app 404 page.
func NotFound(deps module.Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteAppError(w, r, http.StatusNotFound, deps)
	})
}

// InternalError is an http.Handler rendering the app 500 page.
func InternalError(deps module.Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteAppError(w, r, http.StatusInternalServerError, deps)
	})
}
