// Package pagerender centralizes module page rendering behavior.
package pagerender

import (
	"context"
	"net/http"

	"github.com/a-h/templ"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/flash"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
	webi18n "github.com/failuretoload/datamonster-web/internal/services/web/platform/i18n"
	"github.com/failuretoload/datamonster-web/internal/services/web/templates"
)

// ModulePage describes a module page response for both full-page and HTMX flows.
type ModulePage struct {
	Title      string
	StatusCode int
	Fragment   templ.Component
}

// WriteModulePage writes a module page inside the app layout, or the main
// region alone for HTMX requests.
func WriteModulePage(w http.ResponseWriter, r *http.Request, deps module.Dependencies, page ModulePage) error {
	if w == nil {
		return nil
	}
	statusCode := page.StatusCode
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	fragment := page.Fragment
	if fragment == nil {
		fragment = templ.NopComponent
	}

	loc, lang := webi18n.ResolveLocalizer(w, r)
	ctx := templates.WithLocalizer(requestContext(r), loc)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if httpx.IsHTMXPartial(r) {
		w.WriteHeader(statusCode)
		return templates.Main().Render(templ.WithChildren(ctx, fragment), w)
	}

	view := templates.LayoutView{
		Title:     page.Title,
		Lang:      lang,
		Viewer:    deps.Viewer(r),
		Languages: webi18n.LanguageOptions(lang),
	}
	if r != nil {
		view.CurrentPath = r.URL.Path
	}
	if notice, ok := flash.ReadAndClear(w, r, deps.SchemePolicy); ok {
		view.Notice = &notice
	}
	w.WriteHeader(statusCode)
	return templates.Layout(view).Render(templ.WithChildren(ctx, fragment), w)
}

// WriteFragment writes one component without any chrome, for HTMX partial
// swaps.
func WriteFragment(w http.ResponseWriter, r *http.Request, statusCode int, fragment templ.Component) error {
	if w == nil || fragment == nil {
		return nil
	}
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	loc, _ := webi18n.ResolveLocalizer(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	return fragment.Render(templates.WithLocalizer(requestContext(r), loc), w)
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
