// Package templates renders the browser pages. Pages are html/template
// definitions exposed as templ components so handlers compose them like any
// other component.
package templates

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/message"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/flash"
	webi18n "github.com/failuretoload/datamonster-web/internal/services/web/platform/i18n"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
)

//go:embed html/*.html
var files embed.FS

// Localizer resolves catalog keys.
type Localizer = webi18n.Localizer

var base = template.Must(template.New("pages").Funcs(funcs(nil)).ParseFS(files, "html/*.html"))

func funcs(loc Localizer) template.FuncMap {
	return template.FuncMap{
		"T": func(key string, args ...any) string {
			if len(args) == 0 {
				return T(loc, key)
			}
			return Tf(loc, key, args...)
		},
		"settlementTab": routepath.AppSettlementTab,
		"population":    routepath.AppSettlementPopulation,
		"survivorsURL":  routepath.AppSurvivors,
		"survivorURL":   routepath.AppSurvivor,
		"statusURL":     routepath.AppSurvivorStatus,
		"deleteURL":     routepath.AppSurvivorDelete,
		"lower":         strings.ToLower,
		"add":           func(a, b int) int { return a + b },
	}
}

// T translates key, falling back to the key itself without a localizer.
// The key is never read as a format string.
func T(loc Localizer, key string) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(message.Key(key, key))
}

// Tf translates key and fills the message placeholders with args.
func Tf(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(message.Key(key, key), args...)
}

type localizerKey struct{}

// WithLocalizer stores the request localizer for components rendered under ctx.
func WithLocalizer(ctx context.Context, loc Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, loc)
}

func localizerFrom(ctx context.Context) Localizer {
	if ctx == nil {
		return nil
	}
	loc, _ := ctx.Value(localizerKey{}).(Localizer)
	return loc
}

// Fragment renders the named template with data.
func Fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tmpl, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone templates: %w", err)
		}
		tmpl.Funcs(funcs(localizerFrom(ctx)))
		if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		return nil
	})
}

// LayoutView is the page chrome around a fragment.
type LayoutView struct {
	Title       string
	Lang        string
	Viewer      module.Viewer
	Notice      *flash.Notice
	Languages   []webi18n.LanguageOption
	CurrentPath string
}

type layoutData struct {
	LayoutView
	Body template.HTML
}

// Layout renders the full document, placing the context children in the
// main region.
func Layout(view LayoutView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var body bytes.Buffer
		if err := templ.GetChildren(ctx).Render(templ.ClearChildren(ctx), &body); err != nil {
			return err
		}
		// The children were escaped while rendering.
		return Fragment("layout", layoutData{LayoutView: view, Body: template.HTML(body.String())}).Render(ctx, w)
	})
}

// Main renders the context children inside the main region only, for HTMX
// swaps.
func Main() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<main id="main">`); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(templ.ClearChildren(ctx), w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>")
		return err
	})
}
