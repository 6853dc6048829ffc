package settlements

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/failuretoload/datamonster-web/internal/services/web/auth"
	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/flash"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
	webi18n "github.com/failuretoload/datamonster-web/internal/services/web/platform/i18n"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/pagerender"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/weberror"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
	"github.com/failuretoload/datamonster-web/internal/services/web/templates"
)

type handlers struct {
	deps    module.Dependencies
	service service
}

func newHandlers(deps module.Dependencies) handlers {
	return handlers{deps: deps, service: newService(deps.Gateway)}
}

func (h handlers) notFound() http.Handler {
	return weberror.NotFound(h.deps)
}

func (h handlers) authContext(r *http.Request) *auth.Context {
	if h.deps.ResolveAuth == nil {
		return nil
	}
	return h.deps.ResolveAuth(r)
}

// backendContext carries the session token to the gateway.
func (h handlers) backendContext(r *http.Request) context.Context {
	ctx := r.Context()
	if token, ok := h.authContext(r).Token(ctx); ok {
		ctx = backend.WithToken(ctx, token)
	}
	return ctx
}

func localizer(r *http.Request) templates.Localizer {
	loc, _ := webi18n.ResolveLocalizer(nil, r)
	return loc
}

// validationStatus is 422 for plain form posts. HTMX only swaps successful
// responses, so it gets 200.
func validationStatus(r *http.Request) int {
	if httpx.IsHTMXRequest(r) {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

// signInAgain ends a session the backend no longer accepts.
func (h handlers) signInAgain(w http.ResponseWriter, r *http.Request, next string) {
	h.authContext(r).SignOut(r.Context())
	if h.deps.EndSession != nil {
		h.deps.EndSession(w, r)
	}
	httpx.WriteRedirect(w, r, routepath.SignInWithNext(next))
}

// writeError renders a failed load, signing out when the backend rejected
// the session.
func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error, next string) {
	if backend.IsUnauthorized(err) {
		log.Printf("web: backend rejected session on %s: %v", r.URL.Path, err)
		h.signInAgain(w, r, next)
		return
	}
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		log.Printf("web: %s %s: %v", r.Method, r.URL.Path, err)
	}
	weberror.WriteModuleError(w, r, err, h.deps)
}

// finishMutation redirects back to the table after a write, with a notice.
func (h handlers) finishMutation(w http.ResponseWriter, r *http.Request, back string, err error, okKey, failKey string) {
	if err != nil {
		if backend.IsUnauthorized(err) {
			log.Printf("web: backend rejected session on %s: %v", r.URL.Path, err)
			h.signInAgain(w, r, back)
			return
		}
		log.Printf("web: %s %s: %v", r.Method, r.URL.Path, err)
		flash.Write(w, r, flash.Failure(failKey), h.deps.SchemePolicy)
	} else {
		flash.Write(w, r, flash.Success(okKey), h.deps.SchemePolicy)
	}
	httpx.WriteRedirect(w, r, back)
}

func (h handlers) writePage(w http.ResponseWriter, r *http.Request, status int, title string, fragment templ.Component) {
	if err := pagerender.WriteModulePage(w, r, h.deps, pagerender.ModulePage{Title: title, StatusCode: status, Fragment: fragment}); err != nil {
		log.Printf("web: render %s: %v", r.URL.Path, err)
	}
}

func (h handlers) handleList(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, http.StatusOK, "", "")
}

func (h handlers) renderList(w http.ResponseWriter, r *http.Request, status int, name, nameError string) {
	loc := localizer(r)
	view := templates.SettlementsView{CreateURL: routepath.AppSettlements, Name: name, NameError: nameError}
	settlements, err := h.service.listSettlements(h.backendContext(r))
	if err != nil {
		if backend.IsUnauthorized(err) {
			log.Printf("web: backend rejected session on %s: %v", r.URL.Path, err)
			h.signInAgain(w, r, routepath.AppSettlements)
			return
		}
		log.Printf("web: list settlements: %v", err)
		view.LoadError = weberror.PublicMessage(loc, err)
	}
	view.Settlements = settlementCards(settlements)
	h.writePage(w, r, status, templates.T(loc, "web.settlements.title"), templates.Fragment("settlements", view))
}

func (h handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	raw := r.PostFormValue("name")
	name, err := parseSettlementName(raw)
	if err != nil {
		h.renderList(w, r, validationStatus(r), raw, templates.T(localizer(r), apperrors.LocalizationKey(err)))
		return
	}
	_, err = h.service.createSettlement(h.backendContext(r), name)
	h.finishMutation(w, r, routepath.AppSettlements, err, "web.flash.settlement_created", "web.flash.settlement_create_failed")
}

func (h handlers) handleSettlement(w http.ResponseWriter, r *http.Request) {
	httpx.WriteRedirect(w, r, routepath.AppSettlementPopulation(r.PathValue("settlementID")))
}

func (h handlers) handleTab(w http.ResponseWriter, r *http.Request) {
	settlementID := r.PathValue("settlementID")
	switch tab := r.PathValue("tab"); tab {
	case routepath.TabPopulation:
		h.renderPopulation(w, r, settlementID, r.URL.Query(), http.StatusOK, nil)
	case routepath.TabStorage, routepath.TabTimeline:
		h.renderSummaryTab(w, r, settlementID, tab)
	default:
		weberror.WriteAppError(w, r, http.StatusNotFound, h.deps)
	}
}

func (h handlers) renderSummaryTab(w http.ResponseWriter, r *http.Request, settlementID, tab string) {
	settlement, err := h.service.settlement(h.backendContext(r), settlementID)
	if err != nil {
		h.writeError(w, r, err, routepath.AppSettlementTab(settlementID, tab))
		return
	}
	loc := localizer(r)
	view := templates.TabView{SettlementView: settlementView(loc, settlement, tab), Title: templates.T(loc, "web.tab."+tab)}
	h.writePage(w, r, http.StatusOK, settlement.Name, templates.Fragment("settlement_tab", view))
}

// loadPopulation fetches the settlement and lists its survivors once. A
// survivor listing failure degrades to an error row in the table. dialog,
// when set, replaces the dialog named by the query.
func (h handlers) loadPopulation(r *http.Request, settlementID string, values url.Values, dialog *templates.DialogView) (templates.PopulationView, error) {
	loc := localizer(r)
	ctx := h.backendContext(r)
	settlement, err := h.service.settlement(ctx, settlementID)
	if err != nil {
		return templates.PopulationView{}, err
	}
	if settlement.ID == "" {
		settlement.ID = backend.ID(settlementID)
	}
	q, filter, problems := parseTableQuery(values)
	if dialog != nil {
		q = q.withoutDialog()
	}

	survivors, err := h.service.survivors(ctx, settlementID)
	var loadError string
	if err != nil {
		if backend.IsUnauthorized(err) {
			return templates.PopulationView{}, err
		}
		log.Printf("web: list survivors of %s: %v", settlementID, err)
		loadError = weberror.PublicMessage(loc, err)
		survivors = nil
	}

	view := templates.PopulationView{
		SettlementView: settlementView(loc, settlement, routepath.TabPopulation),
		Table:          tableView(loc, settlementID, q, filter, problems, survivors),
		Dialog:         dialog,
	}
	view.Table.LoadError = loadError
	if dialog == nil && loadError == "" {
		found, ok := dialogFor(loc, settlement, q, survivors)
		if !ok {
			return templates.PopulationView{}, apperrors.E(apperrors.KindNotFound, "survivor not found")
		}
		view.Dialog = found
	}
	return view, nil
}

func (h handlers) renderPopulation(w http.ResponseWriter, r *http.Request, settlementID string, values url.Values, status int, dialog *templates.DialogView) {
	view, err := h.loadPopulation(r, settlementID, values, dialog)
	if err != nil {
		h.writeError(w, r, err, routepath.AppSettlementPopulation(settlementID))
		return
	}
	h.writePage(w, r, status, view.Settlement.Name, templates.Fragment("population", view))
}

// populationBack is the table the browser returns to after a survivor
// write. The table state rides on the form action's query.
func populationBack(settlementID string, q tableQuery) string {
	return q.withoutDialog().url(routepath.AppSettlementPopulation(settlementID))
}

func (h handlers) handleCreateSurvivor(w http.ResponseWriter, r *http.Request) {
	settlementID := r.PathValue("settlementID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	q, _, _ := parseTableQuery(query)
	form := parseSurvivorForm(r.PostForm)
	if !form.valid() {
		dialog := formDialog(localizer(r), settlementID, "", q, form)
		h.renderPopulation(w, r, settlementID, query, validationStatus(r), &dialog)
		return
	}
	_, err := h.service.createSurvivor(h.backendContext(r), settlementID, form)
	h.finishMutation(w, r, populationBack(settlementID, q), err, "web.flash.survivor_created", "web.flash.survivor_save_failed")
}

func (h handlers) handleUpdateSurvivor(w http.ResponseWriter, r *http.Request) {
	settlementID, survivorID := r.PathValue("settlementID"), r.PathValue("survivorID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	q, _, _ := parseTableQuery(query)
	form := parseSurvivorForm(r.PostForm)
	if !form.valid() {
		dialog := formDialog(localizer(r), settlementID, survivorID, q, form)
		h.renderPopulation(w, r, settlementID, query, validationStatus(r), &dialog)
		return
	}
	_, err := h.service.updateSurvivor(h.backendContext(r), settlementID, survivorID, form)
	h.finishMutation(w, r, populationBack(settlementID, q), err, "web.flash.survivor_saved", "web.flash.survivor_save_failed")
}

func (h handlers) handleSurvivorStatus(w http.ResponseWriter, r *http.Request) {
	settlementID, survivorID := r.PathValue("settlementID"), r.PathValue("survivorID")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	q, _, _ := parseTableQuery(query)
	back := populationBack(settlementID, q)
	ctx := h.backendContext(r)
	survivor, err := h.service.survivor(ctx, settlementID, survivorID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			weberror.WriteAppError(w, r, http.StatusNotFound, h.deps)
			return
		}
		h.finishMutation(w, r, back, err, "", "web.flash.survivor_save_failed")
		return
	}
	form := parseStatusForm(r.PostForm)
	if len(form.errors) > 0 {
		dialog := statusDialog(localizer(r), settlementID, survivor, q, form)
		h.renderPopulation(w, r, settlementID, query, validationStatus(r), &dialog)
		return
	}
	_, err = h.service.setStatus(ctx, settlementID, survivor, form)
	h.finishMutation(w, r, back, err, "web.flash.survivor_status_saved", "web.flash.survivor_save_failed")
}

// handleDeleteSurvivor deletes once and then lists once: HTMX gets the
// refreshed population in the same response, plain posts are redirected to
// the population page.
func (h handlers) handleDeleteSurvivor(w http.ResponseWriter, r *http.Request) {
	settlementID, survivorID := r.PathValue("settlementID"), r.PathValue("survivorID")
	query := r.URL.Query()
	q, _, _ := parseTableQuery(query)
	back := populationBack(settlementID, q)

	err := h.service.deleteSurvivor(h.backendContext(r), settlementID, survivorID)
	if err != nil || !httpx.IsHTMXPartial(r) {
		h.finishMutation(w, r, back, err, "web.flash.survivor_deleted", "web.flash.survivor_delete_failed")
		return
	}

	view, err := h.loadPopulation(r, settlementID, q.withoutDialog().values(), nil)
	if err != nil {
		h.writeError(w, r, err, back)
		return
	}
	w.Header().Set("HX-Push-Url", back)
	if err := pagerender.WriteFragment(w, r, http.StatusOK, templates.Fragment("population", view)); err != nil {
		log.Printf("web: render %s: %v", r.URL.Path, err)
	}
}
