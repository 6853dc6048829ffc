// Package settlements serves the signed-in campaign pages: the settlement
// list, the settlement tabs and the survivor table with its dialogs.
package settlements

import (
	"net/http"

	"github.com/failuretoload/datamonster-web/internal/services/web/module"
	"github.com/failuretoload/datamonster-web/internal/services/web/platform/httpx"
	"github.com/failuretoload/datamonster-web/internal/services/web/routepath"
)

// Module provides settlement routes.
type Module struct{}

// New returns a settlements module.
func New() Module {
	return Module{}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "settlements" }

// Mount wires settlement route handlers.
func (Module) Mount(deps module.Dependencies) (module.Mount, error) {
	h := newHandlers(deps)
	const base = routepath.AppSettlements
	const settlement = base + "{settlementID}"
	const survivor = settlement + "/survivors/{survivorID}"

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+base+"{$}", h.handleList)
	mux.HandleFunc(http.MethodPost+" "+base+"{$}", h.handleCreate)
	mux.HandleFunc(http.MethodGet+" "+settlement, h.handleSettlement)
	mux.HandleFunc(http.MethodGet+" "+settlement+"/{tab}", h.handleTab)
	mux.HandleFunc(http.MethodPost+" "+settlement+"/survivors", h.handleCreateSurvivor)
	mux.HandleFunc(http.MethodPost+" "+survivor, h.handleUpdateSurvivor)
	mux.HandleFunc(http.MethodPost+" "+survivor+"/status", h.handleSurvivorStatus)
	mux.HandleFunc(http.MethodPost+" "+survivor+"/delete", h.handleDeleteSurvivor)
	mux.HandleFunc(survivor+"/status", httpx.MethodNotAllowed(http.MethodPost))
	mux.HandleFunc(survivor+"/delete", httpx.MethodNotAllowed(http.MethodPost))
	mux.Handle(base, h.notFound())
	return module.Mount{Prefix: base, Handler: mux}, nil
}
