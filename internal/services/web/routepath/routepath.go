// Package routepath names every browser route.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Root         = "/"
	SignIn       = "/signin"
	SignOut      = "/signout"
	AuthGoogle   = "/auth/google"
	AuthLogin    = "/auth/login"
	AuthCallback = "/auth/callback"
	Health       = "/up"
	StaticPrefix = "/static/"

	// AppPrefix owns every route that requires a signed-in user.
	AppPrefix      = "/app/"
	AppSettlements = "/app/settlements/"
)

// Settlement tabs.
const (
	TabPopulation = "population"
	TabStorage    = "storage"
	TabTimeline   = "timeline"
)

// Tabs lists the settlement tabs in display order.
func Tabs() []string {
	return []string{TabPopulation, TabStorage, TabTimeline}
}

func escape(segment string) string {
	return url.PathEscape(strings.TrimSpace(segment))
}

// AppSettlement is the settlement root, which redirects to its population.
func AppSettlement(settlementID string) string {
	return AppSettlements + escape(settlementID)
}

// AppSettlementTab is one settlement tab.
func AppSettlementTab(settlementID, tab string) string {
	return AppSettlement(settlementID) + "/" + escape(tab)
}

// AppSettlementPopulation is the survivor table.
func AppSettlementPopulation(settlementID string) string {
	return AppSettlementTab(settlementID, TabPopulation)
}

// AppSurvivors is the survivor collection of a settlement.
func AppSurvivors(settlementID string) string {
	return AppSettlement(settlementID) + "/survivors"
}

// AppSurvivor is one survivor.
func AppSurvivor(settlementID, survivorID string) string {
	return AppSurvivors(settlementID) + "/" + escape(survivorID)
}

// AppSurvivorStatus sets a survivor's status.
func AppSurvivorStatus(settlementID, survivorID string) string {
	return AppSurvivor(settlementID, survivorID) + "/status"
}

// AppSurvivorDelete deletes a survivor.
func AppSurvivorDelete(settlementID, survivorID string) string {
	return AppSurvivor(settlementID, survivorID) + "/delete"
}

// SignInWithNext is the sign-in page returning to next afterwards.
func SignInWithNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" {
		return SignIn
	}
	return SignIn + "?" + url.Values{"next": {next}}.Encode()
}
