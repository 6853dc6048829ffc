package settlements

import (
	"context"
	"fmt"
	"strings"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

// service validates input and talks to the gateway. Handlers never call the
// gateway directly.
type service struct {
	gateway backend.Gateway
}

func newService(gateway backend.Gateway) service {
	if gateway == nil {
		gateway = backend.UnavailableGateway{}
	}
	return service{gateway: gateway}
}

func (s service) listSettlements(ctx context.Context) ([]backend.Settlement, error) {
	return s.gateway.ListSettlements(ctx)
}

func (s service) settlement(ctx context.Context, settlementID string) (backend.Settlement, error) {
	settlementID = strings.TrimSpace(settlementID)
	if settlementID == "" {
		return backend.Settlement{}, apperrors.E(apperrors.KindNotFound, "settlement id is required")
	}
	return s.gateway.GetSettlement(ctx, settlementID)
}

// createSettlement validates the name and, only when it is valid, issues
// one create call with the trimmed name.
func (s service) createSettlement(ctx context.Context, rawName string) (backend.Settlement, error) {
	name, err := parseSettlementName(rawName)
	if err != nil {
		return backend.Settlement{}, err
	}
	return s.gateway.CreateSettlement(ctx, name)
}

func (s service) survivors(ctx context.Context, settlementID string) ([]backend.Survivor, error) {
	return s.gateway.ListSurvivors(ctx, settlementID)
}

func findSurvivor(survivors []backend.Survivor, survivorID string) (backend.Survivor, bool) {
	for _, survivor := range survivors {
		if survivor.ID.String() == survivorID {
			return survivor, true
		}
	}
	return backend.Survivor{}, false
}

func (s service) survivor(ctx context.Context, settlementID, survivorID string) (backend.Survivor, error) {
	survivors, err := s.survivors(ctx, settlementID)
	if err != nil {
		return backend.Survivor{}, err
	}
	survivor, ok := findSurvivor(survivors, survivorID)
	if !ok {
		return backend.Survivor{}, apperrors.E(apperrors.KindNotFound, fmt.Sprintf("survivor %q not found", survivorID))
	}
	return survivor, nil
}

func (s service) createSurvivor(ctx context.Context, settlementID string, form survivorForm) (backend.Survivor, error) {
	input := form.input
	input.Status = backend.StatusAlive
	return s.gateway.CreateSurvivor(ctx, settlementID, input)
}

func (s service) updateSurvivor(ctx context.Context, settlementID, survivorID string, form survivorForm) (backend.Survivor, error) {
	return s.gateway.UpdateSurvivor(ctx, settlementID, survivorID, form.input)
}

// setStatus rewrites the survivor with the new status and the year it took
// effect.
func (s service) setStatus(ctx context.Context, settlementID string, survivor backend.Survivor, form statusForm) (backend.Survivor, error) {
	input := survivor.Input()
	input.Status = form.status
	year := form.year
	input.StatusYear = &year
	return s.gateway.UpdateSurvivor(ctx, settlementID, survivor.ID.String(), input)
}

func (s service) deleteSurvivor(ctx context.Context, settlementID, survivorID string) error {
	return s.gateway.DeleteSurvivor(ctx, settlementID, survivorID)
}
