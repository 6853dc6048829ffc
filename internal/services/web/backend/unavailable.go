package backend

import (
	"context"

	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

// UnavailableGateway fails every call. It stands in when no backend is
// configured so pages render an error state instead of crashing.
type UnavailableGateway struct{}

var _ Gateway = UnavailableGateway{}

func unavailable(operation string) error {
	return fetchError(apperrors.KindUnavailable, operation+": backend is not configured", nil)
}

func (UnavailableGateway) ListSettlements(context.Context) ([]Settlement, error) {
	return nil, unavailable("list settlements")
}

func (UnavailableGateway) GetSettlement(context.Context, string) (Settlement, error) {
	return Settlement{}, unavailable("get settlement")
}

func (UnavailableGateway) CreateSettlement(context.Context, string) (Settlement, error) {
	return Settlement{}, unavailable("create settlement")
}

func (UnavailableGateway) ListSurvivors(context.Context, string) ([]Survivor, error) {
	return nil, unavailable("list survivors")
}

func (UnavailableGateway) CreateSurvivor(context.Context, string, SurvivorInput) (Survivor, error) {
	return Survivor{}, unavailable("create survivor")
}

func (UnavailableGateway) UpdateSurvivor(context.Context, string, string, SurvivorInput) (Survivor, error) {
	return Survivor{}, unavailable("update survivor")
}

func (UnavailableGateway) DeleteSurvivor(context.Context, string, string) error {
	return unavailable("delete survivor")
}
