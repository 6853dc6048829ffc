package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/machinebox/graphql"

	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

const (
	settlementFields = "id name survivalLimit departingSurvival collectiveCognition currentYear"
	survivorFields   = "id name born gender status huntxp survival movement accuracy strength evasion luck speed insanity systemicpressure torment lumi courage understanding"
)

var (
	settlementsQuery = "query GetSettlements { settlements { " + settlementFields + " } }"
	createSettlement = "mutation CreateSettlement($input: CreateSettlementInput!) { createSettlement(input: $input) { " + settlementFields + " } }"
	survivorsQuery   = "query GetSurvivors($settlementId: ID!) { survivors(filter: {settlementID: $settlementId}) { " + survivorFields + " } }"
	createSurvivor   = "mutation CreateSurvivor($input: CreateSurvivorInput!) { createSurvivor(input: $input) { " + survivorFields + " } }"
	updateSurvivor   = "mutation UpdateSurvivor($id: ID!, $input: UpdateSurvivorInput!) { updateSurvivor(id: $id, input: $input) { " + survivorFields + " } }"
	deleteSurvivor   = "mutation DeleteSurvivor($id: ID!) { deleteSurvivor(id: $id) }"
)

// GraphQLGateway calls the backend's GraphQL endpoint.
type GraphQLGateway struct {
	client *graphql.Client
}

var _ Gateway = (*GraphQLGateway)(nil)

// NewGraphQLGateway targets endpoint, e.g. http://localhost:8080/query.
func NewGraphQLGateway(endpoint string, client *http.Client) *GraphQLGateway {
	if client == nil {
		client = http.DefaultClient
	}
	recording := *client
	recording.Transport = statusRecorder{base: client.Transport}
	return &GraphQLGateway{client: graphql.NewClient(strings.TrimSpace(endpoint), graphql.WithHTTPClient(&recording))}
}

type graphSettlement struct {
	ID                  ID     `json:"id"`
	Name                string `json:"name"`
	SurvivalLimit       int    `json:"survivalLimit"`
	DepartingSurvival   int    `json:"departingSurvival"`
	CollectiveCognition int    `json:"collectiveCognition"`
	CurrentYear         int    `json:"currentYear"`
}

func (s graphSettlement) settlement() Settlement {
	return Settlement{
		ID:                  s.ID,
		Name:                s.Name,
		SurvivalLimit:       s.SurvivalLimit,
		DepartingSurvival:   s.DepartingSurvival,
		CollectiveCognition: s.CollectiveCognition,
		Year:                s.CurrentYear,
	}
}

type graphSurvivor struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Born             int    `json:"born"`
	Gender           string `json:"gender"`
	Status           string `json:"status"`
	HuntXP           int    `json:"huntxp"`
	Survival         int    `json:"survival"`
	Movement         int    `json:"movement"`
	Accuracy         int    `json:"accuracy"`
	Strength         int    `json:"strength"`
	Evasion          int    `json:"evasion"`
	Luck             int    `json:"luck"`
	Speed            int    `json:"speed"`
	Insanity         int    `json:"insanity"`
	SystemicPressure int    `json:"systemicpressure"`
	Torment          int    `json:"torment"`
	Lumi             int    `json:"lumi"`
	Courage          int    `json:"courage"`
	Understanding    int    `json:"understanding"`
}

// survivor maps the graph shape. A missing or unknown status reads as alive.
func (s graphSurvivor) survivor(settlementID string) Survivor {
	status, ok := ParseStatus(s.Status)
	if !ok {
		status = StatusAlive
	}
	return Survivor{
		ID: s.ID, SettlementID: ID(settlementID), Name: s.Name, Born: s.Born,
		Gender: s.Gender, Status: status, HuntXP: s.HuntXP,
		Survival: s.Survival, Movement: s.Movement, Accuracy: s.Accuracy,
		Strength: s.Strength, Evasion: s.Evasion, Luck: s.Luck, Speed: s.Speed,
		Insanity: s.Insanity, SystemicPressure: s.SystemicPressure,
		Torment: s.Torment, Lumi: s.Lumi, Courage: s.Courage,
		Understanding: s.Understanding,
	}
}

func graphSurvivorInput(settlementID string, in SurvivorInput) map[string]any {
	out := map[string]any{
		"name": in.Name, "born": in.Born, "gender": in.Gender,
		"huntxp": in.HuntXP, "survival": in.Survival, "movement": in.Movement,
		"accuracy": in.Accuracy, "strength": in.Strength, "evasion": in.Evasion,
		"luck": in.Luck, "speed": in.Speed, "insanity": in.Insanity,
		"systemicpressure": in.SystemicPressure, "torment": in.Torment,
		"lumi": in.Lumi, "courage": in.Courage, "understanding": in.Understanding,
	}
	if settlementID != "" {
		out["settlementID"] = settlementID
	}
	if in.Status != "" {
		out["status"] = string(in.Status)
	}
	if in.StatusYear != nil {
		out["statusYear"] = *in.StatusYear
	}
	return out
}

func (g *GraphQLGateway) ListSettlements(ctx context.Context) ([]Settlement, error) {
	var resp struct {
		Settlements []graphSettlement `json:"settlements"`
	}
	if err := g.run(ctx, "list settlements", graphql.NewRequest(settlementsQuery), &resp); err != nil {
		return nil, err
	}
	out := make([]Settlement, 0, len(resp.Settlements))
	for _, s := range resp.Settlements {
		out = append(out, s.settlement())
	}
	return out, nil
}

// GetSettlement filters the settlement list; the graph has no single
// settlement query.
func (g *GraphQLGateway) GetSettlement(ctx context.Context, settlementID string) (Settlement, error) {
	settlements, err := g.ListSettlements(ctx)
	if err != nil {
		return Settlement{}, err
	}
	for _, s := range settlements {
		if s.ID.String() == strings.TrimSpace(settlementID) {
			return s, nil
		}
	}
	return Settlement{}, fetchError(apperrors.KindNotFound, "get settlement", fmt.Errorf("settlement %q not found", settlementID))
}

func (g *GraphQLGateway) CreateSettlement(ctx context.Context, name string) (Settlement, error) {
	req := graphql.NewRequest(createSettlement)
	req.Var("input", map[string]any{"name": name})
	var resp struct {
		CreateSettlement graphSettlement `json:"createSettlement"`
	}
	if err := g.run(ctx, "create settlement", req, &resp); err != nil {
		return Settlement{}, err
	}
	return resp.CreateSettlement.settlement(), nil
}

func (g *GraphQLGateway) ListSurvivors(ctx context.Context, settlementID string) ([]Survivor, error) {
	req := graphql.NewRequest(survivorsQuery)
	req.Var("settlementId", settlementID)
	var resp struct {
		Survivors []graphSurvivor `json:"survivors"`
	}
	if err := g.run(ctx, "list survivors", req, &resp); err != nil {
		return nil, err
	}
	out := make([]Survivor, 0, len(resp.Survivors))
	for _, s := range resp.Survivors {
		out = append(out, s.survivor(settlementID))
	}
	return out, nil
}

func (g *GraphQLGateway) CreateSurvivor(ctx context.Context, settlementID string, input SurvivorInput) (Survivor, error) {
	req := graphql.NewRequest(createSurvivor)
	req.Var("input", graphSurvivorInput(settlementID, input))
	var resp struct {
		CreateSurvivor graphSurvivor `json:"createSurvivor"`
	}
	if err := g.run(ctx, "create survivor", req, &resp); err != nil {
		return Survivor{}, err
	}
	return resp.CreateSurvivor.survivor(settlementID), nil
}

func (g *GraphQLGateway) UpdateSurvivor(ctx context.Context, settlementID, survivorID string, input SurvivorInput) (Survivor, error) {
	req := graphql.NewRequest(updateSurvivor)
	req.Var("id", survivorID)
	req.Var("input", graphSurvivorInput("", input))
	var resp struct {
		UpdateSurvivor graphSurvivor `json:"updateSurvivor"`
	}
	if err := g.run(ctx, "update survivor", req, &resp); err != nil {
		return Survivor{}, err
	}
	return resp.UpdateSurvivor.survivor(settlementID), nil
}

func (g *GraphQLGateway) DeleteSurvivor(ctx context.Context, _ string, survivorID string) error {
	req := graphql.NewRequest(deleteSurvivor)
	req.Var("id", survivorID)
	var resp struct {
		DeleteSurvivor bool `json:"deleteSurvivor"`
	}
	return g.run(ctx, "delete survivor", req, &resp)
}

func (g *GraphQLGateway) run(ctx context.Context, operation string, req *graphql.Request, out any) error {
	token, err := requireToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	status := new(atomic.Int32)
	ctx = context.WithValue(ctx, statusKey{}, status)
	if err := g.client.Run(ctx, req, out); err != nil {
		code := int(status.Load())
		var kind apperrors.Kind
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), code == 0:
			kind = apperrors.KindUnavailable
		case code >= 200 && code <= 299:
			// A 200 carrying GraphQL errors is a rejected operation.
			kind = apperrors.KindInvalidInput
		default:
			kind = apperrors.KindForStatus(code)
		}
		return fetchError(kind, operation, err)
	}
	// The client accepts any decodable body, whatever the status.
	if code := int(status.Load()); code < 200 || code > 299 {
		return fetchError(apperrors.KindForStatus(code), operation, fmt.Errorf("status %d", code))
	}
	return nil
}

type statusKey struct{}

// statusRecorder keeps the last HTTP status so GraphQL failures can be
// classified; the graphql client only reports them as text.
type statusRecorder struct {
	base http.RoundTripper
}

func (t statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if resp != nil {
		if status, ok := req.Context().Value(statusKey{}).(*atomic.Int32); ok {
			status.Store(int32(resp.StatusCode))
		}
	}
	return resp, err
}
