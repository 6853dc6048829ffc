package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

type graphCall struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
	auth      string
}

func newGraphServer(t *testing.T, status int, respond func(graphCall) any) (*GraphQLGateway, *[]graphCall) {
	t.Helper()
	var calls []graphCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call graphCall
		_ = json.NewDecoder(r.Body).Decode(&call)
		call.auth = r.Header.Get("Authorization")
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(respond(call))
	}))
	t.Cleanup(server.Close)
	return NewGraphQLGateway(server.URL+"/query", server.Client()), &calls
}

func TestGraphQLListSurvivors(t *testing.T) {
	gateway, calls := newGraphServer(t, http.StatusOK, func(graphCall) any {
		return map[string]any{"data": map[string]any{"survivors": []map[string]any{
			{"id": "5", "name": "Zachary", "gender": "M", "huntxp": 2, "systemicpressure": 1},
		}}}
	})

	survivors, err := gateway.ListSurvivors(WithToken(context.Background(), "tok"), "3")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(survivors) != 1 {
		t.Fatalf("survivors = %+v", survivors)
	}
	got := survivors[0]
	if got.ID != "5" || got.SettlementID != "3" || got.HuntXP != 2 || got.SystemicPressure != 1 || got.Status != StatusAlive {
		t.Fatalf("survivor = %+v", got)
	}
	call := (*calls)[0]
	if !strings.Contains(call.Query, "survivors(filter: {settlementID: $settlementId})") {
		t.Fatalf("query = %q", call.Query)
	}
	if call.Variables["settlementId"] != "3" || call.auth != "Bearer tok" {
		t.Fatalf("call = %+v", call)
	}
}

func TestGraphQLGetSettlementFiltersList(t *testing.T) {
	gateway, _ := newGraphServer(t, http.StatusOK, func(graphCall) any {
		return map[string]any{"data": map[string]any{"settlements": []map[string]any{
			{"id": "1", "name": "One"},
			{"id": "2", "name": "Two", "currentYear": 4},
		}}}
	})
	ctx := WithToken(context.Background(), "tok")

	settlement, err := gateway.GetSettlement(ctx, "2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settlement.Name != "Two" || settlement.Year != 4 {
		t.Fatalf("settlement = %+v", settlement)
	}
	if _, err := gateway.GetSettlement(ctx, "9"); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("missing settlement err = %v", err)
	}
}

func TestGraphQLCreateAndDelete(t *testing.T) {
	gateway, calls := newGraphServer(t, http.StatusOK, func(call graphCall) any {
		switch {
		case strings.Contains(call.Query, "createSettlement"):
			return map[string]any{"data": map[string]any{"createSettlement": map[string]any{"id": "8", "name": "Ash"}}}
		default:
			return map[string]any{"data": map[string]any{"deleteSurvivor": true}}
		}
	})
	ctx := WithToken(context.Background(), "tok")

	created, err := gateway.CreateSettlement(ctx, "Ash")
	if err != nil || created.ID != "8" {
		t.Fatalf("create = %+v, %v", created, err)
	}
	if err := gateway.DeleteSurvivor(ctx, "8", "5"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(*calls) != 2 {
		t.Fatalf("calls = %d", len(*calls))
	}
	input, _ := (*calls)[0].Variables["input"].(map[string]any)
	if input["name"] != "Ash" {
		t.Fatalf("create variables = %+v", (*calls)[0].Variables)
	}
	if (*calls)[1].Variables["id"] != "5" {
		t.Fatalf("delete variables = %+v", (*calls)[1].Variables)
	}
}

func TestGraphQLUpdateSurvivorSendsStatus(t *testing.T) {
	gateway, calls := newGraphServer(t, http.StatusOK, func(graphCall) any {
		return map[string]any{"data": map[string]any{"updateSurvivor": map[string]any{
			"id": "5", "name": "Zachary", "gender": "M", "status": "DEAD",
		}}}
	})

	year := 3
	got, err := gateway.UpdateSurvivor(WithToken(context.Background(), "tok"), "3", "5", SurvivorInput{Name: "Zachary", Gender: "M", Status: StatusDead, StatusYear: &year})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != StatusDead {
		t.Fatalf("status = %q, want DEAD", got.Status)
	}
	call := (*calls)[0]
	input, ok := call.Variables["input"].(map[string]any)
	if !ok {
		t.Fatalf("input = %#v", call.Variables["input"])
	}
	if input["status"] != "DEAD" || input["statusYear"] != float64(3) {
		t.Fatalf("input = %+v", input)
	}
	if _, ok := input["settlementID"]; ok {
		t.Fatalf("update input carries settlementID: %+v", input)
	}
	if !strings.Contains(call.Query, " status ") {
		t.Fatalf("query does not select status: %q", call.Query)
	}
}

func TestGraphQLErrorsAreClassified(t *testing.T) {
	gateway, _ := newGraphServer(t, http.StatusOK, func(graphCall) any {
		return map[string]any{"errors": []map[string]any{{"message": "name too long"}}}
	})
	_, err := gateway.CreateSettlement(WithToken(context.Background(), "tok"), "x")
	if apperrors.KindOf(err) != apperrors.KindInvalidInput {
		t.Fatalf("err = %v", err)
	}

	unauthorized, _ := newGraphServer(t, http.StatusUnauthorized, func(graphCall) any {
		return map[string]any{"message": "unauthorized"}
	})
	_, err = unauthorized.ListSettlements(WithToken(context.Background(), "tok"))
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}
