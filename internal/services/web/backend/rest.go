package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

const maxResponseBytes = 4 << 20

// RESTGateway calls the backend's JSON routes.
type RESTGateway struct {
	baseURL string
	client  *http.Client
}

var _ Gateway = (*RESTGateway)(nil)

// NewRESTGateway targets baseURL, e.g. http://localhost:8080.
func NewRESTGateway(baseURL string, client *http.Client) *RESTGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTGateway{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), client: client}
}

func (g *RESTGateway) ListSettlements(ctx context.Context) ([]Settlement, error) {
	var out []Settlement
	if err := g.do(ctx, http.MethodGet, "list settlements", nil, &out, "settlements"); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *RESTGateway) GetSettlement(ctx context.Context, settlementID string) (Settlement, error) {
	var out Settlement
	if err := g.do(ctx, http.MethodGet, "get settlement", nil, &out, "settlements", settlementID); err != nil {
		return Settlement{}, err
	}
	return out, nil
}

func (g *RESTGateway) CreateSettlement(ctx context.Context, name string) (Settlement, error) {
	var out Settlement
	body := map[string]string{"name": name}
	if err := g.do(ctx, http.MethodPost, "create settlement", body, &out, "settlements"); err != nil {
		return Settlement{}, err
	}
	return out, nil
}

func (g *RESTGateway) ListSurvivors(ctx context.Context, settlementID string) ([]Survivor, error) {
	var out []Survivor
	if err := g.do(ctx, http.MethodGet, "list survivors", nil, &out, "settlements", settlementID, "survivors"); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *RESTGateway) CreateSurvivor(ctx context.Context, settlementID string, input SurvivorInput) (Survivor, error) {
	var out Survivor
	if err := g.do(ctx, http.MethodPost, "create survivor", input, &out, "settlements", settlementID, "survivors"); err != nil {
		return Survivor{}, err
	}
	return out, nil
}

func (g *RESTGateway) UpdateSurvivor(ctx context.Context, settlementID, survivorID string, input SurvivorInput) (Survivor, error) {
	var out Survivor
	if err := g.do(ctx, http.MethodPost, "update survivor", input, &out, "settlements", settlementID, "survivors", survivorID); err != nil {
		return Survivor{}, err
	}
	return out, nil
}

func (g *RESTGateway) DeleteSurvivor(ctx context.Context, settlementID, survivorID string) error {
	return g.do(ctx, http.MethodDelete, "delete survivor", nil, nil, "settlements", settlementID, "survivors", survivorID)
}

// do sends one request. out may be nil, and an empty success body leaves it
// untouched.
func (g *RESTGateway) do(ctx context.Context, method, operation string, in, out any, segments ...string) error {
	token, err := requireToken(ctx)
	if err != nil {
		return err
	}
	endpoint, err := g.endpoint(segments...)
	if err != nil {
		return fetchError(apperrors.KindInvalidInput, operation, err)
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fetchError(apperrors.KindInvalidInput, operation, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fetchError(apperrors.KindUnknown, operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fetchError(apperrors.KindUnavailable, operation, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fetchError(apperrors.KindUnavailable, operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fetchError(apperrors.KindForStatus(resp.StatusCode), operation, fmt.Errorf("status %d", resp.StatusCode))
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fetchError(apperrors.KindUnavailable, operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (g *RESTGateway) endpoint(segments ...string) (string, error) {
	if g.baseURL == "" {
		return "", fmt.Errorf("backend base url is not configured")
	}
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return "", fmt.Errorf("empty path segment")
		}
		escaped = append(escaped, url.PathEscape(segment))
	}
	return g.baseURL + "/" + strings.Join(escaped, "/"), nil
}
