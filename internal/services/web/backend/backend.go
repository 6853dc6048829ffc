// Package backend talks to the campaign backend on behalf of the signed-in
// user. The bearer token travels on the request context.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

// ErrResourceFetch marks every failed backend call.
var ErrResourceFetch = errors.New("resource fetch failed")

const resourceFetchKey = "error.web.message.resource_fetch_failed"

// ID is a backend identifier. The REST backend sends numbers and the GraphQL
// backend sends strings; both decode to the same text form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the numeric form of id for backends that key on integers.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// Settlement is a campaign save-container.
type Settlement struct {
	ID                  ID     `json:"id"`
	Name                string `json:"name"`
	SurvivalLimit       int    `json:"limit"`
	DepartingSurvival   int    `json:"departing"`
	CollectiveCognition int    `json:"cc"`
	Year                int    `json:"year"`
}

// Status is a survivor's lifecycle status.
type Status string

const (
	StatusAlive         Status = "ALIVE"
	StatusCeasedToExist Status = "CEASED_TO_EXIST"
	StatusDead          Status = "DEAD"
	StatusRetired       Status = "RETIRED"
	StatusSkipHunt      Status = "SKIP_HUNT"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusAlive, StatusCeasedToExist, StatusDead, StatusRetired, StatusSkipHunt}
}

// ParseStatus accepts a status name in any case.
func ParseStatus(raw string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range Statuses() {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Survivor is a player character.
type Survivor struct {
	ID               ID     `json:"id"`
	SettlementID     ID     `json:"settlementID"`
	Name             string `json:"name"`
	Born             int    `json:"born"`
	Gender           string `json:"gender"`
	Status           Status `json:"status"`
	HuntXP           int    `json:"huntXp"`
	Survival         int    `json:"survival"`
	Movement         int    `json:"movement"`
	Accuracy         int    `json:"accuracy"`
	Strength         int    `json:"strength"`
	Evasion          int    `json:"evasion"`
	Luck             int    `json:"luck"`
	Speed            int    `json:"speed"`
	Insanity         int    `json:"insanity"`
	SystemicPressure int    `json:"systemicPressure"`
	Torment          int    `json:"torment"`
	Lumi             int    `json:"lumi"`
	Courage          int    `json:"courage"`
	Understanding    int    `json:"understanding"`
}

// DefaultSurvivor is the starting point of the creation form.
func DefaultSurvivor() Survivor {
	return Survivor{Name: "Meat", Gender: "M", Survival: 1, Movement: 5, Status: StatusAlive}
}

// SurvivorInput is the writable part of a survivor.
type SurvivorInput struct {
	Name             string `json:"name"`
	Born             int    `json:"born"`
	Gender           string `json:"gender"`
	Status           Status `json:"status,omitempty"`
	StatusYear       *int   `json:"statusYear,omitempty"`
	HuntXP           int    `json:"huntXp"`
	Survival         int    `json:"survival"`
	Movement         int    `json:"movement"`
	Accuracy         int    `json:"accuracy"`
	Strength         int    `json:"strength"`
	Evasion          int    `json:"evasion"`
	Luck             int    `json:"luck"`
	Speed            int    `json:"speed"`
	Insanity         int    `json:"insanity"`
	SystemicPressure int    `json:"systemicPressure"`
	Torment          int    `json:"torment"`
	Lumi             int    `json:"lumi"`
	Courage          int    `json:"courage"`
	Understanding    int    `json:"understanding"`
}

// Input returns the writable fields of s.
func (s Survivor) Input() SurvivorInput {
	return SurvivorInput{
		Name: s.Name, Born: s.Born, Gender: s.Gender, Status: s.Status,
		HuntXP: s.HuntXP, Survival: s.Survival, Movement: s.Movement,
		Accuracy: s.Accuracy, Strength: s.Strength, Evasion: s.Evasion,
		Luck: s.Luck, Speed: s.Speed, Insanity: s.Insanity,
		SystemicPressure: s.SystemicPressure, Torment: s.Torment, Lumi: s.Lumi,
		Courage: s.Courage, Understanding: s.Understanding,
	}
}

// Gateway is the campaign backend as the web frontend sees it.
type Gateway interface {
	ListSettlements(ctx context.Context) ([]Settlement, error)
	GetSettlement(ctx context.Context, settlementID string) (Settlement, error)
	CreateSettlement(ctx context.Context, name string) (Settlement, error)
	ListSurvivors(ctx context.Context, settlementID string) ([]Survivor, error)
	CreateSurvivor(ctx context.Context, settlementID string, input SurvivorInput) (Survivor, error)
	UpdateSurvivor(ctx context.Context, settlementID, survivorID string, input SurvivorInput) (Survivor, error)
	DeleteSurvivor(ctx context.Context, settlementID, survivorID string) error
}

type tokenKey struct{}

// WithToken attaches the bearer token for backend calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

// TokenFromContext returns the bearer token attached by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	return token, token != ""
}

func requireToken(ctx context.Context) (string, error) {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return "", apperrors.Wrap(apperrors.KindUnauthorized, resourceFetchKey, "backend token is missing", ErrResourceFetch)
	}
	return token, nil
}

func fetchError(kind apperrors.Kind, operation string, cause error) error {
	if cause == nil {
		cause = ErrResourceFetch
	} else {
		cause = fmt.Errorf("%w: %w", ErrResourceFetch, cause)
	}
	return apperrors.Wrap(kind, resourceFetchKey, operation, cause)
}

// IsUnauthorized reports whether the backend rejected the session token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrResourceFetch) && apperrors.KindOf(err) == apperrors.KindUnauthorized
}
