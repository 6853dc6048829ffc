package settlements

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
	apperrors "github.com/failuretoload/datamonster-web/internal/services/web/platform/errors"
)

const (
	maxSettlementName = 25
	maxSurvivorName   = 50
	maxStatusYear     = 30
)

// parseSettlementName trims raw and requires 1 to 25 characters.
func parseSettlementName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperrors.EK(apperrors.KindInvalidInput, "web.settlements.error.name_required", "settlement name is required")
	}
	if utf8.RuneCountInString(name) > maxSettlementName {
		return "", apperrors.EK(apperrors.KindInvalidInput, "web.settlements.error.name_too_long", "settlement name is too long")
	}
	return name, nil
}

// survivorField is one numeric input of the survivor form.
type survivorField struct {
	key    string
	label  string
	nonNeg bool
	get    func(*backend.SurvivorInput) *int
}

var survivorNumberFields = []survivorField{
	{key: "born", label: "web.survivor.born", get: func(in *backend.SurvivorInput) *int { return &in.Born }},
	{key: "hunt_xp", label: "web.survivor.hunt_xp", get: func(in *backend.SurvivorInput) *int { return &in.HuntXP }},
	{key: "survival", label: "web.survivor.survival", nonNeg: true, get: func(in *backend.SurvivorInput) *int { return &in.Survival }},
	{key: "movement", label: "web.survivor.movement", get: func(in *backend.SurvivorInput) *int { return &in.Movement }},
	{key: "accuracy", label: "web.survivor.accuracy", get: func(in *backend.SurvivorInput) *int { return &in.Accuracy }},
	{key: "strength", label: "web.survivor.strength", get: func(in *backend.SurvivorInput) *int { return &in.Strength }},
	{key: "evasion", label: "web.survivor.evasion", get: func(in *backend.SurvivorInput) *int { return &in.Evasion }},
	{key: "luck", label: "web.survivor.luck", get: func(in *backend.SurvivorInput) *int { return &in.Luck }},
	{key: "speed", label: "web.survivor.speed", get: func(in *backend.SurvivorInput) *int { return &in.Speed }},
	{key: "insanity", label: "web.survivor.insanity", nonNeg: true, get: func(in *backend.SurvivorInput) *int { return &in.Insanity }},
	{key: "systemic_pressure", label: "web.survivor.systemic_pressure", get: func(in *backend.SurvivorInput) *int { return &in.SystemicPressure }},
	{key: "torment", label: "web.survivor.torment", get: func(in *backend.SurvivorInput) *int { return &in.Torment }},
	{key: "lumi", label: "web.survivor.lumi", nonNeg: true, get: func(in *backend.SurvivorInput) *int { return &in.Lumi }},
	{key: "courage", label: "web.survivor.courage", get: func(in *backend.SurvivorInput) *int { return &in.Courage }},
	{key: "understanding", label: "web.survivor.understanding", get: func(in *backend.SurvivorInput) *int { return &in.Understanding }},
}

// survivorForm is a submitted survivor form: the raw values for re-display
// and the field errors, keyed by field name, as catalog keys.
type survivorForm struct {
	values url.Values
	errors map[string]string
	input  backend.SurvivorInput
}

func (f survivorForm) valid() bool { return len(f.errors) == 0 }

// parseSurvivorForm validates the survivor form: name 1 to 50 characters,
// gender M or F, survival, insanity and lumi not negative, every stat an
// integer.
func parseSurvivorForm(values url.Values) survivorForm {
	form := survivorForm{values: values, errors: map[string]string{}}
	name := strings.TrimSpace(values.Get("name"))
	switch {
	case name == "":
		form.errors["name"] = "web.survivor.error.name_required"
	case utf8.RuneCountInString(name) > maxSurvivorName:
		form.errors["name"] = "web.survivor.error.name_too_long"
	}
	form.input.Name = name

	gender := strings.ToUpper(strings.TrimSpace(values.Get("gender")))
	if gender != "M" && gender != "F" {
		form.errors["gender"] = "web.survivor.error.gender"
	}
	form.input.Gender = gender

	for _, field := range survivorNumberFields {
		raw := strings.TrimSpace(values.Get(field.key))
		if raw == "" {
			raw = "0"
		}
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			form.errors[field.key] = "web.survivor.error.integer"
		case field.nonNeg && n < 0:
			form.errors[field.key] = "web.survivor.error.negative"
		default:
			*field.get(&form.input) = n
		}
	}
	return form
}

// formFromSurvivor prefills the form with s.
func formFromSurvivor(s backend.Survivor) survivorForm {
	input := s.Input()
	values := url.Values{}
	values.Set("name", input.Name)
	values.Set("gender", input.Gender)
	for _, field := range survivorNumberFields {
		values.Set(field.key, strconv.Itoa(*field.get(&input)))
	}
	return survivorForm{values: values, errors: map[string]string{}, input: input}
}

// statusForm is a submitted status dialog.
type statusForm struct {
	status backend.Status
	year   int
	rawYr  string
	errors map[string]string
}

func parseStatusForm(values url.Values) statusForm {
	form := statusForm{errors: map[string]string{}, rawYr: strings.TrimSpace(values.Get("year"))}
	status, ok := backend.ParseStatus(values.Get("status"))
	if !ok {
		form.errors["status"] = "web.survivor.error.status"
	}
	form.status = status
	year, err := strconv.Atoi(form.rawYr)
	if err != nil || year < 0 || year > maxStatusYear {
		form.errors["year"] = "web.survivor.error.year"
	}
	form.year = year
	return form
}
