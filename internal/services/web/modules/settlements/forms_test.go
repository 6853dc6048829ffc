package settlements

import (
	"net/url"
	"strings"
	"testing"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
)

func TestParseSurvivorForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		values     url.Values
		wantErrors []string
	}{
		{name: "valid", values: url.Values{"name": {"Lucy"}, "gender": {"F"}, "survival": {"2"}}},
		{name: "lowercase gender", values: url.Values{"name": {"Lucy"}, "gender": {"m"}}},
		{name: "missing name", values: url.Values{"name": {"  "}, "gender": {"F"}}, wantErrors: []string{"name"}},
		{name: "long name", values: url.Values{"name": {strings.Repeat("n", 51)}, "gender": {"F"}}, wantErrors: []string{"name"}},
		{name: "bad gender", values: url.Values{"name": {"Lucy"}, "gender": {"X"}}, wantErrors: []string{"gender"}},
		{name: "negative survival", values: url.Values{"name": {"Lucy"}, "gender": {"F"}, "survival": {"-1"}}, wantErrors: []string{"survival"}},
		{name: "negative insanity and lumi", values: url.Values{"name": {"Lucy"}, "gender": {"F"}, "insanity": {"-2"}, "lumi": {"-3"}}, wantErrors: []string{"insanity", "lumi"}},
		{name: "negative stat allowed", values: url.Values{"name": {"Lucy"}, "gender": {"F"}, "accuracy": {"-1"}}},
		{name: "not a number", values: url.Values{"name": {"Lucy"}, "gender": {"F"}, "luck": {"lots"}}, wantErrors: []string{"luck"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			form := parseSurvivorForm(tc.values)
			if len(form.errors) != len(tc.wantErrors) {
				t.Fatalf("errors = %v, want keys %v", form.errors, tc.wantErrors)
			}
			for _, key := range tc.wantErrors {
				if _, ok := form.errors[key]; !ok {
					t.Fatalf("missing error for %s: %v", key, form.errors)
				}
			}
		})
	}
}

func TestParseSurvivorFormValues(t *testing.T) {
	t.Parallel()

	form := parseSurvivorForm(url.Values{"name": {" Lucy "}, "gender": {"f"}, "survival": {"2"}, "accuracy": {"-1"}})
	if !form.valid() {
		t.Fatalf("errors = %v", form.errors)
	}
	in := form.input
	if in.Name != "Lucy" || in.Gender != "F" || in.Survival != 2 || in.Accuracy != -1 || in.Movement != 0 {
		t.Fatalf("input = %+v", in)
	}
}

func TestFormFromSurvivorRoundTrips(t *testing.T) {
	t.Parallel()

	form := formFromSurvivor(backend.DefaultSurvivor())
	parsed := parseSurvivorForm(form.values)
	if !parsed.valid() {
		t.Fatalf("errors = %v", parsed.errors)
	}
	if parsed.input.Name != "Meat" || parsed.input.Survival != 1 || parsed.input.Movement != 5 {
		t.Fatalf("input = %+v", parsed.input)
	}
}

func TestParseStatusForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status, year string
		wantErrors   int
	}{
		{status: "DEAD", year: "0"},
		{status: "skip_hunt", year: "30"},
		{status: "DEAD", year: "31", wantErrors: 1},
		{status: "DEAD", year: "-1", wantErrors: 1},
		{status: "DEAD", year: "soon", wantErrors: 1},
		{status: "ASCENDED", year: "3", wantErrors: 1},
	}
	for _, tc := range tests {
		form := parseStatusForm(url.Values{"status": {tc.status}, "year": {tc.year}})
		if len(form.errors) != tc.wantErrors {
			t.Fatalf("status %q year %q errors = %v", tc.status, tc.year, form.errors)
		}
	}
}

func TestParseSettlementName(t *testing.T) {
	t.Parallel()

	if _, err := parseSettlementName(strings.Repeat("x", 26)); err == nil {
		t.Fatal("expected long name error")
	}
	name, err := parseSettlementName("  Hoard ")
	if err != nil || name != "Hoard" {
		t.Fatalf("name = %q err = %v", name, err)
	}
}
