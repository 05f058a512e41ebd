package application

import (
	"strings"
	"testing"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/domain"
)

var testNow = time.Date(2025, 3, 13, 14, 30, 0, 0, time.UTC)

func TestRenderBody_AbsentValueRendersNA(t *testing.T) {
	rec := domain.RunRecord{
		RunType:       "scheduled",
		ExecutionDate: "2025-03-13",
		StartDate:     "2025-03-13 14:00",
		EndDate:       "2025-03-13 14:10",
		Status:        domain.StatusSuccess,
	}

	body, err := RenderBody(DefaultBodyTemplate, BodyContext("daily_etl", rec, testNow))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(body, "<strong>Run ID:</strong> N/A") {
		t.Errorf("missing run_id should render N/A, body:\n%s", body)
	}
	if !strings.Contains(body, "<strong>Run Type:</strong> scheduled") {
		t.Errorf("present fields must render unchanged, body:\n%s", body)
	}
	if !strings.Contains(body, "<strong>daily_etl</strong>") {
		t.Errorf("dag id not substituted, body:\n%s", body)
	}
}

func TestRenderBody_UnknownPlaceholderErrors(t *testing.T) {
	_, err := RenderBody("<p>{no_such_key}</p>", BodyContext("d", domain.RunRecord{}, testNow))
	if err == nil {
		t.Fatal("unknown placeholder must error, not vanish")
	}
	if !strings.Contains(err.Error(), "no_such_key") {
		t.Errorf("error should name the placeholder: %v", err)
	}
}

func TestRenderBody_LiteralBracesPreserved(t *testing.T) {
	tmpl := "<style>p {color: red}</style><p>{status}</p>"
	body, err := RenderBody(tmpl, BodyContext("d", domain.RunRecord{Status: domain.StatusFailed}, testNow))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "{color: red}") {
		t.Errorf("CSS braces must pass through, got: %s", body)
	}
	if !strings.Contains(body, "<p>failed</p>") {
		t.Errorf("placeholder not substituted, got: %s", body)
	}
}

func TestDefaultSubject(t *testing.T) {
	rec := domain.RunRecord{Status: domain.StatusSuccess}
	got := DefaultSubject("daily_etl", rec, testNow)
	want := "daily_etl Run Report: success - 2025-03-13 14:30"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = DefaultSubject("daily_etl", domain.RunRecord{}, testNow)
	if !strings.Contains(got, "N/A") {
		t.Errorf("empty status should render N/A: %q", got)
	}
}
