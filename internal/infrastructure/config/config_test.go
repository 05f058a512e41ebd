package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dchurbanov/dag-reporter/internal/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MS_GRAPH_CLIENT_ID", "client")
	t.Setenv("MS_GRAPH_TENANT_ID", "tenant")
	t.Setenv("MS_GRAPH_CLIENT_SECRET", "secret")
	t.Setenv("AIRFLOW_BASE_URL", "https://airflow.example.com")
	t.Setenv("DAG_ID", "daily_etl")
	t.Setenv("EMAIL_RECIPIENTS", "a@example.com, b@example.com")
}

func TestResolve_AllRequiredPresent(t *testing.T) {
	setRequiredEnv(t)

	s, err := Resolve("", Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DagID != "daily_etl" {
		t.Errorf("dag id: got %q", s.DagID)
	}
	if len(s.Recipients) != 2 || s.Recipients[1] != "b@example.com" {
		t.Errorf("recipients: got %v", s.Recipients)
	}
}

func TestResolve_MissingFieldIsNamed(t *testing.T) {
	cases := []string{
		"MS_GRAPH_CLIENT_ID",
		"MS_GRAPH_TENANT_ID",
		"MS_GRAPH_CLIENT_SECRET",
		"AIRFLOW_BASE_URL",
		"DAG_ID",
		"EMAIL_RECIPIENTS",
	}

	for _, name := range cases {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(name, "")

			_, err := Resolve("", Overrides{})
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Missing) != 1 || verr.Missing[0] != name {
				t.Errorf("expected missing [%s], got %v", name, verr.Missing)
			}
		})
	}
}

func TestResolve_PrecedenceFileEnvFlag(t *testing.T) {
	setRequiredEnv(t)

	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "config.yaml")
	yaml := `
dag_id: from_file
subject: file subject
`
	if err := os.WriteFile(cfgFile, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DAG_ID", "from_env")

	flag := "from_flag"
	s, err := Resolve(cfgFile, Overrides{DagID: &flag})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.DagID != "from_flag" {
		t.Errorf("flag should win: got %q", s.DagID)
	}
	// File value survives when neither env nor flag touches the key.
	if s.Subject != "file subject" {
		t.Errorf("file value lost: got %q", s.Subject)
	}

	// Without the flag, env beats file.
	s, err = Resolve(cfgFile, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DagID != "from_env" {
		t.Errorf("env should beat file: got %q", s.DagID)
	}
}

func TestResolve_JSONConfigFile(t *testing.T) {
	setRequiredEnv(t)

	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "config.json")
	blob := `{"status_filter": "failed", "headless": true, "artifacts_dir": "` + tmp + `"}`
	if err := os.WriteFile(cfgFile, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Resolve(cfgFile, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.StatusFilter != domain.StatusFailed {
		t.Errorf("status filter: got %q", s.StatusFilter)
	}
	if !s.Headless {
		t.Error("headless not applied from JSON")
	}
	if s.ArtifactsDir != tmp {
		t.Errorf("artifacts dir: got %q", s.ArtifactsDir)
	}
}

func TestSplitRecipients(t *testing.T) {
	got := SplitRecipients("a@x.com, ,b@x.com,")
	if len(got) != 2 || got[0] != "a@x.com" || got[1] != "b@x.com" {
		t.Errorf("got %v", got)
	}
	if SplitRecipients("") != nil {
		t.Error("empty input should yield no recipients")
	}
}
