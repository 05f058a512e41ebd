package status_fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/domain"
)

func TestWrite_CreatesSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.json")

	sink := New(path)
	s := domain.Snapshot{
		RunID:    "run-1",
		DagID:    "daily_etl",
		OK:       true,
		Status:   domain.StatusSuccess,
		Artifact: "screenshots/dag_runs_1.png",
		Outcome:  domain.OutcomeLeftAsDraft,
		Elapsed:  42 * time.Second,
		Finished: 123,
	}
	if err := sink.Write(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("not valid JSON: %v", err)
	}
	if out["dag_id"] != "daily_etl" || out["outcome"] != "left_as_draft" {
		t.Errorf("snapshot content: %v", out)
	}
	if out["elapsed_ms"] != float64(42000) {
		t.Errorf("elapsed_ms: %v", out["elapsed_ms"])
	}
}

func TestWrite_EmptyPathErrors(t *testing.T) {
	if err := New("").Write(context.Background(), domain.Snapshot{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
