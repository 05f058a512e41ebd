package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/domain"
	"go.uber.org/zap"
)

func TestScheduler_PauseFileSkipsTick(t *testing.T) {
	browser := happyBrowser()
	mailer := &domain.MockMailer{}
	uc := NewReportUseCase(zap.NewNop(), browser, mailer)

	pause := filepath.Join(t.TempDir(), "paused")
	if err := os.WriteFile(pause, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(zap.NewNop(), uc, testParams(false), time.Minute, pause)
	s.tick(context.Background())

	if len(browser.Calls) != 0 {
		t.Errorf("paused tick must not run the pipeline, calls: %v", browser.Calls)
	}

	if err := os.Remove(pause); err != nil {
		t.Fatal(err)
	}
	s.tick(context.Background())
	if len(browser.Calls) == 0 {
		t.Error("unpaused tick should run the pipeline")
	}
}

func TestScheduler_UpdateParamsSwapsSettings(t *testing.T) {
	browser := happyBrowser()
	uc := NewReportUseCase(zap.NewNop(), browser, &domain.MockMailer{})
	s := NewScheduler(zap.NewNop(), uc, testParams(false), time.Minute, "")

	next := testParams(false)
	next.DagID = "other_dag"
	s.UpdateParams(next)

	s.mu.RLock()
	got := s.params.DagID
	s.mu.RUnlock()
	if got != "other_dag" {
		t.Errorf("params not swapped: %q", got)
	}
}
