package status_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/dchurbanov/dag-reporter/internal/domain"
)

// FSSink writes the latest pipeline snapshot as pretty JSON at a fixed
// path, replacing the previous one.
type FSSink struct {
	path string
}

func New(path string) *FSSink { return &FSSink{path: path} }

func (c *FSSink) Write(_ context.Context, s domain.Snapshot) error {
	if c.path == "" {
		return errors.New("status path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	type out struct {
		RunID     string `json:"run_id"`
		DagID     string `json:"dag_id"`
		OK        bool   `json:"ok"`
		Stage     string `json:"stage"`
		Status    string `json:"status"`
		Artifact  string `json:"artifact,omitempty"`
		ObjectKey string `json:"object_key,omitempty"`
		MessageID string `json:"message_id,omitempty"`
		Outcome   string `json:"outcome,omitempty"`
		ElapsedMS int64  `json:"elapsed_ms"`
		Finished  int64  `json:"finished"`
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(out{
		RunID:     s.RunID,
		DagID:     s.DagID,
		OK:        s.OK,
		Stage:     string(s.Stage),
		Status:    string(s.Status),
		Artifact:  s.Artifact,
		ObjectKey: s.ObjectKey,
		MessageID: s.MessageID,
		Outcome:   string(s.Outcome),
		ElapsedMS: s.Elapsed.Milliseconds(),
		Finished:  s.Finished,
	})
}
