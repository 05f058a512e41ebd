package domain

import "time"

type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusFailed  RunStatus = "failed"
	StatusRunning RunStatus = "running"
	StatusUnknown RunStatus = "unknown"
)

func ParseRunStatus(s string) RunStatus {
	switch s {
	case "success":
		return StatusSuccess
	case "failed":
		return StatusFailed
	case "running":
		return StatusRunning
	default:
		return StatusUnknown
	}
}

// RunRecord is the latest execution of the target DAG as read from the
// top row of the scheduler's run listing. Empty fields mean the UI did
// not show a value.
type RunRecord struct {
	RunID         string
	RunType       string
	ExecutionDate string
	StartDate     string
	EndDate       string
	Status        RunStatus
}

// Artifact is a screenshot written under the artifacts directory.
type Artifact struct {
	Path string
	Name string
}

// Filters narrow the run listing before capture. Zero values mean no
// filtering.
type Filters struct {
	Status    RunStatus
	DateRange string
}

func (f Filters) Empty() bool {
	return f.Status == "" && f.DateRange == ""
}

// FilterOutcome records whether the best-effort filter step took
// effect. A skipped filter never fails the pipeline.
type FilterOutcome struct {
	Applied bool
	Reason  string
}

func FilterApplied() FilterOutcome { return FilterOutcome{Applied: true} }

func FilterSkipped(reason string) FilterOutcome { return FilterOutcome{Reason: reason} }

type MessageState string

const (
	MessageDraft MessageState = "draft"
	MessageSent  MessageState = "sent"
)

// Message is the report email. The email service is the store of
// record; ID addresses the remote draft.
type Message struct {
	ID      string
	Subject string
	State   MessageState
}

// Stage names the pipeline steps in execution order.
type Stage string

const (
	StageConfig   Stage = "config"
	StageSession  Stage = "session"
	StageCapture  Stage = "capture"
	StageCompose  Stage = "compose"
	StageDispatch Stage = "dispatch"
)

type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeLeftAsDraft Outcome = "left_as_draft"
)

type PipelineResult struct {
	RunID       string
	OK          bool
	Elapsed     time.Duration
	FailedStage Stage
	Cause       string

	Filter    FilterOutcome
	Record    RunRecord
	Artifact  Artifact
	ObjectKey string
	Message   Message
	Outcome   Outcome
}

// Snapshot is the status record persisted after every pipeline run.
type Snapshot struct {
	RunID     string
	DagID     string
	OK        bool
	Stage     Stage
	Status    RunStatus
	Artifact  string
	ObjectKey string
	MessageID string
	Outcome   Outcome
	Elapsed   time.Duration
	Finished  int64
}
