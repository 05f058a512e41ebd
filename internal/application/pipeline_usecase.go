package application

import (
	"context"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Params are the per-run inputs of the pipeline, already resolved and
// validated by the configuration layer.
type Params struct {
	BaseURL      string
	DagID        string
	Filters      domain.Filters
	Recipients   []string
	Subject      string
	BodyTemplate string
	Send         bool
}

// ReportUseCase runs the capture-compose-dispatch pipeline once. The
// browser session is acquired at the start and released on every exit
// path; no stage is retried.
type ReportUseCase struct {
	log     *zap.Logger
	browser domain.Browser
	mailer  domain.Mailer
	store   domain.ArtifactStore
	sink    domain.StatusSink

	now func() time.Time
}

func NewReportUseCase(log *zap.Logger, b domain.Browser, m domain.Mailer, opts ...Option) *ReportUseCase {
	uc := &ReportUseCase{log: log, browser: b, mailer: m, now: time.Now}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

type Option func(*ReportUseCase)

// WithArtifactStore mirrors screenshots to object storage. Upload
// failure never fails the pipeline.
func WithArtifactStore(s domain.ArtifactStore) Option {
	return func(uc *ReportUseCase) { uc.store = s }
}

// WithStatusSink persists a snapshot after every run.
func WithStatusSink(s domain.StatusSink) Option {
	return func(uc *ReportUseCase) { uc.sink = s }
}

// WithClock overrides the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(uc *ReportUseCase) { uc.now = now }
}

func (uc *ReportUseCase) Run(ctx context.Context, p Params) (res domain.PipelineResult) {
	start := time.Now()
	res.RunID = uuid.NewString()
	log := uc.log.With(zap.String("run", res.RunID), zap.String("dag", p.DagID))

	defer func() {
		res.Elapsed = time.Since(start)
		uc.writeSnapshot(ctx, p, res)
		if res.OK {
			log.Info("pipeline done",
				zap.Duration("elapsed", res.Elapsed),
				zap.String("outcome", string(res.Outcome)))
		} else {
			log.Error("pipeline failed",
				zap.Duration("elapsed", res.Elapsed),
				zap.String("stage", string(res.FailedStage)),
				zap.String("cause", res.Cause))
		}
	}()

	defer func() {
		if err := uc.browser.Close(ctx); err != nil {
			log.Warn("browser close", zap.Error(err))
		}
	}()

	fail := func(stage domain.Stage, err error) domain.PipelineResult {
		res.FailedStage = stage
		res.Cause = err.Error()
		return res
	}

	// Session.
	if err := uc.browser.Start(ctx); err != nil {
		return fail(domain.StageSession, err)
	}

	// Capture.
	if err := uc.browser.Login(ctx, p.BaseURL); err != nil {
		return fail(domain.StageCapture, err)
	}
	if err := uc.browser.OpenRuns(ctx, p.DagID); err != nil {
		return fail(domain.StageCapture, err)
	}

	if p.Filters.Empty() {
		res.Filter = domain.FilterSkipped("no filters configured")
	} else if err := uc.browser.Filter(ctx, p.Filters); err != nil {
		// Filtering is best-effort: capture proceeds with whatever the
		// listing currently shows.
		res.Filter = domain.FilterSkipped(err.Error())
		log.Warn("filter skipped", zap.Error(err))
	} else {
		res.Filter = domain.FilterApplied()
	}

	shot, err := uc.browser.Screenshot(ctx, "dag_runs")
	if err != nil {
		return fail(domain.StageCapture, err)
	}
	res.Artifact = shot

	rec, err := uc.browser.LastRun(ctx)
	if err != nil {
		return fail(domain.StageCapture, err)
	}
	res.Record = rec
	log.Info("run captured",
		zap.String("run_id", rec.RunID),
		zap.String("status", string(rec.Status)),
		zap.String("artifact", shot.Path))

	if uc.store != nil {
		if key, err := uc.store.Upload(ctx, p.DagID, shot); err != nil {
			log.Warn("artifact upload failed", zap.Error(err))
		} else {
			res.ObjectKey = key
			log.Info("artifact uploaded", zap.String("key", key))
		}
	}

	// Compose.
	msg, err := uc.compose(ctx, p, shot, rec)
	if err != nil {
		return fail(domain.StageCompose, err)
	}
	res.Message = msg

	// Dispatch.
	if !p.Send {
		res.Outcome = domain.OutcomeLeftAsDraft
		res.OK = true
		return res
	}
	if err := uc.mailer.SendDraft(ctx, msg.ID); err != nil {
		return fail(domain.StageDispatch, err)
	}
	res.Message.State = domain.MessageSent
	res.Outcome = domain.OutcomeSent
	res.OK = true
	return res
}

// compose renders the report and creates the remote draft with the
// screenshot attached. The draft id is the handle everything after
// this point works with.
func (uc *ReportUseCase) compose(ctx context.Context, p Params, shot domain.Artifact, rec domain.RunRecord) (domain.Message, error) {
	now := uc.now()

	subject := p.Subject
	if subject == "" {
		subject = DefaultSubject(p.DagID, rec, now)
	}

	tmpl := p.BodyTemplate
	if tmpl == "" {
		tmpl = DefaultBodyTemplate
	}

	body, err := RenderBody(tmpl, BodyContext(p.DagID, rec, now))
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := uc.mailer.CreateDraft(ctx, subject, body, p.Recipients)
	if err != nil {
		return domain.Message{}, err
	}

	if err := uc.mailer.AddAttachment(ctx, msg.ID, shot); err != nil {
		return domain.Message{}, err
	}

	return msg, nil
}

func (uc *ReportUseCase) writeSnapshot(ctx context.Context, p Params, res domain.PipelineResult) {
	if uc.sink == nil {
		return
	}

	stage := res.FailedStage
	if res.OK {
		stage = ""
	}

	s := domain.Snapshot{
		RunID:     res.RunID,
		DagID:     p.DagID,
		OK:        res.OK,
		Stage:     stage,
		Status:    res.Record.Status,
		Artifact:  res.Artifact.Path,
		ObjectKey: res.ObjectKey,
		MessageID: res.Message.ID,
		Outcome:   res.Outcome,
		Elapsed:   res.Elapsed,
		Finished:  uc.now().Unix(),
	}
	if err := uc.sink.Write(ctx, s); err != nil {
		uc.log.Warn("status snapshot write failed", zap.Error(err))
	}
}
