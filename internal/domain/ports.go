package domain

import "context"

// Browser drives the scheduler UI. Start acquires the underlying
// session; Close must be safe to call whether or not Start succeeded.
type Browser interface {
	Start(ctx context.Context) error
	Login(ctx context.Context, baseURL string) error
	OpenRuns(ctx context.Context, dagID string) error
	Filter(ctx context.Context, f Filters) error
	Screenshot(ctx context.Context, prefix string) (Artifact, error)
	LastRun(ctx context.Context) (RunRecord, error)
	Close(ctx context.Context) error
}

// Mailer is the email service. Drafts live remotely; only their id
// crosses this boundary after creation.
type Mailer interface {
	CreateDraft(ctx context.Context, subject, htmlBody string, recipients []string) (Message, error)
	AddAttachment(ctx context.Context, messageID string, a Artifact) error
	SendDraft(ctx context.Context, messageID string) error
}

// ArtifactStore uploads captured artifacts to object storage and
// returns the object key.
type ArtifactStore interface {
	Upload(ctx context.Context, dagID string, a Artifact) (string, error)
}

// StatusSink persists the per-run snapshot.
type StatusSink interface {
	Write(ctx context.Context, s Snapshot) error
}
