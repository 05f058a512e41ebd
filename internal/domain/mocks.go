package domain

import "context"

type MockBrowser struct {
	StartErr      error
	LoginErr      error
	OpenErr       error
	FilterErr     error
	ScreenshotErr error
	LastRunErr    error

	Shot   Artifact
	Run    RunRecord
	Closed int

	Calls []string
}

func (m *MockBrowser) record(name string) { m.Calls = append(m.Calls, name) }

func (m *MockBrowser) Start(ctx context.Context) error {
	m.record("start")
	return m.StartErr
}

func (m *MockBrowser) Login(ctx context.Context, baseURL string) error {
	m.record("login")
	return m.LoginErr
}

func (m *MockBrowser) OpenRuns(ctx context.Context, dagID string) error {
	m.record("open")
	return m.OpenErr
}

func (m *MockBrowser) Filter(ctx context.Context, f Filters) error {
	m.record("filter")
	return m.FilterErr
}

func (m *MockBrowser) Screenshot(ctx context.Context, prefix string) (Artifact, error) {
	m.record("screenshot")
	if m.ScreenshotErr != nil {
		return Artifact{}, m.ScreenshotErr
	}
	return m.Shot, nil
}

func (m *MockBrowser) LastRun(ctx context.Context) (RunRecord, error) {
	m.record("lastrun")
	if m.LastRunErr != nil {
		return RunRecord{}, m.LastRunErr
	}
	return m.Run, nil
}

func (m *MockBrowser) Close(ctx context.Context) error {
	m.Closed++
	return nil
}

type MockMailer struct {
	DraftErr  error
	AttachErr error
	SendErr   error

	Drafts      []Message
	Attached    []string
	Sent        []string
	NextDraftID string
}

func (m *MockMailer) CreateDraft(ctx context.Context, subject, htmlBody string, recipients []string) (Message, error) {
	if m.DraftErr != nil {
		return Message{}, m.DraftErr
	}
	id := m.NextDraftID
	if id == "" {
		id = "draft-1"
	}
	msg := Message{ID: id, Subject: subject, State: MessageDraft}
	m.Drafts = append(m.Drafts, msg)
	return msg, nil
}

func (m *MockMailer) AddAttachment(ctx context.Context, messageID string, a Artifact) error {
	if m.AttachErr != nil {
		return m.AttachErr
	}
	m.Attached = append(m.Attached, messageID+"|"+a.Name)
	return nil
}

func (m *MockMailer) SendDraft(ctx context.Context, messageID string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, messageID)
	return nil
}

type MockStore struct {
	Err  error
	Keys []string
}

func (m *MockStore) Upload(ctx context.Context, dagID string, a Artifact) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	key := dagID + "/" + a.Name
	m.Keys = append(m.Keys, key)
	return key, nil
}

type MockSink struct {
	Err       error
	Snapshots []Snapshot
}

func (m *MockSink) Write(ctx context.Context, s Snapshot) error {
	if m.Err != nil {
		return m.Err
	}
	m.Snapshots = append(m.Snapshots, s)
	return nil
}
