package graph_http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dchurbanov/dag-reporter/internal/domain"
	"go.uber.org/zap"
)

type fakeGraph struct {
	sendStatus int

	drafts      []draftPayload
	attachments []map[string]string
	sent        []string
}

func (g *fakeGraph) mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /me/messages", func(w http.ResponseWriter, r *http.Request) {
		var p draftPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		g.drafts = append(g.drafts, p)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "msg-1", "subject": p.Subject})
	})
	mux.HandleFunc("POST /me/messages/{id}/attachments", func(w http.ResponseWriter, r *http.Request) {
		var a map[string]string
		_ = json.NewDecoder(r.Body).Decode(&a)
		g.attachments = append(g.attachments, a)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "att-1"})
	})
	mux.HandleFunc("POST /me/messages/{id}/send", func(w http.ResponseWriter, r *http.Request) {
		g.sent = append(g.sent, r.PathValue("id"))
		w.WriteHeader(g.sendStatus)
	})

	return mux
}

func newTestClient(t *testing.T, g *fakeGraph) *Client {
	t.Helper()
	srv := httptest.NewServer(g.mux())
	t.Cleanup(srv.Close)
	return NewWithClient(srv.URL, srv.Client(), zap.NewNop())
}

func TestCreateDraft(t *testing.T) {
	g := &fakeGraph{}
	c := newTestClient(t, g)

	msg, err := c.CreateDraft(t.Context(), "subj", "<p>body</p>", []string{"a@example.com", "b@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID != "msg-1" || msg.State != domain.MessageDraft {
		t.Errorf("message: %+v", msg)
	}

	if len(g.drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(g.drafts))
	}
	d := g.drafts[0]
	if d.Body.ContentType != "HTML" || d.Body.Content != "<p>body</p>" {
		t.Errorf("body payload: %+v", d.Body)
	}
	if len(d.ToRecipients) != 2 || d.ToRecipients[1].EmailAddress.Address != "b@example.com" {
		t.Errorf("recipients payload: %+v", d.ToRecipients)
	}
}

func TestAddAttachment_RoundTrip(t *testing.T) {
	g := &fakeGraph{}
	c := newTestClient(t, g)

	raw := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3, 0xff}
	path := filepath.Join(t.TempDir(), "dag_runs_20250313.png")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	a := domain.Artifact{Path: path, Name: "dag_runs_20250313.png"}
	if err := c.AddAttachment(t.Context(), "msg-1", a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(g.attachments))
	}
	att := g.attachments[0]
	if att["name"] != a.Name {
		t.Errorf("attachment name: got %q", att["name"])
	}
	if att["@odata.type"] != "#microsoft.graph.fileAttachment" {
		t.Errorf("attachment type: got %q", att["@odata.type"])
	}

	decoded, err := base64.StdEncoding.DecodeString(att["contentBytes"])
	if err != nil {
		t.Fatalf("contentBytes not base64: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Error("attachment bytes differ after round trip")
	}
}

func TestSendDraft_AcceptedOnly(t *testing.T) {
	g := &fakeGraph{sendStatus: http.StatusAccepted}
	c := newTestClient(t, g)

	if err := c.SendDraft(t.Context(), "msg-1"); err != nil {
		t.Fatalf("202 must succeed: %v", err)
	}
	if len(g.sent) != 1 || g.sent[0] != "msg-1" {
		t.Errorf("send calls: %v", g.sent)
	}

	g.sendStatus = http.StatusBadGateway
	err := c.SendDraft(t.Context(), "msg-1")
	if !errors.Is(err, domain.ErrNotSent) {
		t.Fatalf("expected ErrNotSent, got %v", err)
	}
	// No retry on send: exactly one more call.
	if len(g.sent) != 2 {
		t.Errorf("send must not be retried, calls: %v", g.sent)
	}
}
