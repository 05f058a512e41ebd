package graph_http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dchurbanov/dag-reporter/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Client talks to the Microsoft Graph mail endpoints. The oauth2
// client handles token acquisition and refresh under the client
// credentials grant.
type Client struct {
	baseURL string
	log     *zap.Logger
	hc      *http.Client
}

func New(ctx context.Context, tenantID, clientID, clientSecret string, log *zap.Logger) *Client {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	hc := conf.Client(ctx)
	hc.Timeout = 30 * time.Second

	return &Client{baseURL: defaultBaseURL, log: log, hc: hc}
}

// NewWithClient wires a pre-built HTTP client and base URL, used by
// tests.
func NewWithClient(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), log: log, hc: hc}
}

type recipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type draftPayload struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

// CreateDraft creates a remote draft message and returns it with the
// vendor-assigned id.
func (c *Client) CreateDraft(ctx context.Context, subject, htmlBody string, recipients []string) (domain.Message, error) {
	payload := draftPayload{Subject: subject}
	payload.Body.ContentType = "HTML"
	payload.Body.Content = htmlBody
	for _, addr := range recipients {
		var r recipient
		r.EmailAddress.Address = addr
		payload.ToRecipients = append(payload.ToRecipients, r)
	}

	var created struct {
		ID      string `json:"id"`
		Subject string `json:"subject"`
	}
	if err := c.post(ctx, "/me/messages", payload, &created); err != nil {
		return domain.Message{}, fmt.Errorf("create draft: %w", err)
	}
	if created.ID == "" {
		return domain.Message{}, fmt.Errorf("create draft: response without message id")
	}

	c.log.Info("draft created", zap.String("message_id", created.ID), zap.String("subject", created.Subject))
	return domain.Message{ID: created.ID, Subject: created.Subject, State: domain.MessageDraft}, nil
}

// AddAttachment uploads the artifact bytes as a file attachment under
// its original file name.
func (c *Client) AddAttachment(ctx context.Context, messageID string, a domain.Artifact) error {
	raw, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	payload := map[string]string{
		"@odata.type":  "#microsoft.graph.fileAttachment",
		"name":         a.Name,
		"contentBytes": base64.StdEncoding.EncodeToString(raw),
	}

	endpoint := fmt.Sprintf("/me/messages/%s/attachments", messageID)
	if err := c.post(ctx, endpoint, payload, nil); err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}

	c.log.Info("attachment added", zap.String("message_id", messageID), zap.String("name", a.Name))
	return nil
}

// SendDraft submits an existing draft. Graph acknowledges with 202;
// anything else leaves the draft untouched and is reported as ErrNotSent.
func (c *Client) SendDraft(ctx context.Context, messageID string) error {
	status, err := c.postStatus(ctx, fmt.Sprintf("/me/messages/%s/send", messageID), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotSent, err)
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("%w: graph returned %d", domain.ErrNotSent, status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	op := func() error {
		status, body, err := c.roundTrip(ctx, endpoint, in)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			return fmt.Errorf("graph %d", status)
		}
		if status >= 300 {
			return backoff.Permanent(fmt.Errorf("graph %d: %s", status, strings.TrimSpace(string(body))))
		}
		if out != nil {
			return json.Unmarshal(body, out)
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(newBackOff(), ctx))
}

// postStatus performs a single POST and reports the status code
// verbatim. Send is not retried: a duplicate send is worse than a
// reported failure.
func (c *Client) postStatus(ctx context.Context, endpoint string, in any) (int, error) {
	status, _, err := c.roundTrip(ctx, endpoint, in)
	return status, err
}

func (c *Client) roundTrip(ctx context.Context, endpoint string, in any) (int, []byte, error) {
	var payload io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 5 * time.Second
	return bo
}
