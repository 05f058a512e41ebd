package webdriver_http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dchurbanov/dag-reporter/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const webElementID = "element-6066-11e4-a52e-4f735466cecf"

// UI selectors for the scheduler's run listing.
const (
	selNavbar    = ".navbar-brand"
	selDagView   = "#dag"
	selRunsTable = ".dag-runs-table"
	selFirstRow  = ".dag-runs-table tbody tr:first-child"
	selFilterBtn = ".filter-btn"
	selApplyBtn  = ".apply-btn"
	selDateInput = "input[name='date_range']"
)

// Client drives the scheduler UI through a W3C WebDriver endpoint
// (chromedriver or a Selenium standalone).
type Client struct {
	driverURL    string
	headless     bool
	artifactsDir string
	wait         time.Duration
	stepWait     time.Duration
	log          *zap.Logger
	hc           *http.Client

	// poll paces element-readiness probing.
	poll *rate.Limiter

	sessionID string
	baseURL   string
}

func New(driverURL string, headless bool, artifactsDir string, wait time.Duration, log *zap.Logger) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		driverURL:    strings.TrimRight(driverURL, "/"),
		headless:     headless,
		artifactsDir: artifactsDir,
		wait:         wait,
		stepWait:     10 * time.Second,
		log:          log,
		hc:           &http.Client{Transport: tr, Timeout: 30 * time.Second},
		poll:         rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Start creates the browser session. The driver may still be booting,
// so creation is retried with backoff for a bounded window.
func (c *Client) Start(ctx context.Context) error {
	args := []string{"--no-sandbox", "--disable-dev-shm-usage", "--window-size=1920,1080"}
	if c.headless {
		args = append(args, "--headless=new")
	}

	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": map[string]any{
				"browserName": "chrome",
				"goog:chromeOptions": map[string]any{
					"args": args,
				},
			},
		},
	}

	op := func() error {
		var out struct {
			Value struct {
				SessionID string `json:"sessionId"`
			} `json:"value"`
		}
		if err := c.do(ctx, http.MethodPost, "/session", body, &out); err != nil {
			return err
		}
		if out.Value.SessionID == "" {
			return backoff.Permanent(errors.New("webdriver: empty session id"))
		}
		c.sessionID = out.Value.SessionID
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 10 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.log.Info("webdriver session created", zap.String("session", c.sessionID))
	return nil
}

// Login opens the scheduler base URL and waits for its navbar, which
// only renders once the upstream auth redirect has completed.
func (c *Client) Login(ctx context.Context, baseURL string) error {
	c.baseURL = strings.TrimRight(baseURL, "/")

	if err := c.navigate(ctx, c.baseURL); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}

	if _, err := c.waitFor(ctx, selNavbar, c.wait); err != nil {
		c.diagnostic(ctx, "login_timeout")
		return fmt.Errorf("%w: scheduler UI did not load: %v", domain.ErrAuth, err)
	}

	return nil
}

// OpenRuns navigates to the run listing of the given DAG and waits for
// the runs table to render.
func (c *Client) OpenRuns(ctx context.Context, dagID string) error {
	u := fmt.Sprintf("%s/tree?dag_id=%s", c.baseURL, url.QueryEscape(dagID))
	if err := c.navigate(ctx, u); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
	}

	if _, err := c.waitFor(ctx, selDagView, c.wait); err != nil {
		c.diagnostic(ctx, "dag_runs_timeout")
		return fmt.Errorf("%w: dag view did not load: %v", domain.ErrNavigation, err)
	}

	tab, err := c.waitForXPath(ctx, "//a[contains(text(), 'DAG Runs')]", c.stepWait)
	if err != nil {
		c.diagnostic(ctx, "dag_runs_timeout")
		return fmt.Errorf("%w: runs tab not found: %v", domain.ErrNavigation, err)
	}
	if err := c.click(ctx, tab); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
	}

	if _, err := c.waitFor(ctx, selRunsTable, c.wait); err != nil {
		c.diagnostic(ctx, "dag_runs_timeout")
		return fmt.Errorf("%w: runs table did not load: %v", domain.ErrNavigation, err)
	}

	return nil
}

// Filter applies the status and date-range controls. Callers treat a
// returned error as non-fatal.
func (c *Client) Filter(ctx context.Context, f domain.Filters) error {
	btn, err := c.waitFor(ctx, selFilterBtn, c.stepWait)
	if err != nil {
		return fmt.Errorf("filter controls: %w", err)
	}
	if err := c.click(ctx, btn); err != nil {
		return err
	}

	if f.Status != "" {
		opt, err := c.waitForXPath(ctx,
			fmt.Sprintf("//select[@name='status']//option[contains(text(), '%s')]", f.Status),
			c.stepWait)
		if err != nil {
			return fmt.Errorf("status option: %w", err)
		}
		if err := c.click(ctx, opt); err != nil {
			return err
		}
	}

	if f.DateRange != "" {
		in, err := c.waitFor(ctx, selDateInput, c.stepWait)
		if err != nil {
			return fmt.Errorf("date input: %w", err)
		}
		if err := c.clear(ctx, in); err != nil {
			return err
		}
		if err := c.sendKeys(ctx, in, f.DateRange); err != nil {
			return err
		}
	}

	apply, err := c.waitFor(ctx, selApplyBtn, c.stepWait)
	if err != nil {
		return fmt.Errorf("apply button: %w", err)
	}
	if err := c.click(ctx, apply); err != nil {
		return err
	}

	// Settle wait for the filtered listing.
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Screenshot captures the full window into the artifacts directory
// under a timestamped name.
func (c *Client) Screenshot(ctx context.Context, prefix string) (domain.Artifact, error) {
	var out struct {
		Value string `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/screenshot"), nil, &out); err != nil {
		return domain.Artifact{}, fmt.Errorf("screenshot: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(out.Value)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("screenshot decode: %w", err)
	}

	if err := os.MkdirAll(c.artifactsDir, 0o755); err != nil {
		return domain.Artifact{}, err
	}

	name := fmt.Sprintf("%s_%s.png", prefix, time.Now().Format("20060102_150405"))
	path := filepath.Join(c.artifactsDir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return domain.Artifact{}, err
	}

	c.log.Info("screenshot saved", zap.String("path", path))
	return domain.Artifact{Path: path, Name: name}, nil
}

// LastRun reads the six cells of the first row of the runs table.
func (c *Client) LastRun(ctx context.Context) (domain.RunRecord, error) {
	row, err := c.waitFor(ctx, selFirstRow, c.stepWait)
	if err != nil {
		c.diagnostic(ctx, "no_dag_runs")
		return domain.RunRecord{}, fmt.Errorf("%w: %v", domain.ErrNoRuns, err)
	}

	cell := func(n int) string {
		el, err := c.findChild(ctx, row, fmt.Sprintf("td:nth-child(%d)", n))
		if err != nil {
			return ""
		}
		text, err := c.text(ctx, el)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}

	rec := domain.RunRecord{
		RunID:         cell(1),
		RunType:       cell(2),
		ExecutionDate: cell(3),
		StartDate:     cell(4),
		EndDate:       cell(5),
		Status:        domain.ParseRunStatus(cell(6)),
	}

	return rec, nil
}

// Close deletes the session. Safe to call when Start never succeeded.
func (c *Client) Close(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	err := c.do(ctx, http.MethodDelete, "/session/"+c.sessionID, nil, nil)
	c.sessionID = ""
	return err
}

// diagnostic captures a post-mortem screenshot; its own failure is
// only logged.
func (c *Client) diagnostic(ctx context.Context, prefix string) {
	if _, err := c.Screenshot(ctx, prefix); err != nil {
		c.log.Warn("diagnostic screenshot failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

func (c *Client) navigate(ctx context.Context, u string) error {
	return c.do(ctx, http.MethodPost, c.sessionPath("/url"), map[string]string{"url": u}, nil)
}

// waitFor polls for an element until found or the deadline passes.
func (c *Client) waitFor(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	return c.waitUsing(ctx, "css selector", selector, timeout)
}

func (c *Client) waitForXPath(ctx context.Context, expr string, timeout time.Duration) (string, error) {
	return c.waitUsing(ctx, "xpath", expr, timeout)
}

func (c *Client) waitUsing(ctx context.Context, using, value string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for time.Now().Before(deadline) {
		if err := c.poll.Wait(ctx); err != nil {
			return "", err
		}
		id, err := c.findElement(ctx, using, value)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("element not found")
	}
	return "", fmt.Errorf("wait for %q: timeout after %s: %w", value, timeout, lastErr)
}

func (c *Client) findElement(ctx context.Context, using, value string) (string, error) {
	var out struct {
		Value map[string]string `json:"value"`
	}
	body := map[string]string{"using": using, "value": value}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/element"), body, &out); err != nil {
		return "", err
	}
	id := out.Value[webElementID]
	if id == "" {
		return "", errors.New("no such element")
	}
	return id, nil
}

func (c *Client) findChild(ctx context.Context, elementID, selector string) (string, error) {
	var out struct {
		Value map[string]string `json:"value"`
	}
	body := map[string]string{"using": "css selector", "value": selector}
	path := c.sessionPath("/element/" + elementID + "/element")
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	id := out.Value[webElementID]
	if id == "" {
		return "", errors.New("no such element")
	}
	return id, nil
}

func (c *Client) click(ctx context.Context, elementID string) error {
	return c.do(ctx, http.MethodPost, c.sessionPath("/element/"+elementID+"/click"), map[string]any{}, nil)
}

func (c *Client) clear(ctx context.Context, elementID string) error {
	return c.do(ctx, http.MethodPost, c.sessionPath("/element/"+elementID+"/clear"), map[string]any{}, nil)
}

func (c *Client) sendKeys(ctx context.Context, elementID, text string) error {
	return c.do(ctx, http.MethodPost, c.sessionPath("/element/"+elementID+"/value"), map[string]string{"text": text}, nil)
}

func (c *Client) text(ctx context.Context, elementID string) (string, error) {
	var out struct {
		Value string `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/element/"+elementID+"/text"), nil, &out); err != nil {
		return "", err
	}
	return out.Value, nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/session/" + c.sessionID + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.driverURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var werr struct {
			Value struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			} `json:"value"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&werr)
		if werr.Value.Error != "" {
			return fmt.Errorf("webdriver %s: %s", werr.Value.Error, werr.Value.Message)
		}
		return fmt.Errorf("webdriver %s", resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
