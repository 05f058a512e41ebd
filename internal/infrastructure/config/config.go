package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/domain"
	"gopkg.in/yaml.v3"
)

type Minio struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
}

// Settings is the fully resolved configuration for one pipeline run.
type Settings struct {
	ClientID     string
	TenantID     string
	ClientSecret string

	BaseURL string
	DagID   string

	Recipients []string

	Headless     bool
	StatusFilter domain.RunStatus
	DateRange    string
	Subject      string
	BodyTemplate string
	Send         bool

	WebDriverURL string
	ArtifactsDir string
	LogFile      string
	StatusPath   string
	Wait         time.Duration

	Interval  time.Duration
	PauseFile string

	Minio Minio
}

// file mirrors Settings with pointer fields so that only keys present
// and non-null in the config file override lower-precedence values.
type file struct {
	ClientID     *string `yaml:"client_id" json:"client_id"`
	TenantID     *string `yaml:"tenant_id" json:"tenant_id"`
	ClientSecret *string `yaml:"client_secret" json:"client_secret"`

	BaseURL *string `yaml:"base_url" json:"base_url"`
	DagID   *string `yaml:"dag_id" json:"dag_id"`

	Recipients *string `yaml:"recipients" json:"recipients"`

	Headless     *bool   `yaml:"headless" json:"headless"`
	StatusFilter *string `yaml:"status_filter" json:"status_filter"`
	DateRange    *string `yaml:"date_range" json:"date_range"`
	Subject      *string `yaml:"subject" json:"subject"`
	BodyTemplate *string `yaml:"body_template" json:"body_template"`
	Send         *bool   `yaml:"send" json:"send"`

	WebDriverURL *string `yaml:"webdriver_url" json:"webdriver_url"`
	ArtifactsDir *string `yaml:"artifacts_dir" json:"artifacts_dir"`
	LogFile      *string `yaml:"log_file" json:"log_file"`
	StatusPath   *string `yaml:"status_path" json:"status_path"`
	Wait         *string `yaml:"wait" json:"wait"`

	Interval  *string `yaml:"interval" json:"interval"`
	PauseFile *string `yaml:"pause_file" json:"pause_file"`

	Minio *Minio `yaml:"minio" json:"minio"`
}

// Overrides carries CLI flag values. Nil fields were not set on the
// command line and do not participate in the merge.
type Overrides struct {
	DagID        *string
	StatusFilter *string
	DateRange    *string
	Subject      *string
	Recipients   *string
	Headless     *bool
	Send         *bool
}

// Resolve merges defaults < config file < environment < CLI flags and
// validates required fields. Validation fails closed: every missing
// required field is named.
func Resolve(path string, ov Overrides) (Settings, error) {
	s := Settings{
		WebDriverURL: "http://localhost:9515",
		ArtifactsDir: "screenshots",
		LogFile:      "automation.log",
		StatusPath:   expandHome("~/.cache/dag-reporter/status.json"),
		Wait:         30 * time.Second,
		Interval:     15 * time.Minute,
		PauseFile:    expandHome("~/.cache/dag-reporter/paused"),
	}

	if path != "" {
		if err := mergeFile(&s, path); err != nil {
			return s, err
		}
	}

	mergeEnv(&s)
	mergeOverrides(&s, ov)

	s.ArtifactsDir = expandHome(s.ArtifactsDir)
	s.StatusPath = expandHome(s.StatusPath)
	s.PauseFile = expandHome(s.PauseFile)
	if s.Wait <= 0 {
		s.Wait = 30 * time.Second
	}
	if s.Interval <= 0 {
		s.Interval = 15 * time.Minute
	}

	var missing []string
	if s.ClientID == "" {
		missing = append(missing, "MS_GRAPH_CLIENT_ID")
	}
	if s.TenantID == "" {
		missing = append(missing, "MS_GRAPH_TENANT_ID")
	}
	if s.ClientSecret == "" {
		missing = append(missing, "MS_GRAPH_CLIENT_SECRET")
	}
	if s.BaseURL == "" {
		missing = append(missing, "AIRFLOW_BASE_URL")
	}
	if s.DagID == "" {
		missing = append(missing, "DAG_ID")
	}
	if len(s.Recipients) == 0 {
		missing = append(missing, "EMAIL_RECIPIENTS")
	}
	if len(missing) > 0 {
		return s, &domain.ValidationError{Missing: missing}
	}

	return s, nil
}

func mergeFile(s *Settings, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f file
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
	} else {
		if err := yaml.Unmarshal(b, &f); err != nil {
			return err
		}
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setDur := func(dst *time.Duration, src *string) {
		if src != nil {
			if d, err := time.ParseDuration(*src); err == nil {
				*dst = d
			}
		}
	}

	setString(&s.ClientID, f.ClientID)
	setString(&s.TenantID, f.TenantID)
	setString(&s.ClientSecret, f.ClientSecret)
	setString(&s.BaseURL, f.BaseURL)
	setString(&s.DagID, f.DagID)
	if f.Recipients != nil {
		s.Recipients = SplitRecipients(*f.Recipients)
	}
	setBool(&s.Headless, f.Headless)
	if f.StatusFilter != nil && *f.StatusFilter != "" {
		s.StatusFilter = domain.ParseRunStatus(*f.StatusFilter)
	}
	setString(&s.DateRange, f.DateRange)
	setString(&s.Subject, f.Subject)
	setString(&s.BodyTemplate, f.BodyTemplate)
	setBool(&s.Send, f.Send)
	setString(&s.WebDriverURL, f.WebDriverURL)
	setString(&s.ArtifactsDir, f.ArtifactsDir)
	setString(&s.LogFile, f.LogFile)
	setString(&s.StatusPath, f.StatusPath)
	setDur(&s.Wait, f.Wait)
	setDur(&s.Interval, f.Interval)
	setString(&s.PauseFile, f.PauseFile)
	if f.Minio != nil {
		s.Minio = *f.Minio
	}

	return nil
}

func mergeEnv(s *Settings) {
	env := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	env(&s.ClientID, "MS_GRAPH_CLIENT_ID")
	env(&s.TenantID, "MS_GRAPH_TENANT_ID")
	env(&s.ClientSecret, "MS_GRAPH_CLIENT_SECRET")
	env(&s.BaseURL, "AIRFLOW_BASE_URL")
	env(&s.DagID, "DAG_ID")
	if v := os.Getenv("EMAIL_RECIPIENTS"); v != "" {
		s.Recipients = SplitRecipients(v)
	}
	env(&s.WebDriverURL, "WEBDRIVER_URL")
	env(&s.ArtifactsDir, "ARTIFACTS_DIR")
	env(&s.LogFile, "LOG_FILE")
	env(&s.StatusPath, "STATUS_PATH")
	if v := os.Getenv("WAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.Wait = d
		}
	}
	if v := os.Getenv("INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.Interval = d
		}
	}
	env(&s.Minio.Endpoint, "MINIO_ENDPOINT")
	env(&s.Minio.AccessKey, "MINIO_ACCESS_KEY")
	env(&s.Minio.SecretKey, "MINIO_SECRET_KEY")
	env(&s.Minio.Bucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Minio.UseSSL = b
		}
	}
}

func mergeOverrides(s *Settings, ov Overrides) {
	if ov.DagID != nil {
		s.DagID = *ov.DagID
	}
	if ov.StatusFilter != nil && *ov.StatusFilter != "" {
		s.StatusFilter = domain.ParseRunStatus(*ov.StatusFilter)
	}
	if ov.DateRange != nil {
		s.DateRange = *ov.DateRange
	}
	if ov.Subject != nil {
		s.Subject = *ov.Subject
	}
	if ov.Recipients != nil {
		s.Recipients = SplitRecipients(*ov.Recipients)
	}
	if ov.Headless != nil {
		s.Headless = *ov.Headless
	}
	if ov.Send != nil {
		s.Send = *ov.Send
	}
}

// SplitRecipients splits a comma-separated address list, trimming
// whitespace and dropping empty entries.
func SplitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
