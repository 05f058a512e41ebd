package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/domain"
)

// DefaultBodyTemplate is the report body used when no custom template
// is configured. Placeholders are filled by RenderBody.
const DefaultBodyTemplate = `<h2>DAG Run Report</h2>
<p>Please find attached the screenshot of the latest run for <strong>{dag_id}</strong>.</p>

<h3>Run Details:</h3>
<ul>
    <li><strong>Run ID:</strong> {run_id}</li>
    <li><strong>Run Type:</strong> {run_type}</li>
    <li><strong>Execution Date:</strong> {execution_date}</li>
    <li><strong>Start Date:</strong> {start_date}</li>
    <li><strong>End Date:</strong> {end_date}</li>
    <li><strong>Status:</strong> {status}</li>
</ul>

<p>This report was automatically generated at {timestamp}.</p>
`

const absentValue = "N/A"

// DefaultSubject formats the subject line used when no override is
// configured.
func DefaultSubject(dagID string, rec domain.RunRecord, now time.Time) string {
	status := string(rec.Status)
	if status == "" {
		status = absentValue
	}
	return fmt.Sprintf("%s Run Report: %s - %s", dagID, status, now.Format("2006-01-02 15:04"))
}

// BodyContext builds the placeholder values for a report body. Absent
// record fields fall back to the literal "N/A".
func BodyContext(dagID string, rec domain.RunRecord, now time.Time) map[string]string {
	orNA := func(v string) string {
		if v == "" {
			return absentValue
		}
		return v
	}
	return map[string]string{
		"dag_id":         dagID,
		"run_id":         orNA(rec.RunID),
		"run_type":       orNA(rec.RunType),
		"execution_date": orNA(rec.ExecutionDate),
		"start_date":     orNA(rec.StartDate),
		"end_date":       orNA(rec.EndDate),
		"status":         orNA(string(rec.Status)),
		"timestamp":      now.Format("2006-01-02 15:04:05"),
	}
}

// RenderBody fills {name} placeholders from values. An absent record
// value renders as "N/A" via BodyContext, but a placeholder name with
// no entry in values is a template-authoring bug and errors out.
func RenderBody(tmpl string, values map[string]string) (string, error) {
	var b strings.Builder
	rest := tmpl

	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}

		name := rest[open+1 : open+end]
		if !placeholderName(name) {
			b.WriteString(rest[:open+1])
			rest = rest[open+1:]
			continue
		}

		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("unknown placeholder %q in body template", name)
		}
		b.WriteString(rest[:open])
		b.WriteString(v)
		rest = rest[open+end+1:]
	}
}

// placeholderName reports whether s looks like a placeholder rather
// than literal braces in markup.
func placeholderName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}
