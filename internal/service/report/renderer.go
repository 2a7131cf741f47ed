// Package report renders notification bodies from embedded HTML templates
// and tabular exports as CSV.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// DateTimeLayout is used for every timestamp in bodies and exports.
const DateTimeLayout = time.DateTime

// Rendered is a ready-to-send report.
type Rendered struct {
	Subject string
	HTML    string
	CSV     []byte
}

// DigestData feeds the daily digest.
type DigestData struct {
	Name    string
	Quizzes []domain.Quiz
}

// MonthlyData feeds the monthly report.
type MonthlyData struct {
	Name     string
	Month    string
	Summary  domain.AccountSummary
	HasChart bool
}

// ExportData feeds the user export. Pages streams summaries into the CSV
// one page at a time; it is not called by Validate.
type ExportData struct {
	GeneratedAt time.Time
	Subjects    []domain.Subject
	Pages       func(yield func([]domain.AccountSummary) error) error

	// Rows is filled during Render.
	Rows int
}

var funcs = template.FuncMap{
	"score":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"datetime": func(t time.Time) string { return t.Format(DateTimeLayout) },
	"recency":  func(r domain.Recency) string { return r.Format(DateTimeLayout) },
}

// Renderer holds the parsed templates. Safe for concurrent use.
type Renderer struct {
	templates map[domain.JobKind]*template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	return newFromFS(templateFS, "templates")
}

func newFromFS(fsys fsReader, dir string) (*Renderer, error) {
	layout, err := fsys.ReadFile(dir + "/layout.html")
	if err != nil {
		return nil, fmt.Errorf("%w: read layout: %v", domain.ErrTemplate, err)
	}

	r := &Renderer{templates: make(map[domain.JobKind]*template.Template)}
	for _, kind := range []domain.JobKind{domain.JobDailyDigest, domain.JobMonthlyReport, domain.JobUserExport} {
		body, err := fsys.ReadFile(dir + "/" + string(kind) + ".html")
		if err != nil {
			// A missing template surfaces when the kind is rendered.
			continue
		}
		t, err := template.New(string(kind)).Funcs(funcs).Parse(string(layout))
		if err == nil {
			_, err = t.Parse(string(body))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrTemplate, kind, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

type fsReader interface {
	ReadFile(name string) ([]byte, error)
}

// Validate executes the template for kind against data without producing
// output. Handlers call it before any delivery.
func (r *Renderer) Validate(kind domain.JobKind, data any) error {
	return r.execute(io.Discard, kind, data)
}

// Render produces the subject, HTML body and, for exports, the CSV.
func (r *Renderer) Render(kind domain.JobKind, data any) (Rendered, error) {
	var out Rendered

	switch d := data.(type) {
	case DigestData:
		out.Subject = "Quiz Master - Daily Update"
	case MonthlyData:
		out.Subject = "Monthly Activity Report - " + d.Month
	case ExportData:
		out.Subject = "Quiz Master - User Data Export"
		var buf bytes.Buffer
		rows, err := WriteExport(&buf, d.Subjects, d.Pages)
		if err != nil {
			return Rendered{}, fmt.Errorf("write export: %w", err)
		}
		d.Rows = rows
		data = d
		out.CSV = buf.Bytes()
	}

	var html bytes.Buffer
	if err := r.execute(&html, kind, data); err != nil {
		return Rendered{}, err
	}
	out.HTML = html.String()
	return out, nil
}

func (r *Renderer) execute(w io.Writer, kind domain.JobKind, data any) error {
	t, ok := r.templates[kind]
	if !ok {
		return fmt.Errorf("%w: no template for %q", domain.ErrTemplate, kind)
	}
	if err := checkData(kind, data); err != nil {
		return err
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("%w: execute %s: %v", domain.ErrTemplate, kind, err)
	}
	return nil
}

func checkData(kind domain.JobKind, data any) error {
	var ok bool
	switch kind {
	case domain.JobDailyDigest:
		_, ok = data.(DigestData)
	case domain.JobMonthlyReport:
		_, ok = data.(MonthlyData)
	case domain.JobUserExport:
		_, ok = data.(ExportData)
	}
	if !ok {
		return fmt.Errorf("%w: %s cannot render %T", domain.ErrTemplate, kind, data)
	}
	return nil
}
