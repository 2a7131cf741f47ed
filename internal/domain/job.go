package domain

import (
	"time"

	"github.com/google/uuid"
)

// DailyDigestParams carries no parameters; the window is derived from the run time.
type DailyDigestParams struct{}

// MonthlyReportParams carries no parameters; the month is derived from the run time.
type MonthlyReportParams struct{}

// UserExportParams identifies the administrator requesting the export.
type UserExportParams struct {
	Requester string `json:"requester"`
}

// Job is a submitted unit of background work. Exactly one params field
// matching Kind is set.
type Job struct {
	Kind          JobKind              `json:"kind"`
	DailyDigest   *DailyDigestParams   `json:"daily_digest,omitempty"`
	MonthlyReport *MonthlyReportParams `json:"monthly_report,omitempty"`
	UserExport    *UserExportParams    `json:"user_export,omitempty"`
}

// NewDailyDigest builds a daily_digest job.
func NewDailyDigest() Job {
	return Job{Kind: JobDailyDigest, DailyDigest: &DailyDigestParams{}}
}

// NewMonthlyReport builds a monthly_report job.
func NewMonthlyReport() Job {
	return Job{Kind: JobMonthlyReport, MonthlyReport: &MonthlyReportParams{}}
}

// NewUserExport builds a user_export job for the given requester address.
func NewUserExport(requester string) Job {
	return Job{Kind: JobUserExport, UserExport: &UserExportParams{Requester: requester}}
}

// Validate checks that the params match the kind.
func (j Job) Validate() error {
	if !j.Kind.IsValid() {
		return NewValidationError("kind", "unknown job kind")
	}
	switch j.Kind {
	case JobDailyDigest:
		if j.DailyDigest == nil || j.MonthlyReport != nil || j.UserExport != nil {
			return NewValidationError("params", "daily_digest takes no other params")
		}
	case JobMonthlyReport:
		if j.MonthlyReport == nil || j.DailyDigest != nil || j.UserExport != nil {
			return NewValidationError("params", "monthly_report takes no other params")
		}
	case JobUserExport:
		if j.UserExport == nil || j.DailyDigest != nil || j.MonthlyReport != nil {
			return NewValidationError("params", "user_export params required")
		}
		if NormalizeEmail(j.UserExport.Requester) == "" {
			return NewValidationError("requester", "required")
		}
	}
	return nil
}

// Tally counts per-recipient delivery outcomes inside one job.
type Tally struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Add merges another tally into t.
func (t *Tally) Add(o Tally) {
	t.Sent += o.Sent
	t.Failed += o.Failed
	t.Skipped += o.Skipped
	t.Errors = append(t.Errors, o.Errors...)
}

// JobResult is the payload recorded on success.
type JobResult struct {
	Message string `json:"message"`
	NoData  bool   `json:"no_data,omitempty"`
	Tally   Tally  `json:"tally"`
}

// JobRecord is the persisted state of one job.
type JobRecord struct {
	ID         uuid.UUID
	Job        Job
	Status     JobStatus
	Attempts   int
	Retries    int
	Result     *JobResult
	Error      string
	Processed  []string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}
