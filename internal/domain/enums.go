package domain

// Role is an authorization label carried by an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// JobKind identifies one of the closed set of background jobs.
type JobKind string

const (
	JobDailyDigest   JobKind = "daily_digest"
	JobMonthlyReport JobKind = "monthly_report"
	JobUserExport    JobKind = "user_export"
)

func (k JobKind) String() string { return string(k) }

func (k JobKind) IsValid() bool {
	switch k {
	case JobDailyDigest, JobMonthlyReport, JobUserExport:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job record.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobRetrying  JobStatus = "retrying"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) String() string { return string(s) }

// IsTerminal reports whether no further transitions are expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// ChartKind names a generated chart.
type ChartKind string

const (
	ChartSubjectScores    ChartKind = "subject_scores"
	ChartSubjectAttempts  ChartKind = "subject_attempts"
	ChartSubjectQuestions ChartKind = "subject_questions"
	ChartUserAttempts     ChartKind = "user_attempts"
)

func (k ChartKind) String() string { return string(k) }

// Audience returns the artifact directory the chart belongs to.
func (k ChartKind) Audience() string {
	switch k {
	case ChartSubjectScores, ChartSubjectAttempts:
		return "admin"
	default:
		return "user"
	}
}

func (k ChartKind) IsValid() bool {
	switch k {
	case ChartSubjectScores, ChartSubjectAttempts, ChartSubjectQuestions, ChartUserAttempts:
		return true
	}
	return false
}
