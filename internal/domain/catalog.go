package domain

import (
	"slices"
	"time"
)

// Subject is a named topic that owns chapters.
type Subject struct {
	ID          int64
	Name        string
	Description *string
}

// Chapter belongs to exactly one subject.
type Chapter struct {
	ID          int64
	SubjectID   int64
	Name        string
	Description *string
}

// Quiz belongs to exactly one chapter.
type Quiz struct {
	ID          int64
	ChapterID   int64
	ChapterName string
	Name        string
	ScheduledOn *time.Time
	Duration    string
	Remarks     *string
}

// Question belongs to exactly one quiz.
type Question struct {
	ID            int64
	QuizID        int64
	Prompt        string
	Options       []string
	CorrectOption string
}

// Validate checks that the question offers at least two options and that
// the correct option is one of them.
func (q *Question) Validate() error {
	var errs []FieldError
	if q.Prompt == "" {
		errs = append(errs, FieldError{Field: "prompt", Message: "required"})
	}
	if len(q.Options) < 2 {
		errs = append(errs, FieldError{Field: "options", Message: "at least two options required"})
	}
	if !slices.Contains(q.Options, q.CorrectOption) {
		errs = append(errs, FieldError{Field: "correct_option", Message: "must match one of the options"})
	}
	return NewValidationErrors(errs)
}

// Attempt is one recorded quiz score. SubjectID and SubjectName are nil
// when the quiz (or its chapter) was deleted after the attempt.
type Attempt struct {
	ID          int64
	AccountID   int64
	QuizID      int64
	AttemptedAt time.Time
	Result      int
	SubjectID   *int64
	SubjectName *string
}

// IsOrphan reports whether the attempt no longer resolves to a subject.
func (a *Attempt) IsOrphan() bool { return a.SubjectID == nil }

// SubjectStat is an aggregate figure for one subject used by charts.
type SubjectStat struct {
	SubjectID int64   `json:"subject_id"`
	Subject   string  `json:"subject"`
	Value     float64 `json:"value"`
}
