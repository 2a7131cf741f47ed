package domain

import "time"

// Recency is the most recent attempt time, or Never when none exists.
type Recency struct {
	At *time.Time
}

// Never is the recency of an account without attempts.
var Never = Recency{}

// IsNever reports whether no attempt was ever recorded.
func (r Recency) IsNever() bool { return r.At == nil }

// Format renders the timestamp or "Never".
func (r Recency) Format(layout string) string {
	if r.At == nil {
		return "Never"
	}
	return r.At.Format(layout)
}

// Stats holds the four aggregate figures reported per account and subject.
type Stats struct {
	Attempts int
	Average  float64
	Best     int
	Last     Recency
}

// SubjectSummary is Stats broken out for one subject.
type SubjectSummary struct {
	SubjectID int64
	Subject   string
	Stats
}

// AccountSummary is the aggregation output for one account.
type AccountSummary struct {
	Account   Account
	Overall   Stats
	BySubject []SubjectSummary
	Orphans   int
}

// Subject returns the breakdown for the given subject and whether it exists.
func (s *AccountSummary) Subject(subjectID int64) (SubjectSummary, bool) {
	for _, sub := range s.BySubject {
		if sub.SubjectID == subjectID {
			return sub, true
		}
	}
	return SubjectSummary{}, false
}
