package domain

import "time"

// AccountFilter narrows a keyset page of accounts.
type AccountFilter struct {
	AfterID int64
	Limit   int

	AccountID  *int64
	Role       *Role
	ActiveOnly bool
	// InactiveSince keeps only accounts with no attempt at or after this instant.
	InactiveSince *time.Time
}

// TimeWindow bounds a timestamp as [Since, Until). Nil ends are open.
type TimeWindow struct {
	Since *time.Time
	Until *time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if w.Since != nil && t.Before(*w.Since) {
		return false
	}
	if w.Until != nil && !t.Before(*w.Until) {
		return false
	}
	return true
}

// MonthBefore returns the calendar month preceding the month of now, in now's location.
func MonthBefore(now time.Time) TimeWindow {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := start.AddDate(0, -1, 0)
	return TimeWindow{Since: &prev, Until: &start}
}
