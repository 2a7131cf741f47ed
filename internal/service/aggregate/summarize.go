package aggregate

import (
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

type acc struct {
	count int
	sum   int
	best  int
	last  domain.Recency
}

func (a *acc) add(at domain.Attempt) {
	if a.count == 0 || at.Result > a.best {
		a.best = at.Result
	}
	a.count++
	a.sum += at.Result
	if a.last.At == nil || at.AttemptedAt.After(*a.last.At) {
		t := at.AttemptedAt
		a.last = domain.Recency{At: &t}
	}
}

func (a *acc) stats() domain.Stats {
	s := domain.Stats{Attempts: a.count, Best: a.best, Last: a.last}
	if a.count > 0 {
		s.Average = float64(a.sum) / float64(a.count)
	}
	return s
}

// Summarize computes the statistics of one account. Overall figures count
// every attempt; the per-subject breakdown follows subjects' order and skips
// attempts whose subject no longer resolves or is not in subjects.
func Summarize(account domain.Account, attempts []domain.Attempt, subjects []domain.Subject) domain.AccountSummary {
	var overall acc
	bySubject := make(map[int64]*acc, len(subjects))
	for _, s := range subjects {
		bySubject[s.ID] = &acc{}
	}

	orphans := 0
	for _, at := range attempts {
		overall.add(at)
		if at.IsOrphan() {
			orphans++
			continue
		}
		sub, ok := bySubject[*at.SubjectID]
		if !ok {
			orphans++
			continue
		}
		sub.add(at)
	}

	out := domain.AccountSummary{
		Account:   account,
		Overall:   overall.stats(),
		BySubject: make([]domain.SubjectSummary, len(subjects)),
		Orphans:   orphans,
	}
	for i, s := range subjects {
		out.BySubject[i] = domain.SubjectSummary{
			SubjectID: s.ID,
			Subject:   s.Name,
			Stats:     bySubject[s.ID].stats(),
		}
	}
	return out
}
