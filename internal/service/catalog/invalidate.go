package catalog

import (
	"context"
	"log/slog"

	"github.com/Chirantan-Dey/quiz-master/internal/cache"
)

// SubjectsChanged must be called after a subject is created, renamed or deleted.
func (s *Service) SubjectsChanged(ctx context.Context) {
	s.cache.Invalidate(cache.KeySubjectList)
	s.cache.Invalidate(cache.KeySubjectStats)
	// Deleting a subject orphans attempts of every account.
	s.cache.InvalidateScores()
	s.log.DebugContext(ctx, "subjects invalidated")
}

// ChaptersChanged must be called after a chapter, quiz or question changes.
func (s *Service) ChaptersChanged(ctx context.Context) {
	s.cache.Invalidate(cache.KeySubjectList)
	s.cache.Invalidate(cache.KeySubjectStats)
	s.cache.InvalidateScores()
	s.log.DebugContext(ctx, "chapters invalidated")
}

// AttemptRecorded must be called after an attempt of accountID is stored.
func (s *Service) AttemptRecorded(ctx context.Context, accountID int64) {
	s.cache.Invalidate(cache.ScoresKey(accountID))
	s.cache.Invalidate(cache.KeySubjectStats)
	s.log.DebugContext(ctx, "scores invalidated", slog.Int64("account_id", accountID))
}
