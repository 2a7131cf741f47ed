// Package chart generates bar-chart artifacts from per-subject statistics and
// keeps the artifact directory bounded.
//
// Artifacts live under {root}/{admin|user}/{kind}[_{account}]_{unixnano}.{ext}.
// Every file is written to a hidden temp file in the same directory, synced
// and renamed, so a returned Artifact always references a complete file.
package chart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

type statsSource interface {
	TopScoreBySubject(ctx context.Context) ([]domain.SubjectStat, error)
	AttemptsBySubject(ctx context.Context, accountID *int64) ([]domain.SubjectStat, error)
	QuestionsBySubject(ctx context.Context) ([]domain.SubjectStat, error)
}

// Artifact references a published chart file.
type Artifact struct {
	Kind        domain.ChartKind
	AccountID   *int64
	Path        string
	Name        string
	ContentType string
	CreatedAt   time.Time
}

// Service implements chart generation and sweeping.
type Service struct {
	log   *slog.Logger
	stats statsSource
	cfg   config.ChartsConfig
	now   func() time.Time

	// mu serializes sweep-then-publish so one generation never deletes
	// another's fresh artifact of the same scope.
	mu sync.Mutex
}

// NewService creates a new chart service.
func NewService(logger *slog.Logger, stats statsSource, cfg config.ChartsConfig) *Service {
	return &Service{
		log:   logger.With("service", "chart"),
		stats: stats,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Generate renders the chart of the given kind. accountID is required for
// ChartUserAttempts and ignored otherwise. It returns nil, nil when there is
// nothing to plot.
func (s *Service) Generate(ctx context.Context, kind domain.ChartKind, accountID *int64) (*Artifact, error) {
	if !kind.IsValid() {
		return nil, domain.NewValidationError("kind", "unknown chart kind")
	}
	if kind == domain.ChartUserAttempts && accountID == nil {
		return nil, domain.NewValidationError("account_id", "required for "+string(kind))
	}
	if kind != domain.ChartUserAttempts {
		accountID = nil
	}

	data, title, err := s.load(ctx, kind, accountID)
	if err != nil {
		return nil, fmt.Errorf("load %s data: %w", kind, err)
	}
	if !hasData(data) {
		s.log.DebugContext(ctx, "no chart data", slog.String("kind", string(kind)))
		return nil, nil
	}

	draw := drawBars
	if kind == domain.ChartSubjectAttempts {
		draw = drawPie
	}
	img := draw(title, data, s.cfg.Width, s.cfg.Height)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, err := s.sweep(ctx, now, kind, accountID); err != nil {
		return nil, fmt.Errorf("sweep before %s: %w", kind, err)
	}

	art, err := s.publish(kind, accountID, img, now)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", kind, err)
	}

	s.log.InfoContext(ctx, "chart generated",
		slog.String("kind", string(kind)),
		slog.String("path", art.Path),
	)
	return art, nil
}

// Sweep deletes artifacts older than the retention window in every audience
// directory and returns how many files were removed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(ctx, s.now(), "", nil)
}

func (s *Service) load(ctx context.Context, kind domain.ChartKind, accountID *int64) ([]domain.SubjectStat, string, error) {
	switch kind {
	case domain.ChartSubjectScores:
		data, err := s.stats.TopScoreBySubject(ctx)
		return data, "Top score by subject", err
	case domain.ChartSubjectAttempts:
		data, err := s.stats.AttemptsBySubject(ctx, nil)
		return data, "Attempts by subject", err
	case domain.ChartSubjectQuestions:
		data, err := s.stats.QuestionsBySubject(ctx)
		return data, "Questions by subject", err
	case domain.ChartUserAttempts:
		data, err := s.stats.AttemptsBySubject(ctx, accountID)
		return data, "Your attempts by subject", err
	}
	return nil, "", fmt.Errorf("unsupported chart kind %q", kind)
}

func hasData(data []domain.SubjectStat) bool {
	for _, d := range data {
		if d.Value != 0 {
			return true
		}
	}
	return false
}
