package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// allPhases defines the canonical execution order.
var allPhases = []string{"accounts", "catalog", "attempts"}

var subjectNames = []string{"Physics", "Mathematics", "Chemistry", "Biology", "History", "Geography", "Literature", "Economics"}

// PhaseResult holds the outcome of a single pipeline phase.
type PhaseResult struct {
	Inserted int
	Skipped  int
	Errors   int
	Duration time.Duration
	Err      error
}

// Pipeline orchestrates the seeding phases. Later phases reuse what earlier
// phases created in the same run.
type Pipeline struct {
	log      *slog.Logger
	accounts AccountWriter
	catalog  CatalogWriter
	attempts AttemptRecorder
	cfg      Config
	now      func() time.Time
	rng      *rand.Rand

	results map[string]PhaseResult
	users   []domain.Account
	quizzes []quizRef
}

type quizRef struct {
	id        int64
	questions int
}

// NewPipeline creates a new Pipeline.
func NewPipeline(log *slog.Logger, accounts AccountWriter, catalog CatalogWriter, attempts AttemptRecorder, cfg Config) *Pipeline {
	return &Pipeline{
		log:      log,
		accounts: accounts,
		catalog:  catalog,
		attempts: attempts,
		cfg:      cfg,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		results:  make(map[string]PhaseResult),
	}
}

// Results returns phase results after Run completes.
func (p *Pipeline) Results() map[string]PhaseResult {
	return p.results
}

// HasErrors returns true if any phase recorded errors.
func (p *Pipeline) HasErrors() bool {
	for _, r := range p.results {
		if r.Err != nil || r.Errors > 0 {
			return true
		}
	}
	return false
}

// Run executes the pipeline. If phases is non-empty, only the listed phases run.
func (p *Pipeline) Run(ctx context.Context, phases []string) error {
	toRun := allPhases
	if len(phases) > 0 {
		filter := make(map[string]bool, len(phases))
		for _, ph := range phases {
			filter[ph] = true
		}
		var filtered []string
		for _, ph := range allPhases {
			if filter[ph] {
				filtered = append(filtered, ph)
			}
		}
		toRun = filtered
	}

	for _, phase := range toRun {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("seeder: %w", err)
		}

		start := time.Now()
		p.log.Info("starting phase", slog.String("phase", phase))

		var result PhaseResult
		switch phase {
		case "accounts":
			result = p.runAccounts(ctx)
		case "catalog":
			result = p.runCatalog(ctx)
		case "attempts":
			result = p.runAttempts(ctx)
		}
		result.Duration = time.Since(start)
		p.results[phase] = result

		if result.Err != nil {
			p.log.Warn("phase failed",
				slog.String("phase", phase),
				slog.String("error", result.Err.Error()),
				slog.Duration("duration", result.Duration),
			)
		} else {
			p.log.Info("phase completed",
				slog.String("phase", phase),
				slog.Int("inserted", result.Inserted),
				slog.Int("skipped", result.Skipped),
				slog.Int("errors", result.Errors),
				slog.Duration("duration", result.Duration),
			)
		}
	}

	p.log.Info("pipeline completed", slog.Int("phases_run", len(toRun)))
	return nil
}

// runAccounts creates one administrator and the configured number of
// regular users. Existing addresses are reused.
func (p *Pipeline) runAccounts(ctx context.Context) PhaseResult {
	var result PhaseResult

	want := []domain.Account{{
		Email:  domain.NormalizeEmail(p.cfg.AdminEmail),
		Active: true,
		Roles:  []domain.Role{domain.RoleAdmin},
	}}
	for i := 1; i <= p.cfg.Accounts; i++ {
		name := fmt.Sprintf("Student %03d", i)
		want = append(want, domain.Account{
			Email:    fmt.Sprintf("student%03d@example.com", i),
			Active:   i%10 != 0,
			FullName: &name,
			Roles:    []domain.Role{domain.RoleUser},
		})
	}

	if p.cfg.DryRun {
		return PhaseResult{Skipped: len(want)}
	}

	for _, a := range want {
		created, err := p.accounts.Create(ctx, a)
		switch {
		case err == nil:
			result.Inserted++
		case errors.Is(err, domain.ErrAlreadyExists):
			result.Skipped++
			created, err = p.accounts.GetByEmail(ctx, a.Email)
			if err != nil {
				result.Errors++
				p.log.Warn("resolve existing account", slog.String("email", a.Email), slog.String("error", err.Error()))
				continue
			}
		default:
			result.Errors++
			p.log.Warn("create account", slog.String("email", a.Email), slog.String("error", err.Error()))
			continue
		}
		if created.HasRole(domain.RoleUser) {
			p.users = append(p.users, *created)
		}
	}
	return result
}

// runCatalog builds the subject tree. Quizzes are spread over the last
// DaysBack days so the daily digest finds some recent ones.
func (p *Pipeline) runCatalog(ctx context.Context) PhaseResult {
	total := p.cfg.Subjects * p.cfg.ChaptersPerSubject * p.cfg.QuizzesPerChapter
	if p.cfg.DryRun {
		return PhaseResult{Skipped: total}
	}

	var result PhaseResult
	now := p.now()

	for s := 0; s < p.cfg.Subjects; s++ {
		name := subjectNames[s%len(subjectNames)]
		if s >= len(subjectNames) {
			name = fmt.Sprintf("%s %d", name, s/len(subjectNames)+1)
		}
		subject, err := p.catalog.CreateSubject(ctx, domain.Subject{Name: name})
		if err != nil {
			return PhaseResult{Err: fmt.Errorf("create subject: %w", err)}
		}
		result.Inserted++

		for c := 1; c <= p.cfg.ChaptersPerSubject; c++ {
			chapter, err := p.catalog.CreateChapter(ctx, domain.Chapter{
				SubjectID: subject.ID,
				Name:      fmt.Sprintf("%s chapter %d", name, c),
			})
			if err != nil {
				return PhaseResult{Err: fmt.Errorf("create chapter: %w", err)}
			}
			result.Inserted++

			for q := 1; q <= p.cfg.QuizzesPerChapter; q++ {
				scheduled := now.Add(-time.Duration(p.rng.IntN(max(p.cfg.DaysBack, 1)*24)) * time.Hour)
				quiz, err := p.catalog.CreateQuiz(ctx, domain.Quiz{
					ChapterID:   chapter.ID,
					Name:        fmt.Sprintf("%s quiz %d.%d", name, c, q),
					ScheduledOn: &scheduled,
					Duration:    "00:30",
				})
				if err != nil {
					return PhaseResult{Err: fmt.Errorf("create quiz: %w", err)}
				}
				result.Inserted++

				n := p.seedQuestions(ctx, quiz.ID, &result)
				p.quizzes = append(p.quizzes, quizRef{id: quiz.ID, questions: n})
			}
		}
	}

	p.attempts.SubjectsChanged(ctx)
	p.attempts.ChaptersChanged(ctx)
	return result
}

func (p *Pipeline) seedQuestions(ctx context.Context, quizID int64, result *PhaseResult) int {
	created := 0
	for i := 1; i <= p.cfg.QuestionsPerQuiz; i++ {
		a, b := p.rng.IntN(20)+1, p.rng.IntN(20)+1
		correct := fmt.Sprint(a + b)
		options := []string{correct, fmt.Sprint(a + b + 1), fmt.Sprint(a + b - 1), fmt.Sprint(a * b)}
		p.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		_, err := p.catalog.CreateQuestion(ctx, domain.Question{
			QuizID:        quizID,
			Prompt:        fmt.Sprintf("What is %d + %d?", a, b),
			Options:       options,
			CorrectOption: correct,
		})
		if err != nil {
			result.Errors++
			p.log.Warn("create question", slog.Int64("quiz_id", quizID), slog.String("error", err.Error()))
			continue
		}
		result.Inserted++
		created++
	}
	return created
}

// runAttempts records scored attempts for every regular user seen in this
// run, dated within the last DaysBack days.
func (p *Pipeline) runAttempts(ctx context.Context) PhaseResult {
	if len(p.users) == 0 || len(p.quizzes) == 0 {
		return PhaseResult{Skipped: 1, Err: fmt.Errorf("attempts need the accounts and catalog phases in the same run")}
	}
	if p.cfg.DryRun {
		return PhaseResult{Skipped: len(p.users) * p.cfg.AttemptsPerAccount}
	}

	var result PhaseResult
	now := p.now()
	window := time.Duration(max(p.cfg.DaysBack, 1)) * 24 * time.Hour

	for _, u := range p.users {
		for i := 0; i < p.cfg.AttemptsPerAccount; i++ {
			quiz := p.quizzes[p.rng.IntN(len(p.quizzes))]
			_, err := p.attempts.RecordAttempt(ctx, domain.Attempt{
				AccountID:   u.ID,
				QuizID:      quiz.id,
				AttemptedAt: now.Add(-time.Duration(p.rng.Int64N(int64(window)))),
				Result:      p.rng.IntN(quiz.questions + 1),
			})
			if err != nil {
				result.Errors++
				p.log.Warn("record attempt", slog.Int64("account_id", u.ID), slog.String("error", err.Error()))
				continue
			}
			result.Inserted++
		}
	}
	return result
}
