package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chirantan-Dey/quiz-master/internal/adapter/mail/logsender"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/testhelper"
	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
	"github.com/Chirantan-Dey/quiz-master/internal/jobs"
)

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Jobs: config.JobsConfig{
			Workers:        2,
			QueueSize:      8,
			MaxAttempts:    2,
			BaseDelay:      10 * time.Millisecond,
			MaxDelay:       50 * time.Millisecond,
			HardTimeout:    30 * time.Second,
			SoftTimeout:    25 * time.Second,
			StepTimeout:    5 * time.Second,
			BatchSize:      1,
			PersistRecords: true,
		},
		Cache:     config.CacheConfig{TTL: time.Second, MaxKeys: 128},
		Charts:    config.ChartsConfig{Root: t.TempDir(), Format: "png", Retention: 24 * time.Hour, Width: 400, Height: 300},
		Scheduler: config.SchedulerConfig{Location: time.UTC},
	}
}

func runJob(t *testing.T, sys *jobs.System, job domain.Job) jobs.Outcome {
	t.Helper()
	h, err := sys.Submit(context.Background(), job)
	require.NoError(t, err)
	out, err := sys.Await(context.Background(), h, 20*time.Second)
	require.NoError(t, err)
	return out
}

func TestComponents_EndToEnd(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	admin := testhelper.SeedAccount(t, pool, domain.RoleAdmin)
	idle := testhelper.SeedAccount(t, pool, domain.RoleUser)
	busy := testhelper.SeedAccount(t, pool, domain.RoleUser)
	fx := testhelper.SeedCatalog(t, pool, "Physics", 3, now.Add(-2*time.Hour))
	testhelper.SeedAttempt(t, pool, busy.ID, fx.Quiz.ID, 2, now.Add(-time.Hour))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := logsender.New(logger, 50)

	c, err := newComponents(ctx, logger, integrationConfig(t), pool, sender)
	require.NoError(t, err)
	c.jobs.Start(ctx)
	t.Cleanup(func() { _ = c.jobs.Shutdown(context.Background()) })

	t.Run("daily digest mails the idle user about the new quiz", func(t *testing.T) {
		out := runJob(t, c.jobs, domain.NewDailyDigest())
		require.True(t, out.Succeeded(), "error: %s", out.Error)
		require.NotNil(t, out.Result)
		assert.Equal(t, 1, out.Result.Tally.Sent)

		var found bool
		for _, m := range sender.Sent() {
			if m.To == idle.Email {
				found = true
				assert.Equal(t, "Quiz Master - Daily Update", m.Subject)
				assert.Contains(t, m.HTML, fx.Quiz.Name)
			}
			assert.NotEqual(t, busy.Email, m.To, "active user must not be reminded")
			assert.NotEqual(t, admin.Email, m.To, "admins are not reminded")
		}
		assert.True(t, found, "idle user received no digest")
	})

	t.Run("export is attached as csv and the record is persisted", func(t *testing.T) {
		out := runJob(t, c.jobs, domain.NewUserExport(admin.Email))
		require.True(t, out.Succeeded(), "error: %s", out.Error)

		msgs := sender.Sent()
		last := msgs[len(msgs)-1]
		require.Equal(t, admin.Email, last.To)
		require.Len(t, last.Attachments, 1)
		assert.Equal(t, "user_export.csv", last.Attachments[0].Filename)
		csv := string(last.Attachments[0].Content)
		assert.True(t, strings.HasPrefix(csv, "User ID,Name,Email"))
		assert.Contains(t, csv, busy.Email)

		rec, err := c.jobs.Status(ctx, out.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobSucceeded, rec.Status)
	})

	t.Run("export by a regular user fails without retries", func(t *testing.T) {
		out := runJob(t, c.jobs, domain.NewUserExport(idle.Email))
		assert.Equal(t, domain.JobFailed, out.Status)
		assert.Equal(t, 0, out.Retries)
		assert.Contains(t, out.Error, domain.ErrForbidden.Error())
	})

	t.Run("dashboard reads go through the cache", func(t *testing.T) {
		subjects, err := c.catalog.Subjects(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, subjects)

		attempts, err := c.catalog.AccountAttempts(ctx, busy.ID)
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		assert.Equal(t, fx.Quiz.ID, attempts[0].QuizID)
	})
}
