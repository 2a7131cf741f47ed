package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testConfig() config.JobsConfig {
	return config.JobsConfig{
		Workers:     2,
		QueueSize:   8,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		HardTimeout: 2 * time.Second,
	}
}

type mockTx struct {
	opened   atomic.Int32
	released atomic.Int32
}

func (m *mockTx) RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.opened.Add(1)
	defer m.released.Add(1)
	return fn(ctx)
}

func startSystem(t *testing.T, cfg config.JobsConfig, opts ...Option) (*System, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	sys, err := New(slog.Default(), cfg, store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Shutdown(context.Background()) })
	return sys, store
}

func run(t *testing.T, sys *System, job domain.Job) Outcome {
	t.Helper()
	h, err := sys.Submit(context.Background(), job)
	require.NoError(t, err)
	out, err := sys.Await(context.Background(), h, 5*time.Second)
	require.NoError(t, err)
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNew_RejectsBadConfig(t *testing.T) {
	t.Parallel()
	for _, mut := range []func(*config.JobsConfig){
		func(c *config.JobsConfig) { c.Workers = 0 },
		func(c *config.JobsConfig) { c.QueueSize = 0 },
		func(c *config.JobsConfig) { c.MaxAttempts = 0 },
		func(c *config.JobsConfig) { c.BaseDelay = 0 },
	} {
		cfg := testConfig()
		mut(&cfg)
		_, err := New(slog.Default(), cfg, NewMemoryStore())
		assert.Error(t, err)
	}
}

func TestSystem_Success(t *testing.T) {
	t.Parallel()
	tx := &mockTx{}
	sys, store := startSystem(t, testConfig(), WithTxRunner(tx))
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		return domain.JobResult{Message: "Sent reminders to 2 users", Tally: domain.Tally{Sent: 2}}, nil
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewDailyDigest())

	assert.True(t, out.Succeeded())
	assert.Equal(t, 0, out.Retries)
	require.NotNil(t, out.Result)
	assert.Equal(t, 2, out.Result.Tally.Sent)

	rec, err := store.Get(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
	assert.NotNil(t, rec.StartedAt)
	assert.NotNil(t, rec.FinishedAt)
	assert.Equal(t, int32(1), tx.opened.Load())
	assert.Equal(t, int32(1), tx.released.Load())
}

func TestSystem_RetryCountEqualsTransientFailures(t *testing.T) {
	t.Parallel()

	for k := 0; k < 3; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			t.Parallel()
			sys, _ := startSystem(t, testConfig())
			var calls atomic.Int32
			sys.Register(domain.JobMonthlyReport, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
				if int(calls.Add(1)) <= k {
					return domain.JobResult{}, fmt.Errorf("list accounts: %w", domain.ErrUnavailable)
				}
				return domain.JobResult{Message: "ok"}, nil
			})
			sys.Start(context.Background())

			out := run(t, sys, domain.NewMonthlyReport())

			assert.True(t, out.Succeeded())
			assert.Equal(t, k, out.Retries)
			assert.Equal(t, int32(k+1), calls.Load())
		})
	}
}

func TestSystem_TransientExhausted(t *testing.T) {
	t.Parallel()
	sys, store := startSystem(t, testConfig())
	var calls atomic.Int32
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		calls.Add(1)
		return domain.JobResult{}, domain.ErrUnavailable
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewDailyDigest())

	assert.Equal(t, domain.JobFailed, out.Status)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, out.Error, "unavailable")
	rec, _ := store.Get(context.Background(), out.ID)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, 2, rec.Retries)
}

func TestSystem_FatalIsNotRetried(t *testing.T) {
	t.Parallel()
	sys, _ := startSystem(t, testConfig())
	var calls atomic.Int32
	sys.Register(domain.JobUserExport, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		calls.Add(1)
		return domain.JobResult{}, fmt.Errorf("requester: %w", domain.ErrForbidden)
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewUserExport("user@example.com"))

	assert.Equal(t, domain.JobFailed, out.Status)
	assert.Equal(t, 0, out.Retries)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSystem_PanicIsFatalAndScopeReleased(t *testing.T) {
	t.Parallel()
	tx := &mockTx{}
	sys, _ := startSystem(t, testConfig(), WithTxRunner(tx))
	var calls atomic.Int32
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		calls.Add(1)
		panic("nil map")
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewDailyDigest())

	assert.Equal(t, domain.JobFailed, out.Status)
	assert.Contains(t, out.Error, "panic: nil map")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, tx.opened.Load(), tx.released.Load())

	// The worker survives the panic.
	sys.Register(domain.JobMonthlyReport, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		return domain.JobResult{}, nil
	})
	assert.True(t, run(t, sys, domain.NewMonthlyReport()).Succeeded())
}

func TestSystem_HardTimeoutIsFatal(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.HardTimeout = 20 * time.Millisecond
	sys, _ := startSystem(t, cfg)
	var calls atomic.Int32
	sys.Register(domain.JobDailyDigest, func(ctx context.Context, _ *Scope, _ domain.Job) (domain.JobResult, error) {
		calls.Add(1)
		<-ctx.Done()
		return domain.JobResult{}, ctx.Err()
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewDailyDigest())

	assert.Equal(t, domain.JobFailed, out.Status)
	assert.Contains(t, out.Error, ErrHardTimeout.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSystem_StepDeadlineIsTransient(t *testing.T) {
	t.Parallel()
	sys, _ := startSystem(t, testConfig())
	var calls atomic.Int32
	sys.Register(domain.JobDailyDigest, func(ctx context.Context, _ *Scope, _ domain.Job) (domain.JobResult, error) {
		if calls.Add(1) == 1 {
			step, cancel := context.WithTimeout(ctx, time.Millisecond)
			defer cancel()
			<-step.Done()
			return domain.JobResult{}, fmt.Errorf("page 1: %w", step.Err())
		}
		return domain.JobResult{}, nil
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewDailyDigest())

	assert.True(t, out.Succeeded())
	assert.Equal(t, 1, out.Retries)
}

func TestSystem_CheckpointSurvivesRetry(t *testing.T) {
	t.Parallel()
	sys, store := startSystem(t, testConfig())

	var mu sync.Mutex
	sent := map[string]int{}
	var calls atomic.Int32
	sys.Register(domain.JobDailyDigest, func(_ context.Context, sc *Scope, _ domain.Job) (domain.JobResult, error) {
		attempt := calls.Add(1)
		var tally domain.Tally
		for _, to := range []string{"a@example.com", "b@example.com"} {
			if sc.Done(to) {
				tally.Skipped++
				continue
			}
			if attempt == 1 && to == "b@example.com" {
				return domain.JobResult{}, domain.ErrUnavailable
			}
			mu.Lock()
			sent[to]++
			mu.Unlock()
			sc.MarkDone(to)
			tally.Sent++
		}
		return domain.JobResult{Tally: tally}, nil
	})
	sys.Start(context.Background())

	out := run(t, sys, domain.NewDailyDigest())

	require.True(t, out.Succeeded())
	assert.Equal(t, 1, sent["a@example.com"], "recipient from the failed attempt is not mailed twice")
	assert.Equal(t, 1, sent["b@example.com"])
	assert.Equal(t, 1, out.Result.Tally.Skipped)

	rec, _ := store.Get(context.Background(), out.ID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, rec.Processed)
}

func TestSystem_SoftLimit(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.SoftTimeout = time.Minute

	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	sys, _ := startSystem(t, cfg, WithClock(clock))

	var before, after bool
	sys.Register(domain.JobDailyDigest, func(_ context.Context, sc *Scope, _ domain.Job) (domain.JobResult, error) {
		before = sc.ShouldWrapUp()
		mu.Lock()
		now = now.Add(2 * time.Minute)
		mu.Unlock()
		after = sc.ShouldWrapUp()
		return domain.JobResult{}, nil
	})
	sys.Start(context.Background())

	require.True(t, run(t, sys, domain.NewDailyDigest()).Succeeded())
	assert.False(t, before)
	assert.True(t, after)
}

func TestSystem_SubmitValidation(t *testing.T) {
	t.Parallel()
	sys, _ := startSystem(t, testConfig())
	sys.Register(domain.JobUserExport, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		return domain.JobResult{}, nil
	})

	_, err := sys.Submit(context.Background(), domain.Job{Kind: "weekly_digest"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = sys.Submit(context.Background(), domain.NewUserExport(""))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = sys.Submit(context.Background(), domain.NewDailyDigest())
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestSystem_QueueFull(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.QueueSize = 1
	sys, store := startSystem(t, cfg)
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		return domain.JobResult{}, nil
	})

	// Workers are not started, so the first job occupies the only slot.
	first, err := sys.Submit(context.Background(), domain.NewDailyDigest())
	require.NoError(t, err)
	_, err = sys.Submit(context.Background(), domain.NewDailyDigest())
	assert.ErrorIs(t, err, ErrQueueFull)

	rec, err := store.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, rec.Status)
}

func TestSystem_AwaitTimeout(t *testing.T) {
	t.Parallel()
	sys, _ := startSystem(t, testConfig())
	started, release := make(chan struct{}), make(chan struct{})
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		close(started)
		<-release
		return domain.JobResult{}, nil
	})
	sys.Start(context.Background())

	h, err := sys.Submit(context.Background(), domain.NewDailyDigest())
	require.NoError(t, err)
	<-started

	_, err = sys.Await(context.Background(), h, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrAwaitTimeout)

	rec, err := sys.Status(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, rec.Status)

	close(release)
	out, err := sys.Await(context.Background(), h, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())

	// A finished job is still awaitable.
	out, err = sys.Await(context.Background(), h, time.Second)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
}

func TestSystem_ShutdownFailsQueuedJobs(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	sys, err := New(slog.Default(), testConfig(), store)
	require.NoError(t, err)
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		return domain.JobResult{}, nil
	})

	h, err := sys.Submit(context.Background(), domain.NewDailyDigest())
	require.NoError(t, err)
	require.NoError(t, sys.Shutdown(context.Background()))

	rec, err := store.Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, rec.Status)
	assert.Contains(t, rec.Error, ErrClosed.Error())

	_, err = sys.Submit(context.Background(), domain.NewDailyDigest())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSystem_ParallelJobs(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Workers = 4
	cfg.QueueSize = 32
	sys, _ := startSystem(t, cfg)

	var inFlight, peak atomic.Int32
	sys.Register(domain.JobDailyDigest, func(context.Context, *Scope, domain.Job) (domain.JobResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return domain.JobResult{}, nil
	})
	sys.Start(context.Background())

	handles := make([]Handle, 16)
	for i := range handles {
		h, err := sys.Submit(context.Background(), domain.NewDailyDigest())
		require.NoError(t, err)
		handles[i] = h
	}
	for _, h := range handles {
		out, err := sys.Await(context.Background(), h, 5*time.Second)
		require.NoError(t, err)
		assert.True(t, out.Succeeded())
	}
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestSystem_CancelledContextStopsWorkers(t *testing.T) {
	t.Parallel()
	sys, _ := startSystem(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	sys.Register(domain.JobDailyDigest, func(ctx context.Context, _ *Scope, _ domain.Job) (domain.JobResult, error) {
		close(started)
		<-ctx.Done()
		return domain.JobResult{}, ctx.Err()
	})
	sys.Start(ctx)

	h, err := sys.Submit(context.Background(), domain.NewDailyDigest())
	require.NoError(t, err)
	<-started
	cancel()

	out, err := sys.Await(context.Background(), h, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, out.Status)
	assert.Contains(t, out.Error, "context canceled")
}
