// Package jobs runs typed background jobs on a fixed worker pool with
// classified retries, per-attempt time limits and persisted job records.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Handler executes one attempt of a job. It must honour ctx and should stop
// starting new batches once sc.ShouldWrapUp reports true.
type Handler func(ctx context.Context, sc *Scope, job domain.Job) (domain.JobResult, error)

// TxRunner opens the read-only unit of work an attempt runs in.
type TxRunner interface {
	RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Handle identifies a submitted job.
type Handle struct {
	ID uuid.UUID
}

// Outcome is the terminal state of a job.
type Outcome struct {
	ID      uuid.UUID
	Status  domain.JobStatus
	Retries int
	Result  *domain.JobResult
	Error   string
}

// Succeeded reports whether the job finished without error.
func (o Outcome) Succeeded() bool { return o.Status == domain.JobSucceeded }

func outcomeOf(rec *domain.JobRecord) Outcome {
	return Outcome{
		ID:      rec.ID,
		Status:  rec.Status,
		Retries: rec.Retries,
		Result:  rec.Result,
		Error:   rec.Error,
	}
}

// System owns the queue, the workers and the handler table. It is built by
// the process entry point and passed to whoever submits jobs.
type System struct {
	log      *slog.Logger
	cfg      config.JobsConfig
	store    RecordStore
	tx       TxRunner
	now      func() time.Time
	handlers map[domain.JobKind]Handler

	queue chan domain.JobRecord
	quit  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
	waiters map[uuid.UUID]chan struct{}
}

// Option configures a System.
type Option func(*System)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.now = now }
}

// WithTxRunner sets the unit-of-work provider. Without one, handlers run
// directly on the caller's context.
func WithTxRunner(tx TxRunner) Option {
	return func(s *System) { s.tx = tx }
}

// New creates a System. Workers do not run until Start.
func New(logger *slog.Logger, cfg config.JobsConfig, store RecordStore, opts ...Option) (*System, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("jobs: workers must be positive, got %d", cfg.Workers)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("jobs: queue size must be positive, got %d", cfg.QueueSize)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("jobs: max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.BaseDelay <= 0 {
		return nil, fmt.Errorf("jobs: base delay must be positive, got %s", cfg.BaseDelay)
	}

	s := &System{
		log:      logger.With("component", "jobs"),
		cfg:      cfg,
		store:    store,
		tx:       passthrough{},
		now:      time.Now,
		handlers: make(map[domain.JobKind]Handler),
		queue:    make(chan domain.JobRecord, cfg.QueueSize),
		quit:     make(chan struct{}),
		waiters:  make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register binds a handler to a job kind. It must be called before Start.
func (s *System) Register(kind domain.JobKind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Start launches the workers. They stop when ctx is cancelled or Shutdown
// is called.
func (s *System) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	for i := range s.cfg.Workers {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.log.InfoContext(ctx, "job workers started", slog.Int("workers", s.cfg.Workers))
}

// Shutdown stops accepting jobs, waits for running attempts to return and
// fails whatever is still queued. It returns ctx.Err() if waiting is cut short.
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case rec := <-s.queue:
			s.finish(context.WithoutCancel(ctx), &rec, domain.JobResult{}, ErrClosed)
		default:
			s.log.InfoContext(ctx, "job workers stopped")
			return nil
		}
	}
}

// Submit validates job, records it as pending and enqueues it. It never
// waits for a free slot: a full queue yields ErrQueueFull.
func (s *System) Submit(ctx context.Context, job domain.Job) (Handle, error) {
	if err := job.Validate(); err != nil {
		return Handle{}, err
	}

	s.mu.Lock()
	_, ok := s.handlers[job.Kind]
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Handle{}, ErrClosed
	}
	if !ok {
		return Handle{}, fmt.Errorf("%w: %s", ErrNoHandler, job.Kind)
	}

	rec := domain.JobRecord{
		ID:        uuid.New(),
		Job:       job,
		Status:    domain.JobPending,
		Processed: []string{},
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return Handle{}, fmt.Errorf("submit %s: %w", job.Kind, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.finish(context.WithoutCancel(ctx), &rec, domain.JobResult{}, ErrClosed)
		return Handle{}, ErrClosed
	}
	s.waiters[rec.ID] = make(chan struct{})
	select {
	case s.queue <- rec:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		s.finish(context.WithoutCancel(ctx), &rec, domain.JobResult{}, ErrQueueFull)
		return Handle{}, ErrQueueFull
	}

	s.log.InfoContext(ctx, "job submitted",
		slog.String("job_id", rec.ID.String()),
		slog.String("kind", job.Kind.String()),
	)
	return Handle{ID: rec.ID}, nil
}

// Status returns the current record of a job.
func (s *System) Status(ctx context.Context, id uuid.UUID) (*domain.JobRecord, error) {
	return s.store.Get(ctx, id)
}

// QueueDepth reports how many jobs wait for a worker and the queue capacity.
func (s *System) QueueDepth() (queued, capacity int) {
	return len(s.queue), cap(s.queue)
}

// Await blocks until the job is terminal, the timeout elapses
// (ErrAwaitTimeout) or ctx is done.
func (s *System) Await(ctx context.Context, h Handle, timeout time.Duration) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.mu.Lock()
	done, tracked := s.waiters[h.ID]
	s.mu.Unlock()

	if tracked {
		select {
		case <-done:
		case <-ctx.Done():
			return Outcome{}, awaitErr(ctx)
		}
	}

	// Untracked jobs were submitted elsewhere or finished earlier; poll.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		rec, err := s.store.Get(ctx, h.ID)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, awaitErr(ctx)
			}
			return Outcome{}, err
		}
		if rec.Status.IsTerminal() {
			return outcomeOf(rec), nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return Outcome{}, awaitErr(ctx)
		}
	}
}

func awaitErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrAwaitTimeout
	}
	return ctx.Err()
}

func (s *System) worker(ctx context.Context, n int) {
	defer s.wg.Done()
	log := s.log.With("worker", n)

	for {
		// Prefer stopping over picking up more work.
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case rec := <-s.queue:
			s.execute(ctx, rec, log)
		}
	}
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func (s *System) backoff() retry.Backoff {
	b := retry.NewExponential(s.cfg.BaseDelay)
	b = retry.WithJitterPercent(20, b)
	if s.cfg.MaxDelay > 0 {
		b = retry.WithCappedDuration(s.cfg.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(s.cfg.MaxAttempts-1), b)
}

func (s *System) execute(ctx context.Context, rec domain.JobRecord, log *slog.Logger) {
	log = log.With(
		slog.String("job_id", rec.ID.String()),
		slog.String("kind", rec.Job.Kind.String()),
	)

	s.mu.Lock()
	h, ok := s.handlers[rec.Job.Kind]
	s.mu.Unlock()
	if !ok {
		s.finish(ctx, &rec, domain.JobResult{}, Fatal(fmt.Errorf("%w: %s", ErrNoHandler, rec.Job.Kind)))
		return
	}

	started := s.now()
	rec.StartedAt = &started
	cp := newCheckpoint(rec.Processed)

	var (
		attempt int
		result  domain.JobResult
	)
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		rec.Attempts = attempt
		rec.Retries = attempt - 1
		rec.Status = domain.JobRunning
		rec.Processed = cp.list()
		s.save(ctx, &rec, log)

		res, err := s.attempt(ctx, h, &rec, cp, attempt, log)
		result = res
		if err == nil {
			return nil
		}

		if IsTransient(err) && attempt < s.cfg.MaxAttempts {
			rec.Status = domain.JobRetrying
			rec.Error = err.Error()
			rec.Processed = cp.list()
			s.save(ctx, &rec, log)
			log.WarnContext(ctx, "job attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		return err
	})

	rec.Processed = cp.list()
	s.finish(ctx, &rec, result, err)
}

// attempt runs the handler once under the hard limit inside a unit of work.
// The scope is released on every exit path including panics.
func (s *System) attempt(ctx context.Context, h Handler, rec *domain.JobRecord, cp *checkpoint, n int, log *slog.Logger) (res domain.JobResult, err error) {
	var cancel context.CancelFunc = func() {}
	actx := ctx
	if s.cfg.HardTimeout > 0 {
		actx, cancel = context.WithTimeout(ctx, s.cfg.HardTimeout)
	}
	defer cancel()

	sc := &Scope{
		JobID:     rec.ID,
		Attempt:   n,
		Log:       log.With(slog.Int("attempt", n)),
		startedAt: s.now(),
		soft:      s.cfg.SoftTimeout,
		now:       s.now,
		cp:        cp,
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "job panicked", slog.Any("panic", r))
			err = Fatal(fmt.Errorf("panic: %v", r))
		}
	}()

	err = s.tx.RunReadOnly(actx, func(txCtx context.Context) error {
		var herr error
		res, herr = h(txCtx, sc, rec.Job)
		return herr
	})

	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		err = Fatal(fmt.Errorf("%w (%s): %v", ErrHardTimeout, s.cfg.HardTimeout, err))
	}
	return res, err
}

func (s *System) finish(ctx context.Context, rec *domain.JobRecord, result domain.JobResult, err error) {
	finished := s.now()
	rec.FinishedAt = &finished

	log := s.log.With(
		slog.String("job_id", rec.ID.String()),
		slog.String("kind", rec.Job.Kind.String()),
	)

	if err == nil {
		rec.Status = domain.JobSucceeded
		rec.Error = ""
		rec.Result = &result
		log.InfoContext(ctx, "job succeeded",
			slog.Int("retries", rec.Retries),
			slog.String("message", result.Message),
			slog.Int("sent", result.Tally.Sent),
			slog.Int("failed", result.Tally.Failed),
		)
	} else {
		rec.Status = domain.JobFailed
		rec.Error = err.Error()
		// Keep the partial tally of the last attempt.
		if result.Message != "" || result.Tally.Sent+result.Tally.Failed+result.Tally.Skipped > 0 {
			rec.Result = &result
		}
		log.ErrorContext(ctx, "job failed",
			slog.Int("attempts", rec.Attempts),
			slog.String("class", Classify(err).String()),
			slog.String("error", err.Error()),
		)
	}

	s.save(context.WithoutCancel(ctx), rec, log)

	s.mu.Lock()
	if ch, ok := s.waiters[rec.ID]; ok {
		close(ch)
		delete(s.waiters, rec.ID)
	}
	s.mu.Unlock()
}

// save persists rec. A failed write is logged; the job keeps running on the
// in-memory copy.
func (s *System) save(ctx context.Context, rec *domain.JobRecord, log *slog.Logger) {
	if err := s.store.Update(ctx, *rec); err != nil {
		log.ErrorContext(ctx, "save job record", slog.String("error", err.Error()))
	}
}

type passthrough struct{}

func (passthrough) RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
