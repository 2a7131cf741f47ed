package jobs

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scope is the execution context of one job attempt. The dispatcher builds
// it before the handler runs and passes it explicitly. Reads issued with the
// handler's ctx run inside the attempt's read-only transaction.
type Scope struct {
	JobID   uuid.UUID
	Attempt int
	Log     *slog.Logger

	startedAt time.Time
	soft      time.Duration
	now       func() time.Time
	cp        *checkpoint
}

// NewScope builds a scope for running a handler outside the dispatcher,
// such as a one-off command or a handler test. processed seeds the checkpoint.
func NewScope(id uuid.UUID, log *slog.Logger, now func() time.Time, soft time.Duration, processed []string) *Scope {
	if now == nil {
		now = time.Now
	}
	return &Scope{
		JobID:     id,
		Attempt:   1,
		Log:       log,
		startedAt: now(),
		soft:      soft,
		now:       now,
		cp:        newCheckpoint(processed),
	}
}

// Processed returns the checkpointed recipients in sorted order.
func (s *Scope) Processed() []string { return s.cp.list() }

// Now returns the dispatcher clock. Handlers derive report windows from it.
func (s *Scope) Now() time.Time { return s.now() }

// StartedAt is when the current attempt began.
func (s *Scope) StartedAt() time.Time { return s.startedAt }

// ShouldWrapUp reports whether the soft time limit has passed. Batch loops
// check it before starting a new page.
func (s *Scope) ShouldWrapUp() bool {
	return s.soft > 0 && s.now().Sub(s.startedAt) >= s.soft
}

// Done reports whether recipient was already handled by an earlier attempt
// of the same job.
func (s *Scope) Done(recipient string) bool { return s.cp.has(recipient) }

// MarkDone records recipient as handled so a retry skips it.
func (s *Scope) MarkDone(recipient string) { s.cp.add(recipient) }

// checkpoint is the processed-recipient set of one job, shared by all of
// its attempts.
type checkpoint struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newCheckpoint(ids []string) *checkpoint {
	cp := &checkpoint{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		cp.seen[id] = struct{}{}
	}
	return cp
}

func (c *checkpoint) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[id]
	return ok
}

func (c *checkpoint) add(id string) {
	c.mu.Lock()
	c.seen[id] = struct{}{}
	c.mu.Unlock()
}

// list returns the set sorted so persisted records are stable.
func (c *checkpoint) list() []string {
	c.mu.Lock()
	out := make([]string, 0, len(c.seen))
	for id := range c.seen {
		out = append(out, id)
	}
	c.mu.Unlock()
	slices.Sort(out)
	return out
}
