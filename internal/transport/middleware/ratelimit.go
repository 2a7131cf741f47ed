package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Chirantan-Dey/quiz-master/pkg/ctxutil"
)

const bucketIdleTTL = 10 * time.Minute

// RateLimiter hands out per-client token buckets. Authenticated callers are
// keyed by account, anonymous ones by remote host. Every Limit call gets its
// own set of buckets, so routes with different limits do not share budget.
type RateLimiter struct {
	now  func() time.Time
	stop chan struct{}
	once sync.Once

	mu     sync.Mutex
	scopes []*sync.Map // map[string]*bucket
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
}

// NewRateLimiter starts a limiter whose idle buckets are dropped every
// cleanupInterval. Call Stop on shutdown.
func NewRateLimiter(cleanupInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{now: time.Now, stop: make(chan struct{})}
	go rl.cleanup(cleanupInterval)
	return rl
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Limit allows maxPerMinute requests per client with a burst of the same size.
// Rejected requests get 429 and a Retry-After of the seconds until the next token.
func (rl *RateLimiter) Limit(maxPerMinute int) Middleware {
	buckets := &sync.Map{}
	rl.mu.Lock()
	rl.scopes = append(rl.scopes, buckets)
	rl.mu.Unlock()

	capacity := float64(maxPerMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := rl.now()
			v, _ := buckets.LoadOrStore(clientKey(r), &bucket{
				tokens:     capacity,
				capacity:   capacity,
				perSecond:  capacity / 60,
				lastRefill: now,
			})

			if wait, ok := v.(*bucket).take(now); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id, ok := ctxutil.IdentityFromCtx(r.Context()); ok {
		return "account:" + strconv.FormatInt(id.AccountID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// take consumes a token, or reports how long until one is available.
func (b *bucket) take(now time.Time) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.perSecond)
	b.lastRefill = now

	if b.tokens < 1 {
		if b.perSecond <= 0 {
			return time.Minute, false
		}
		return time.Duration((1 - b.tokens) / b.perSecond * float64(time.Second)), false
	}
	b.tokens--
	return 0, true
}

func (b *bucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastRefill)
}

func (rl *RateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	scopes := rl.scopes
	rl.mu.Unlock()

	for _, buckets := range scopes {
		buckets.Range(func(key, value any) bool {
			if value.(*bucket).idleSince(now) > bucketIdleTTL {
				buckets.Delete(key)
			}
			return true
		})
	}
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}
