// Package stealth paces every outbound page and API operation a worker
// makes: token-bucket throttling, adaptive exponential backoff,
// human-like pauses and a rotating browser identity, plus a hard daily
// request ceiling. One Throttle is constructed per worker process;
// nothing here is shared across workers.
package stealth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/mazen160/go-random"
	"golang.org/x/time/rate"
)

type Options struct {
	// token bucket
	BucketCapacity int     `json:"bucket_capacity"`
	RefillPerSec   float64 `json:"refill_per_sec"`

	// post-throttle jitter bounds
	JitterMinMS int `json:"jitter_min_ms"`
	JitterMaxMS int `json:"jitter_max_ms"`

	// backoff curve
	BackoffBase       time.Duration `json:"-"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	BackoffMax        time.Duration `json:"-"`
	MaxAttempts       int           `json:"max_attempts"`

	// daily ceiling, reset at UTC midnight
	DailyCeiling int `json:"daily_ceiling"`

	IdentityRotation time.Duration `json:"-"`

	// when set, user agents come from the live fake-useragent pool
	// instead of the built-in static one. off by default since the
	// pool is fetched over the network on first use.
	DynamicUserAgent bool `json:"dynamic_user_agent"`
}

func DefaultOptions() Options {
	return Options{
		BucketCapacity:    60,
		RefillPerSec:      1,
		JitterMinMS:       300,
		JitterMaxMS:       800,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2,
		BackoffMax:        time.Minute,
		MaxAttempts:       5,
		DailyCeiling:      1000,
		IdentityRotation:  time.Hour,
	}
}

// Identity is the set of request-shaping headers rotated together.
type Identity struct {
	UserAgent      string
	AcceptLanguage string
}

var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
}

var languagePool = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,de;q=0.5",
	"en,fr;q=0.8",
}

type Throttle struct {
	opts    Options
	limiter *rate.Limiter

	mu         sync.Mutex
	attempts   map[string]int
	identity   Identity
	identityAt time.Time
	dailyDay   string
	dailyCount int
}

func New(opts Options) *Throttle {
	def := DefaultOptions()
	if opts.BucketCapacity <= 0 {
		opts.BucketCapacity = def.BucketCapacity
	}
	if opts.RefillPerSec <= 0 {
		opts.RefillPerSec = def.RefillPerSec
	}
	if opts.JitterMinMS <= 0 {
		opts.JitterMinMS = def.JitterMinMS
	}
	if opts.JitterMaxMS <= opts.JitterMinMS {
		opts.JitterMaxMS = opts.JitterMinMS + (def.JitterMaxMS - def.JitterMinMS)
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = def.BackoffBase
	}
	if opts.BackoffMultiplier <= 1 {
		opts.BackoffMultiplier = def.BackoffMultiplier
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = def.BackoffMax
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.DailyCeiling <= 0 {
		opts.DailyCeiling = def.DailyCeiling
	}
	if opts.IdentityRotation <= 0 {
		opts.IdentityRotation = def.IdentityRotation
	}

	return &Throttle{
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(opts.RefillPerSec), opts.BucketCapacity),
		attempts: map[string]int{},
	}
}

func randDuration(minMS, maxMS int) time.Duration {
	n, err := random.IntRange(minMS, maxMS)
	if err != nil {
		n = minMS
	}
	return time.Duration(n) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Throttle blocks until a token is available, then sleeps a small
// random jitter. Called before every outbound page navigation or API
// call. Returns a non-nil error only on context cancellation.
func (t *Throttle) Throttle(ctx context.Context, kind string) error {
	if err := t.waitDailyCeiling(ctx, kind); err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return sleepCtx(ctx, randDuration(t.opts.JitterMinMS, t.opts.JitterMaxMS))
}

func (t *Throttle) waitDailyCeiling(ctx context.Context, kind string) error {
	for {
		t.mu.Lock()
		now := time.Now().UTC()
		day := now.Format("2006-01-02")
		if day != t.dailyDay {
			t.dailyDay = day
			t.dailyCount = 0
		}
		if t.dailyCount < t.opts.DailyCeiling {
			t.dailyCount++
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		cooldown := time.Until(midnight)
		slog.WarnContext(
			ctx, "daily request ceiling hit, cooling down",
			"kind", kind,
			"ceiling", t.opts.DailyCeiling,
			"until", midnight,
		)
		if err := sleepCtx(ctx, cooldown); err != nil {
			return err
		}
	}
}

// Backoff sleeps the exponential backoff delay for the given attempt
// and reports whether the caller should retry at all. A false return
// means the attempt budget for this operation kind is exhausted.
func (t *Throttle) Backoff(ctx context.Context, kind string, attempt int) bool {
	if attempt > t.opts.MaxAttempts {
		t.mu.Lock()
		t.attempts[kind] = 0
		t.mu.Unlock()
		return false
	}
	t.mu.Lock()
	t.attempts[kind] = attempt
	t.mu.Unlock()

	delay := t.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * t.opts.BackoffMultiplier)
		if delay >= t.opts.BackoffMax {
			delay = t.opts.BackoffMax
			break
		}
	}
	delay += randDuration(t.opts.JitterMinMS, t.opts.JitterMaxMS)

	slog.DebugContext(
		ctx, "backing off",
		"kind", kind,
		"attempt", attempt,
		"delay", delay,
	)
	return sleepCtx(ctx, delay) == nil
}

type PauseKind int

const (
	PauseSession PauseKind = iota
	PauseScroll
	PauseTyping
)

var pauseBounds = map[PauseKind][2]int{
	PauseSession: {2000, 5000},
	PauseScroll:  {800, 2000},
	PauseTyping:  {100, 350},
}

// HumanPause sleeps a short randomized delay between UI interactions.
func (t *Throttle) HumanPause(ctx context.Context, kind PauseKind) {
	bounds, ok := pauseBounds[kind]
	if !ok {
		bounds = pauseBounds[PauseScroll]
	}
	_ = sleepCtx(ctx, randDuration(bounds[0], bounds[1]))
}

// Identity returns the current rotating identity, refreshing it once
// per rotation interval.
func (t *Throttle) Identity() Identity {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.identity.UserAgent != "" && time.Since(t.identityAt) < t.opts.IdentityRotation {
		return t.identity
	}

	lang := languagePool[0]
	if n, err := random.IntRange(0, len(languagePool)-1); err == nil {
		lang = languagePool[n]
	}

	ua := userAgentPool[0]
	if n, err := random.IntRange(0, len(userAgentPool)-1); err == nil {
		ua = userAgentPool[n]
	}
	if t.opts.DynamicUserAgent {
		if dynamic := browser.Chrome(); dynamic != "" {
			ua = dynamic
		}
	}

	t.identity = Identity{
		UserAgent:      ua,
		AcceptLanguage: lang,
	}
	t.identityAt = time.Now()
	return t.identity
}
