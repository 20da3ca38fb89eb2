// Package retry implements the engine's RetryPolicy: substring-based
// transient/permanent error classification wrapped around exponential
// backoff with jitter, reused by the LLMChain and OutputSender executors
// with different numeric envelopes. Adapted from the teacher's
// pkg/middleware RetryMiddleware and pkg/executor RetryExecutor, folded
// into a single reusable combinator instead of a per-node-kind executor.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// transientPatterns and permanentPatterns classify an error by lowercase
// substring match (spec.md §4.4). An error matching neither list is
// treated as permanent — fail-stop, not retry-forever.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"dns",
	"fetch failed",
	"rate limit",
	"too many requests",
	"502", "503", "504",
	"gateway",
	"service unavailable",
	"model overloaded",
	"overloaded",
	"iam token",
	"temporarily unavailable",
}

var permanentPatterns = []string{
	"400", "401", "403", "404", "405",
	"invalid api key",
	"unauthorized",
	"forbidden",
	"not found",
	"model not found",
	"validation",
	"invalid request",
}

// Classification is the outcome of inspecting an error's message.
type Classification int

const (
	// Unclassified errors are treated as Permanent (fail-stop default).
	Permanent Classification = iota
	Transient
)

// Classify lowercases err's message and tests it against the transient
// and permanent substring lists. Transient is checked first: a message
// that happens to mention both ("503: invalid api key rejected") is
// treated as transient, erring toward giving the remote system another
// chance rather than giving up on a potentially spurious gateway body.
func Classify(err error) Classification {
	if err == nil {
		return Permanent
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return Transient
		}
	}
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return Permanent
		}
	}
	return Permanent
}

// Envelope bounds a RetryPolicy's backoff schedule and stop conditions.
type Envelope struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	WallClockCap time.Duration // zero means no wall-clock cap, only MaxAttempts
	MaxAttempts  int
	JitterPct    float64
}

// LLMEnvelope is the default numeric envelope for LLMChain's provider
// dispatch: base=1s, max=30s per step, wall-clock cap=5min, 20 attempts.
func LLMEnvelope() Envelope {
	return Envelope{
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		WallClockCap: 5 * time.Minute,
		MaxAttempts:  20,
		JitterPct:    0.2,
	}
}

// HTTPEnvelope is the default numeric envelope for OutputSender's HTTP
// dispatch: base=1s, max=30s, 3 attempts, no separate wall-clock cap.
func HTTPEnvelope() Envelope {
	return Envelope{
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 3,
		JitterPct:   0.2,
	}
}

// Policy is a reusable combinator: Do(ctx, label, thunk) runs thunk,
// classifying and retrying its error per the configured Envelope, until
// it succeeds or a stop condition is hit (spec.md §4.4).
type Policy struct {
	Envelope Envelope

	// now and sleep are seams for deterministic tests; nil defaults to
	// time.Now / time.Sleep respecting ctx cancellation.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Policy from env. Panics are never raised; a zero-value
// Envelope degrades to "one attempt, no retry."
func New(env Envelope) *Policy {
	return &Policy{Envelope: env}
}

// newForTest builds a Policy with deterministic clock/sleep seams so
// backoff-schedule and wall-clock-cap behavior can be tested without
// real time.Sleep calls.
func newForTest(env Envelope, now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Policy {
	return &Policy{Envelope: env, now: now, sleep: sleep}
}

func (p *Policy) clockNow() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Policy) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff computes the delay before attempt n (0-indexed), per spec.md
// §4.4: delay = min(max_delay, 2^n * base_delay) + uniform jitter of that
// capped delay, clamped at zero.
func (p *Policy) backoff(n int) time.Duration {
	capped := float64(p.Envelope.BaseDelay) * math.Pow(2, float64(n))
	if max := float64(p.Envelope.MaxDelay); p.Envelope.MaxDelay > 0 && capped > max {
		capped = max
	}
	if p.Envelope.JitterPct > 0 {
		jitter := capped * p.Envelope.JitterPct * (2*rand.Float64() - 1)
		capped += jitter
	}
	if capped < 0 {
		capped = 0
	}
	return time.Duration(capped)
}

// GiveUpError is returned when a Policy exhausts its stop conditions. It
// names the node and the attempt count, as spec.md §4.4 requires, and
// wraps the last underlying error for %w unwrapping.
type GiveUpError struct {
	Label    string
	Attempts int
	Reason   string // "max_attempts", "wall_clock", or "permanent"
	Err      error
}

func (e *GiveUpError) Error() string {
	return fmt.Sprintf("retry: %s gave up after %d attempt(s) (%s): %v", e.Label, e.Attempts, e.Reason, e.Err)
}

func (e *GiveUpError) Unwrap() error { return e.Err }

// Do runs thunk, retrying transient failures per the Policy's Envelope.
// label identifies the node or operation for the give-up error message.
func (p *Policy) Do(ctx context.Context, label string, thunk func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	maxAttempts := p.Envelope.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	start := p.clockNow()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := thunk(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if Classify(err) == Permanent {
			return nil, &GiveUpError{Label: label, Attempts: attempt + 1, Reason: "permanent", Err: err}
		}

		if attempt == maxAttempts-1 {
			return nil, &GiveUpError{Label: label, Attempts: attempt + 1, Reason: "max_attempts", Err: err}
		}

		if p.Envelope.WallClockCap > 0 && p.clockNow().Sub(start) >= p.Envelope.WallClockCap {
			return nil, &GiveUpError{Label: label, Attempts: attempt + 1, Reason: "wall_clock", Err: err}
		}

		delay := p.backoff(attempt)
		if p.Envelope.WallClockCap > 0 {
			if remaining := p.Envelope.WallClockCap - p.clockNow().Sub(start); remaining < delay {
				delay = remaining
			}
		}
		if err := p.doSleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &GiveUpError{Label: label, Attempts: maxAttempts, Reason: "max_attempts", Err: lastErr}
}
