// Package ratelimit throttles MCP tool calls with one token bucket per tool.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is wrapped by Check when a tool's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	rate   float64 // tokens per second
	burst  int
	now    func() time.Time
}

// NewLimiter returns a full bucket refilling at rate tokens per second up
// to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		tokens: float64(burst),
		rate:   rate,
		burst:  burst,
		now:    time.Now,
	}
}

// PerMinute is NewLimiter with the rate given in calls per minute.
func PerMinute(calls float64, burst int) *Limiter {
	return NewLimiter(calls/60, burst)
}

// Allow takes one token if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.last.IsZero() {
		l.last = now
	}
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens = min(l.tokens+l.rate*elapsed, float64(l.burst))
		l.last = now
	}

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// ToolLimiters maps tool names to their buckets.
type ToolLimiters map[string]*Limiter

// DefaultToolLimiters covers the growthsim MCP tools. growth_generate writes
// to disk and is held tighter than the read-only tools.
func DefaultToolLimiters() ToolLimiters {
	return ToolLimiters{
		"growth_generate": PerMinute(20, 5),
		"growth_auc":      PerMinute(60, 10),
		"growth_runs":     PerMinute(60, 10),
	}
}

// Check takes a token for tool. Tools without a limiter are never throttled.
func (t ToolLimiters) Check(tool string) error {
	l, ok := t[tool]
	if !ok {
		return nil
	}
	if !l.Allow() {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, tool)
	}
	return nil
}
