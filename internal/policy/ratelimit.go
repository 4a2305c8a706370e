package policy

import (
	"fmt"
	"sync"
	"time"

	"botkit/internal/domain"
)

// RateLimit is a token-bucket send policy: up to Burst sends go through
// immediately, then sends are delayed until the bucket refills at PerMinute
// tokens per minute.
//
// Window semantics: the bucket is a rolling window — one token is consumed
// per EvaluateSend call, including calls whose send another policy in the
// chain ultimately denies. Scheduled sends fire without re-evaluation, so a
// delayed send consumes exactly one token, at evaluation time.
type RateLimit struct {
	mu     sync.Mutex
	max    float64 // burst capacity
	rate   float64 // tokens per second
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewRateLimit creates a rate limit with the given burst size and
// per-minute refill rate. Non-positive values fall back to 10 burst /
// 60 per minute.
func NewRateLimit(burst int, perMinute float64) *RateLimit {
	if burst <= 0 {
		burst = 10
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimit{
		max:    float64(burst),
		rate:   perMinute / 60.0,
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// EvaluateSend consumes a token when one is available, otherwise delays the
// send until the next token would be refilled.
func (rl *RateLimit) EvaluateSend(_ domain.SendParams) domain.PolicyResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now
	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.max {
		rl.tokens = rl.max
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return Allow()
	}

	wait := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
	rl.tokens--
	return Delay(wait, fmt.Sprintf("rate limit: next slot in %s", wait.Round(time.Millisecond)))
}
