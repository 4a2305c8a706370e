package policy

import (
	"testing"
	"time"

	"botkit/internal/domain"
)

// fixed is a policy that always returns the same result.
type fixed struct {
	r domain.PolicyResult
}

func (f fixed) EvaluateSend(_ domain.SendParams) domain.PolicyResult { return f.r }

func TestAggregate_EmptyChainAllows(t *testing.T) {
	r := Aggregate(nil, domain.SendParams{To: "a", Text: "x"})
	if r.Verdict != domain.VerdictAllow {
		t.Fatalf("expected allow, got %v", r.Verdict)
	}
}

func TestAggregate_DenyBeatsDelayAndAllow(t *testing.T) {
	chain := []domain.SendPolicy{
		fixed{Allow()},
		fixed{Delay(5*time.Second, "slow down")},
		fixed{Deny("nope")},
	}
	r := Aggregate(chain, domain.SendParams{To: "a", Text: "x"})
	if r.Verdict != domain.VerdictDeny {
		t.Fatalf("expected deny, got %v", r.Verdict)
	}
	if r.Reason != "nope" {
		t.Fatalf("expected deny reason to win, got %q", r.Reason)
	}
}

func TestAggregate_LargestDelayWins(t *testing.T) {
	chain := []domain.SendPolicy{
		fixed{Allow()},
		fixed{Delay(5*time.Second, "five")},
		fixed{Delay(2*time.Second, "two")},
	}
	r := Aggregate(chain, domain.SendParams{Group: "g", Text: "x"})
	if r.Verdict != domain.VerdictDelay {
		t.Fatalf("expected delay, got %v", r.Verdict)
	}
	if r.Delay != 5*time.Second {
		t.Fatalf("expected 5s delay, got %v", r.Delay)
	}
	if r.Reason != "five" {
		t.Fatalf("expected first-attached 5s reason, got %q", r.Reason)
	}
}

func TestAggregate_FirstAttachedWinsTies(t *testing.T) {
	chain := []domain.SendPolicy{
		fixed{Deny("first")},
		fixed{Deny("second")},
	}
	r := Aggregate(chain, domain.SendParams{To: "a", Text: "x"})
	if r.Reason != "first" {
		t.Fatalf("expected first-attached deny, got %q", r.Reason)
	}

	chain = []domain.SendPolicy{
		fixed{Delay(3*time.Second, "first")},
		fixed{Delay(3*time.Second, "second")},
	}
	r = Aggregate(chain, domain.SendParams{To: "a", Text: "x"})
	if r.Reason != "first" {
		t.Fatalf("expected first-attached delay on tie, got %q", r.Reason)
	}
}

func TestRateLimit_BurstThenDelay(t *testing.T) {
	rl := NewRateLimit(3, 60)
	p := domain.SendParams{To: "a", Text: "x"}

	for i := 0; i < 3; i++ {
		if r := rl.EvaluateSend(p); r.Verdict != domain.VerdictAllow {
			t.Fatalf("burst send %d: expected allow, got %v", i, r.Verdict)
		}
	}

	r := rl.EvaluateSend(p)
	if r.Verdict != domain.VerdictDelay {
		t.Fatalf("expected delay after burst, got %v", r.Verdict)
	}
	if r.Delay <= 0 || r.Delay > time.Second+100*time.Millisecond {
		t.Fatalf("expected ~1s delay at 60/min, got %v", r.Delay)
	}
}

func TestRateLimit_DelaysSpreadOut(t *testing.T) {
	rl := NewRateLimit(1, 60)
	p := domain.SendParams{Group: "g", Text: "x"}

	rl.EvaluateSend(p) // consume the burst
	first := rl.EvaluateSend(p)
	second := rl.EvaluateSend(p)

	if second.Delay <= first.Delay {
		t.Fatalf("expected later sends to queue further out: first %v, second %v", first.Delay, second.Delay)
	}
}

func TestRateLimit_Defaults(t *testing.T) {
	rl := NewRateLimit(0, 0)
	if rl.max != 10 {
		t.Fatalf("expected default burst 10, got %v", rl.max)
	}
	if rl.rate != 1 {
		t.Fatalf("expected default 60/min (1/sec), got %v", rl.rate)
	}
}

func TestQuietHours_InsideWindowDenies(t *testing.T) {
	q := NewQuietHours(22, 7)
	q.now = func() time.Time { return time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC) }
	if r := q.EvaluateSend(domain.SendParams{To: "a", Text: "x"}); r.Verdict != domain.VerdictDeny {
		t.Fatalf("23:00 in 22-07 window should deny, got %v", r.Verdict)
	}

	q.now = func() time.Time { return time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC) }
	if r := q.EvaluateSend(domain.SendParams{To: "a", Text: "x"}); r.Verdict != domain.VerdictDeny {
		t.Fatalf("03:00 in 22-07 window should deny, got %v", r.Verdict)
	}

	q.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	if r := q.EvaluateSend(domain.SendParams{To: "a", Text: "x"}); r.Verdict != domain.VerdictAllow {
		t.Fatalf("12:00 outside 22-07 window should allow, got %v", r.Verdict)
	}
}

func TestMaxLength(t *testing.T) {
	m := NewMaxLength(5)
	if r := m.EvaluateSend(domain.SendParams{To: "a", Text: "hello"}); r.Verdict != domain.VerdictAllow {
		t.Fatalf("at limit should allow, got %v", r.Verdict)
	}
	if r := m.EvaluateSend(domain.SendParams{To: "a", Text: "hello!"}); r.Verdict != domain.VerdictDeny {
		t.Fatalf("over limit should deny, got %v", r.Verdict)
	}
}
