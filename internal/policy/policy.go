// Package policy implements send-policy evaluation for outbound messages.
// A policy inspects the parameters of one send and answers allow, delay, or
// deny; chains of policies reduce to the single most restrictive answer.
package policy

import (
	"time"

	"botkit/internal/domain"
)

// Allow is the permissive result an empty policy chain reduces to.
func Allow() domain.PolicyResult {
	return domain.PolicyResult{Verdict: domain.VerdictAllow}
}

// Deny builds a refusal with the given reason.
func Deny(reason string) domain.PolicyResult {
	return domain.PolicyResult{Verdict: domain.VerdictDeny, Reason: reason}
}

// Delay builds a deferral: the send should fire after d.
func Delay(d time.Duration, reason string) domain.PolicyResult {
	return domain.PolicyResult{Verdict: domain.VerdictDelay, Delay: d, Reason: reason}
}

// Aggregate evaluates every policy against the same send parameters and
// reduces to the most restrictive result (Deny > Delay > Allow; among
// delays the larger delay wins). Comparisons are strict, so when two
// policies tie the first-attached one keeps the verdict — aggregation is
// deterministic and order-stable. An empty chain allows unconditionally.
func Aggregate(policies []domain.SendPolicy, p domain.SendParams) domain.PolicyResult {
	agg := Allow()
	for _, pol := range policies {
		r := pol.EvaluateSend(p)
		switch {
		case r.Verdict > agg.Verdict:
			agg = r
		case r.Verdict == domain.VerdictDelay && agg.Verdict == domain.VerdictDelay && r.Delay > agg.Delay:
			agg = r
		}
	}
	return agg
}
