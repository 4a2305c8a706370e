package domain

import "time"

// SendParams describes one outbound send. Exactly one of To/Group must be
// set; SendMessage rejects anything else with ErrAmbiguousTarget.
type SendParams struct {
	To    string
	Group string
	Text  string
}

// SendState classifies the outcome of a SendMessage call.
type SendState string

const (
	SendSent      SendState = "sent"
	SendDenied    SendState = "denied"    // a policy refused the send; routine, not an error
	SendScheduled SendState = "scheduled" // a policy delayed the send; it will fire later
	SendFailed    SendState = "failed"    // transport delivery failed
)

// SendResult reports what happened to an outbound send. Denied results
// carry the winning policy's reason; Scheduled results carry the ID of the
// pending send so callers can cancel it.
type SendResult struct {
	State      SendState
	Reason     string
	ScheduleID string
}

// ReplyOverrides adjusts the target or text computed by SendReply. A
// non-empty To or Group replaces the computed target entirely; a non-empty
// Text replaces the reply text.
type ReplyOverrides struct {
	To    string
	Group string
	Text  string
}

// Verdict is a send policy's decision. Verdicts are ordered by
// restrictiveness: Deny > Delay > Allow.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictDelay
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictDeny:
		return "deny"
	case VerdictDelay:
		return "delay"
	default:
		return "allow"
	}
}

// PolicyResult is the outcome of evaluating one send policy, or the
// aggregate of a whole chain. Delay is meaningful only when Verdict is
// VerdictDelay.
type PolicyResult struct {
	Verdict Verdict
	Delay   time.Duration
	Reason  string
}
