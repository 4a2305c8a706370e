package policy

import (
	"fmt"

	"botkit/internal/domain"
)

// MaxLength denies sends whose text exceeds a byte limit. Most chat
// protocols cap message size (Telegram ~4096, Discord 2000); denying here
// keeps the refusal in the policy chain instead of a transport error.
type MaxLength struct {
	Limit int
}

func NewMaxLength(limit int) *MaxLength {
	if limit <= 0 {
		limit = 4000
	}
	return &MaxLength{Limit: limit}
}

func (m *MaxLength) EvaluateSend(p domain.SendParams) domain.PolicyResult {
	if len(p.Text) > m.Limit {
		return Deny(fmt.Sprintf("message length %d exceeds limit %d", len(p.Text), m.Limit))
	}
	return Allow()
}
