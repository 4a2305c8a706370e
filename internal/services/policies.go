package services

import (
	"context"
	"fmt"

	"botkit/internal/bot"
	"botkit/internal/domain"
	"botkit/internal/policy"
)

// policyService wraps a pure send policy as a named service that attaches
// itself to its chat's policy chain during Init. The service carries the
// SendPolicy capability itself, so other code can evaluate it directly.
type policyService struct {
	name     string
	chatName string
	bot      *bot.Bot
	policy   domain.SendPolicy
}

func newPolicyService(b *bot.Bot, name string, params bot.Params, p domain.SendPolicy) (domain.Service, error) {
	chatName := params.String("chat")
	if chatName == "" {
		return nil, fmt.Errorf("policy service %s needs a chat param", name)
	}
	return &policyService{name: name, chatName: chatName, bot: b, policy: p}, nil
}

func (s *policyService) Name() string { return s.name }

func (s *policyService) Init(context.Context) error {
	ch, err := s.bot.Chat(s.chatName)
	if err != nil {
		return fmt.Errorf("policy %s: %w", s.name, err)
	}
	ch.AttachPolicy(s)
	return nil
}

func (s *policyService) EvaluateSend(p domain.SendParams) domain.PolicyResult {
	return s.policy.EvaluateSend(p)
}

// NewRateLimit builds the "ratelimit" service. Params: "chat" (required),
// "burst" (default 10), "per_minute" (default 60).
func NewRateLimit(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	perMinute := params.Float("per_minute")
	if perMinute == 0 {
		perMinute = 60
	}
	return newPolicyService(b, name, params, policy.NewRateLimit(params.IntOr("burst", 10), perMinute))
}

// NewQuietHours builds the "quiethours" service. Params: "chat" (required),
// "start" and "end" (hours, 0-23).
func NewQuietHours(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	return newPolicyService(b, name, params, policy.NewQuietHours(params.Int("start"), params.Int("end")))
}

// NewMaxLength builds the "maxlength" service. Params: "chat" (required),
// "limit" (bytes, default 4000).
func NewMaxLength(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	return newPolicyService(b, name, params, policy.NewMaxLength(params.IntOr("limit", 4000)))
}
