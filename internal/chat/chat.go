// Package chat implements the transport-independent routing core of a bot:
// inbound fan-out to consumers and an optional dispatcher, the outbound
// send path with policy aggregation and delayed sends, and the group-join
// readiness gate. Transports embed a *Chat and feed it decoded messages.
package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"botkit/internal/domain"
	"botkit/internal/metrics"
	"botkit/internal/policy"
)

// Config configures a chat routing core.
type Config struct {
	Name      string           // service name, used in logs and metrics
	Transport domain.Transport // primitive deliver/join boundary
	Self      domain.Identity  // the bot's own identity, used for joins
	Logger    *slog.Logger
}

// Chat routes messages between a transport and the services interested in
// them. It implements domain.Chat and domain.GroupJoiner.
type Chat struct {
	name      string
	transport domain.Transport
	self      domain.Identity
	logger    *slog.Logger
	gate      *JoinGate

	mu         sync.Mutex
	consumers  []domain.Consumer
	dispatcher domain.Dispatcher
	policies   []domain.SendPolicy
	pending    map[string]*scheduledSend
	closed     bool
	firing     sync.WaitGroup // in-flight scheduled deliveries

	received     *metrics.Counter
	sendsSent    *metrics.Counter
	sendsDenied  *metrics.Counter
	sendsDelayed *metrics.Counter
	sendsFailed  *metrics.Counter
	pendingGauge *metrics.Gauge
}

// New creates the routing core for one transport-backed chat.
func New(cfg Config) *Chat {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	labels := fmt.Sprintf("chat=%q", cfg.Name)
	c := &Chat{
		name:      cfg.Name,
		transport: cfg.Transport,
		self:      cfg.Self,
		logger:    cfg.Logger,
		pending:   make(map[string]*scheduledSend),

		received:     metrics.Collector.Counter("botkit_messages_received_total", "Inbound messages fanned out to consumers", labels),
		sendsSent:    metrics.Collector.Counter("botkit_sends_total", "Outbound sends delivered to the transport", labels),
		sendsDenied:  metrics.Collector.Counter("botkit_sends_denied_total", "Outbound sends refused by a policy", labels),
		sendsDelayed: metrics.Collector.Counter("botkit_sends_delayed_total", "Outbound sends deferred by a policy", labels),
		sendsFailed:  metrics.Collector.Counter("botkit_sends_failed_total", "Outbound sends the transport failed to deliver", labels),
		pendingGauge: metrics.Collector.Gauge("botkit_sends_pending", "Scheduled sends not yet fired", labels),
	}
	c.gate = NewJoinGate(cfg.Logger, func(group string) error {
		return cfg.Transport.Join(group, cfg.Self)
	})
	return c
}

// Name returns the chat's service name.
func (c *Chat) Name() string { return c.name }

// Self returns the bot's own identity on this chat.
func (c *Chat) Self() domain.Identity { return c.self }

// Logger returns the chat's logger, already tagged with the chat name.
func (c *Chat) Logger() *slog.Logger { return c.logger }

// RegisterConsumer appends a consumer; delivery order is registration order.
func (c *Chat) RegisterConsumer(cons domain.Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, cons)
}

// AttachDispatcher sets the chat's optional dispatcher. A chat without one
// skips the dispatch step entirely.
func (c *Chat) AttachDispatcher(d domain.Dispatcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher = d
}

// AttachPolicy appends a send policy; aggregation order is attach order.
func (c *Chat) AttachPolicy(p domain.SendPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies = append(c.policies, p)
}

// ResendMessage delivers an inbound message to every registered consumer in
// order, then to the dispatcher when one is attached. A failing or
// panicking consumer is logged and does not stop delivery to the rest.
// Transports call this once per decoded wire event.
func (c *Chat) ResendMessage(m domain.Message) {
	c.received.Inc()

	c.mu.Lock()
	consumers := make([]domain.Consumer, len(c.consumers))
	copy(consumers, c.consumers)
	dispatcher := c.dispatcher
	c.mu.Unlock()

	for _, cons := range consumers {
		c.consume(cons, m)
	}
	if dispatcher != nil {
		c.dispatch(dispatcher, m)
	}
}

func (c *Chat) consume(cons domain.Consumer, m domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("consumer panic", "chat", c.name, "panic", r)
		}
	}()
	if err := cons.ReceiveMessage(m); err != nil {
		c.logger.Warn("consumer error", "chat", c.name, "err", err)
	}
}

func (c *Chat) dispatch(d domain.Dispatcher, m domain.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("dispatcher panic", "chat", c.name, "panic", r)
		}
	}()
	if err := d.Dispatch(m); err != nil {
		c.logger.Warn("dispatcher error", "chat", c.name, "err", err)
	}
}

// SendMessage sends text toward exactly one of p.To / p.Group, subject to
// the attached policy chain. A policy refusal is routine: the result says
// Denied and the error is nil. Caller misuse and transport faults come back
// as non-nil errors alongside a Failed result.
func (c *Chat) SendMessage(p domain.SendParams) (domain.SendResult, error) {
	if (p.To == "") == (p.Group == "") {
		return domain.SendResult{State: domain.SendFailed, Reason: "ambiguous target"},
			fmt.Errorf("chat %s: %w", c.name, domain.ErrAmbiguousTarget)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.SendResult{State: domain.SendFailed, Reason: "chat shut down"},
			fmt.Errorf("chat %s: %w", c.name, domain.ErrChatClosed)
	}
	policies := make([]domain.SendPolicy, len(c.policies))
	copy(policies, c.policies)
	c.mu.Unlock()

	verdict := policy.Aggregate(policies, p)
	switch verdict.Verdict {
	case domain.VerdictDeny:
		c.sendsDenied.Inc()
		c.logger.Info("send denied by policy", "chat", c.name, "reason", verdict.Reason)
		return domain.SendResult{State: domain.SendDenied, Reason: verdict.Reason}, nil

	case domain.VerdictDelay:
		id, err := c.schedule(p, verdict.Delay)
		if err != nil {
			return domain.SendResult{State: domain.SendFailed, Reason: err.Error()}, err
		}
		c.sendsDelayed.Inc()
		return domain.SendResult{State: domain.SendScheduled, Reason: verdict.Reason, ScheduleID: id}, nil
	}

	if err := c.transport.Deliver(p); err != nil {
		c.sendsFailed.Inc()
		return domain.SendResult{State: domain.SendFailed, Reason: err.Error()},
			fmt.Errorf("chat %s deliver: %w", c.name, err)
	}
	c.sendsSent.Inc()
	return domain.SendResult{State: domain.SendSent}, nil
}

// SendReply answers an inbound message. The target defaults to the
// originating group for a group message and to the sender's username for a
// direct one; overrides take precedence (a To or Group override replaces
// the computed target entirely).
func (c *Chat) SendReply(orig domain.Message, o domain.ReplyOverrides) (domain.SendResult, error) {
	p := domain.SendParams{Text: o.Text}
	if orig.Group != "" {
		p.Group = orig.Group
	} else {
		p.To = orig.From.Username
	}
	if o.To != "" || o.Group != "" {
		p.To, p.Group = o.To, o.Group
	}
	return c.SendMessage(p)
}

// RequestJoin records join intent, joining immediately once the transport
// session is ready.
func (c *Chat) RequestJoin(group string) { c.gate.RequestJoin(group) }

// MarkReady opens the join gate. Transports call it exactly once per
// established session.
func (c *Chat) MarkReady() { c.gate.MarkReady() }

// Gate exposes the readiness gate, mainly for services that persist the
// desired-membership list.
func (c *Chat) Gate() *JoinGate { return c.gate }

// Shutdown cancels every outstanding scheduled send and waits for in-flight
// timer callbacks, guaranteeing zero deliveries after it returns. Further
// sends fail with ErrChatClosed. Safe to call more than once.
func (c *Chat) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, s := range c.pending {
		s.timer.Stop()
		delete(c.pending, id)
		c.pendingGauge.Dec()
	}
	c.mu.Unlock()

	c.firing.Wait()
	c.logger.Debug("chat routing shut down", "chat", c.name)
	return nil
}
