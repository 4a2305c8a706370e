package domain

import "context"

// Service is a named, independently pluggable component attached to a bot.
// Init is where a service establishes external connections and registers
// its own callbacks; it must return without blocking the registry (long
// work belongs in goroutines). A service implements whichever capability
// interfaces below it supports; callers discover capabilities by type
// assertion, not by class hierarchy.
type Service interface {
	Name() string
	Init(ctx context.Context) error
}

// Shutdowner is the optional teardown capability. Services without it get
// the default no-op shutdown.
type Shutdowner interface {
	Shutdown() error
}

// Consumer receives a copy of every inbound message for the chat it is
// registered with. Errors are logged by the chat and do not stop delivery
// to later consumers.
type Consumer interface {
	ReceiveMessage(m Message) error
}

// Dispatcher interprets message text as commands. It is invoked after
// consumer fan-out; a chat without a dispatcher skips the step entirely.
type Dispatcher interface {
	Dispatch(m Message) error
}

// Chat is the capability for sending and receiving text through a
// transport-level destination (direct user or group).
type Chat interface {
	RegisterConsumer(c Consumer)
	AttachDispatcher(d Dispatcher)
	AttachPolicy(p SendPolicy)
	ResendMessage(m Message)
	SendMessage(p SendParams) (SendResult, error)
	SendReply(orig Message, o ReplyOverrides) (SendResult, error)
}

// GroupJoiner buffers group-join intent until the transport session is
// usable. RequestJoin may be called at any time; MarkReady is called by the
// transport exactly once per established session.
type GroupJoiner interface {
	RequestJoin(group string)
	MarkReady()
}

// SendPolicy evaluates an outbound send. Evaluation happens on every
// SendMessage call with that call's parameters; policies govern outbound
// sends only, never inbound delivery.
type SendPolicy interface {
	EvaluateSend(p SendParams) PolicyResult
}

// Transport is the primitive wire boundary a chat delegates to. Deliver is
// a one-way send toward the target named in p; Join asks the protocol to
// enter a multi-party group as id.
type Transport interface {
	Deliver(p SendParams) error
	Join(group string, id Identity) error
}
