package chat

import (
	"log/slog"
	"sync"
)

// JoinGate buffers group-join intent until a transport session is usable.
//
// The gate moves NotReady -> Ready exactly once; there is no reverse
// transition, a transport reconnect constructs a fresh gate. While NotReady,
// RequestJoin only records the group in the desired-membership list. On
// MarkReady every desired group is joined in the order it was first
// requested, and later requests join immediately.
type JoinGate struct {
	logger *slog.Logger
	join   func(group string) error

	mu      sync.Mutex
	ready   bool
	desired []string
	seen    map[string]struct{}
}

// NewJoinGate creates a gate that performs joins through the given
// primitive once it is marked ready.
func NewJoinGate(logger *slog.Logger, join func(group string) error) *JoinGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &JoinGate{
		logger: logger,
		join:   join,
		seen:   make(map[string]struct{}),
	}
}

// RequestJoin records the group in the desired-membership list. Re-requests
// leave the list untouched, but when the gate is already ready the join
// operation is re-issued immediately.
func (g *JoinGate) RequestJoin(group string) {
	g.mu.Lock()
	if _, dup := g.seen[group]; !dup {
		g.seen[group] = struct{}{}
		g.desired = append(g.desired, group)
	}
	ready := g.ready
	g.mu.Unlock()

	if ready {
		g.doJoin(group)
	} else {
		g.logger.Debug("join queued until session ready", "group", group)
	}
}

// MarkReady transitions the gate and joins every desired group in
// first-requested order. Calling it again is a no-op, so transports that
// cannot distinguish a first connect are still safe.
func (g *JoinGate) MarkReady() {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	groups := make([]string, len(g.desired))
	copy(groups, g.desired)
	g.mu.Unlock()

	for _, group := range groups {
		g.doJoin(group)
	}
}

// Ready reports whether the transport session is usable.
func (g *JoinGate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Desired returns the desired-membership list in first-requested order.
func (g *JoinGate) Desired() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.desired))
	copy(out, g.desired)
	return out
}

func (g *JoinGate) doJoin(group string) {
	if err := g.join(group); err != nil {
		g.logger.Warn("group join failed", "group", group, "err", err)
	}
}
