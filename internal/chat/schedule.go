package chat

import (
	"time"

	"github.com/google/uuid"

	"botkit/internal/domain"
)

// scheduledSend is one delayed outbound send owned by a chat. The timer
// fires in timer order but never before FireAt, and never after the owning
// chat's shutdown.
type scheduledSend struct {
	ID     string
	Params domain.SendParams
	FireAt time.Time
	timer  *time.Timer
}

// schedule queues a delayed send. It fails with ErrChatClosed once shutdown
// has started, so no new send can slip in during teardown.
func (c *Chat) schedule(p domain.SendParams, delay time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", domain.ErrChatClosed
	}

	id := uuid.NewString()
	s := &scheduledSend{ID: id, Params: p, FireAt: time.Now().Add(delay)}
	s.timer = time.AfterFunc(delay, func() { c.fire(id) })
	c.pending[id] = s
	c.pendingGauge.Inc()
	c.logger.Debug("send scheduled", "chat", c.name, "id", id, "fire_at", s.FireAt)
	return id, nil
}

// fire runs in the timer goroutine. A send that was cancelled, or whose
// chat has shut down, delivers nothing.
func (c *Chat) fire(id string) {
	c.mu.Lock()
	s, ok := c.pending[id]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, id)
	c.pendingGauge.Dec()
	c.firing.Add(1)
	c.mu.Unlock()
	defer c.firing.Done()

	if err := c.transport.Deliver(s.Params); err != nil {
		c.sendsFailed.Inc()
		c.logger.Warn("scheduled send failed", "chat", c.name, "id", id, "err", err)
		return
	}
	c.sendsSent.Inc()
}

// CancelScheduled cancels one pending send by ID. It reports whether the
// send was still pending.
func (c *Chat) CancelScheduled(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.pending[id]
	if !ok {
		return false
	}
	s.timer.Stop()
	delete(c.pending, id)
	c.pendingGauge.Dec()
	return true
}

// PendingSends returns the number of scheduled sends not yet fired.
func (c *Chat) PendingSends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
