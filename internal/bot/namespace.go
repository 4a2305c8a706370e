package bot

import (
	"strings"
	"sync"

	"botkit/internal/domain"
)

// Constructor builds a service from its declarative definition. It receives
// the owning bot (a non-owning back-reference services may keep for
// lookup), the assigned service name and the raw parameters.
type Constructor func(b *Bot, name string, params Params) (domain.Service, error)

// Namespace is a named set of service constructors.
type Namespace struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewNamespace() *Namespace {
	return &Namespace{ctors: make(map[string]Constructor)}
}

// Define adds (or replaces) a constructor by name.
func (n *Namespace) Define(name string, c Constructor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ctors[name] = c
}

// Resolve looks up a constructor by name.
func (n *Namespace) Resolve(name string) (Constructor, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	c, ok := n.ctors[name]
	return c, ok
}

// Builtins is the built-in service namespace. Plain constructor references
// resolve here; internal/services populates it at startup.
var Builtins = NewNamespace()

// Qualified holds constructors under their fully-qualified path (for
// example "botkit/internal/roster.Store"). References with a leading "="
// resolve here verbatim.
var Qualified = NewNamespace()

// resolveRef applies the three-way constructor-reference naming rule:
// a leading "." resolves against the bot's own namespace (locally-defined
// service types), a leading "=" is fully qualified and used verbatim
// against Qualified, and everything else resolves against Builtins.
func (b *Bot) resolveRef(ref string) (Constructor, bool) {
	switch {
	case strings.HasPrefix(ref, "."):
		return b.local.Resolve(strings.TrimPrefix(ref, "."))
	case strings.HasPrefix(ref, "="):
		return Qualified.Resolve(strings.TrimPrefix(ref, "="))
	default:
		return Builtins.Resolve(ref)
	}
}
