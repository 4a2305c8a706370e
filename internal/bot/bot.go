// Package bot is the service registry: it owns the named services composed
// into one running bot, builds them from declarative definitions and drives
// their lifecycle (constructed -> initialized -> running -> shut down).
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"botkit/internal/domain"
)

var (
	// ErrDuplicateName is returned by Register when the service name is
	// already taken.
	ErrDuplicateName = errors.New("duplicate service name")

	// ErrServiceResolution is returned by BuildAll when a constructor
	// reference cannot be resolved in any namespace.
	ErrServiceResolution = errors.New("cannot resolve service constructor")

	// ErrServiceConstruction is returned by BuildAll when a resolved
	// constructor fails.
	ErrServiceConstruction = errors.New("service construction failed")
)

// definition is one registered (name, constructor reference, params) tuple.
type definition struct {
	name   string
	ref    string
	params Params
}

// Bot owns an ordered set of named services. Insertion order is
// construction and initialization order; shutdown runs in reverse.
type Bot struct {
	logger *slog.Logger
	local  *Namespace // constructors registered via Define ("."-refs)

	defs     []definition
	services map[string]domain.Service
	order    []string
}

// New creates an empty bot.
func New(logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:   logger,
		local:    NewNamespace(),
		services: make(map[string]domain.Service),
	}
}

// Logger returns the bot's logger, for services built without one of their
// own.
func (b *Bot) Logger() *slog.Logger { return b.logger }

// Define registers a bot-local service constructor, addressable from
// definitions as "." + name.
func (b *Bot) Define(name string, c Constructor) {
	b.local.Define(name, c)
}

// Register adds a service definition. Definitions are built and
// initialized in registration order.
func (b *Bot) Register(name, ref string, params map[string]any) error {
	for _, d := range b.defs {
		if d.name == name {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	b.defs = append(b.defs, definition{name: name, ref: ref, params: Params(params)})
	return nil
}

// BuildAll resolves every definition's constructor reference and constructs
// every service. Failure of either step is fatal: the bot keeps no partial
// service set and Init is never called on anything.
func (b *Bot) BuildAll() error {
	type resolved struct {
		def  definition
		ctor Constructor
	}
	resolvedDefs := make([]resolved, 0, len(b.defs))
	for _, d := range b.defs {
		ctor, ok := b.resolveRef(d.ref)
		if !ok {
			return fmt.Errorf("%w: service %q ref %q", ErrServiceResolution, d.name, d.ref)
		}
		resolvedDefs = append(resolvedDefs, resolved{def: d, ctor: ctor})
	}

	services := make(map[string]domain.Service, len(resolvedDefs))
	order := make([]string, 0, len(resolvedDefs))
	for _, r := range resolvedDefs {
		svc, err := r.ctor(b, r.def.name, r.def.params)
		if err != nil {
			return fmt.Errorf("%w: service %q: %v", ErrServiceConstruction, r.def.name, err)
		}
		services[r.def.name] = svc
		order = append(order, r.def.name)
		b.logger.Debug("service constructed", "name", r.def.name, "ref", r.def.ref)
	}

	b.services = services
	b.order = order
	return nil
}

// Run builds every service, then initializes them in insertion order.
// Initialization is fail-fast: the first Init error aborts Run and is
// returned, and later services are left un-initialized. Services already
// initialized stay owned by the bot, so the caller's ShutdownAll still
// reaches them.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.BuildAll(); err != nil {
		return err
	}
	for _, name := range b.order {
		svc := b.services[name]
		if err := svc.Init(ctx); err != nil {
			return fmt.Errorf("initialize service %q: %w", name, err)
		}
		b.logger.Info("service initialized", "name", name)
	}
	return nil
}

// Lookup returns the built service with the given name. Services use this
// back-reference during Init to find the chat they attach to.
func (b *Bot) Lookup(name string) (domain.Service, bool) {
	svc, ok := b.services[name]
	return svc, ok
}

// Chat looks up a service and asserts its chat capability.
func (b *Bot) Chat(name string) (domain.Chat, error) {
	svc, ok := b.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("no service named %q", name)
	}
	ch, ok := svc.(domain.Chat)
	if !ok {
		return nil, fmt.Errorf("service %q has no chat capability", name)
	}
	return ch, nil
}

// Services returns the owned service names in insertion order.
func (b *Bot) Services() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// ShutdownAll tears services down in reverse insertion order. Services
// without the Shutdowner capability default to a no-op. Individual
// failures are logged and swallowed so one misbehaving service cannot
// block teardown of the rest.
func (b *Bot) ShutdownAll() {
	for i := len(b.order) - 1; i >= 0; i-- {
		name := b.order[i]
		s, ok := b.services[name].(domain.Shutdowner)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("service shutdown panic", "name", name, "panic", r)
				}
			}()
			if err := s.Shutdown(); err != nil {
				b.logger.Warn("service shutdown error", "name", name, "err", err)
				return
			}
			b.logger.Info("service shut down", "name", name)
		}()
	}
}
