package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownCommand = errors.New("command: unknown command")
	ErrInvalidConfig  = errors.New("command: invalid configuration")
)

// Exit codes form the operational contract with the container orchestrator.
const (
	ExitSuccess        = 0
	ExitHandlerFailure = 1
	ExitUnknownCommand = 2
	ExitInvalidConfig  = 3
)

// DefaultCommand is dispatched when the invocation carries no arguments.
const DefaultCommand = "idle"

// Handler executes a named command. The context is cancelled on SIGINT/SIGTERM.
type Handler func(ctx context.Context) error

// Registry maps command names to handlers. It is built once at startup and
// read-only afterwards; lookup is exact-match and case-sensitive.
type Registry struct {
	commands map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Handler)}
}

// Register sets the handler for name. It panics if name already exists,
// registration happens only during startup wiring.
func (r *Registry) Register(name string, h Handler) {
	if _, exists := r.commands[name]; exists {
		panic(fmt.Sprintf("command %s already registered", name))
	}
	r.commands[name] = h
}

// Lookup returns the handler and whether it exists.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.commands[name]
	return h, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve maps an argument vector to a command name. An empty vector resolves
// to DefaultCommand. Pure, no side effects.
func Resolve(argv []string) string {
	if len(argv) == 0 {
		return DefaultCommand
	}
	return argv[0]
}

// Dispatch runs the handler registered for name and maps the outcome to an
// exit status. An unregistered name executes nothing and reports
// ErrUnknownCommand.
func Dispatch(ctx context.Context, reg *Registry, name string) (int, error) {
	h, ok := reg.Lookup(name)
	if !ok {
		return ExitUnknownCommand, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if err := h(ctx); err != nil {
		if errors.Is(err, ErrInvalidConfig) {
			return ExitInvalidConfig, err
		}
		return ExitHandlerFailure, err
	}
	return ExitSuccess, nil
}
