// Package functions holds the functions the remote agent may call, with
// their declarations and handlers.
package functions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Handler executes a function call. A returned error is reported to the
// agent as {"error": err.Error()}.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Definition is the declaration sent to the agent in the settings message.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Registry maps function names to handlers. Definitions keep registration order.
type Registry struct {
	mu       sync.RWMutex
	defs     []Definition
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a function. Names must be unique.
func (r *Registry) Register(def Definition, h Handler) error {
	if def.Name == "" {
		return errors.New("functions: empty name")
	}
	if h == nil {
		return fmt.Errorf("functions: nil handler for %q", def.Name)
	}
	if def.Parameters == nil {
		def.Parameters = &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[def.Name]; ok {
		return fmt.Errorf("functions: %q already registered", def.Name)
	}
	r.defs = append(r.defs, def)
	r.handlers[def.Name] = h
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(def Definition, h Handler) {
	if err := r.Register(def, h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Definitions returns a copy of every declaration in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Call runs the named handler and always returns something to send back:
// the handler's result, or an error object when the function is unknown,
// fails, panics or outlives ctx.
func (r *Registry) Call(ctx context.Context, name string, params map[string]any) any {
	h, ok := r.Lookup(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("Function %s not found", name))
	}
	if params == nil {
		params = map[string]any{}
	}

	type outcome struct {
		v   any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("function %s panicked: %v", name, p)}
			}
		}()
		v, err := h(ctx, params)
		ch <- outcome{v: v, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return ErrorResult(o.err.Error())
		}
		return o.v
	case <-ctx.Done():
		return ErrorResult(fmt.Sprintf("function %s timed out: %v", name, ctx.Err()))
	}
}

// ErrorResult is the payload reported for a failed call.
func ErrorResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// IsError reports whether v is an error payload.
func IsError(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m["error"]
	return ok
}
