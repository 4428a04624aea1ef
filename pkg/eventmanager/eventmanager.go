// Package eventmanager provides the typed publish/subscribe registry shared by
// the editor components.
//
// Event types must be registered with AddEventType before anyone can listen
// to them. Handlers may carry a namespace ("change.scrollFollow") which is
// only used for bulk removal; emitting always addresses the bare type.
package eventmanager

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Sentinel configuration errors. They are returned wrapped with the offending
// type name; use errors.Is to test for them.
var (
	ErrEventTypeExists  = errors.New("event type already registered")
	ErrUnknownEventType = errors.New("no such event type")
)

// Handler receives the emitted arguments. A nil return value means "no
// result" for Emit and "keep the accumulator" for EmitReduce.
type Handler func(args ...any) any

type registration struct {
	namespace string
	handler   Handler
}

// EventManager is a registry of event types and their handlers.
type EventManager struct {
	mu       sync.RWMutex
	types    map[string]bool
	handlers map[string][]registration
}

// New creates an EventManager with no registered types.
func New() *EventManager {
	return &EventManager{
		types:    make(map[string]bool),
		handlers: make(map[string][]registration),
	}
}

// NewWithTypes creates an EventManager with the given types registered.
func NewWithTypes(types ...string) (*EventManager, error) {
	em := New()
	for _, t := range types {
		if err := em.AddEventType(t); err != nil {
			return nil, err
		}
	}
	return em, nil
}

// AddEventType registers a new event type.
func (em *EventManager) AddEventType(name string) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.types[name] {
		return fmt.Errorf("%w: %s", ErrEventTypeExists, name)
	}
	em.types[name] = true
	return nil
}

// HasEventType reports whether the type has been registered.
func (em *EventManager) HasEventType(name string) bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.types[name]
}

// Listen subscribes a handler to "type" or "type.namespace".
func (em *EventManager) Listen(typeStr string, handler Handler) error {
	eventType, namespace := splitTypeString(typeStr)

	em.mu.Lock()
	defer em.mu.Unlock()

	if !em.types[eventType] {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	em.handlers[eventType] = append(em.handlers[eventType], registration{
		namespace: namespace,
		handler:   handler,
	})
	return nil
}

// Emit calls every handler of the type in registration order and collects the
// non-nil results. It returns nil when no handler produced a result.
func (em *EventManager) Emit(typeStr string, args ...any) []any {
	eventType, _ := splitTypeString(typeStr)

	var results []any
	for _, reg := range em.snapshot(eventType) {
		if result := reg.handler(args...); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// EmitReduce threads source through the handlers of the type. Each handler is
// called with the current accumulator followed by args; a falsy result leaves
// the accumulator unchanged for the next handler.
func (em *EventManager) EmitReduce(typeStr string, source any, args ...any) any {
	eventType, _ := splitTypeString(typeStr)

	for _, reg := range em.snapshot(eventType) {
		callArgs := make([]any, 0, len(args)+1)
		callArgs = append(callArgs, source)
		callArgs = append(callArgs, args...)

		if result := reg.handler(callArgs...); !isFalsy(result) {
			source = result
		}
	}
	return source
}

// RemoveEventHandler removes handlers selected by "type" (every handler of the
// type), ".namespace" (every handler in the namespace across all types) or
// "type.namespace" (only that pair).
func (em *EventManager) RemoveEventHandler(typeStr string) {
	eventType, namespace := splitTypeString(typeStr)

	em.mu.Lock()
	defer em.mu.Unlock()

	switch {
	case eventType != "" && namespace == "":
		delete(em.handlers, eventType)
	case eventType == "" && namespace != "":
		for t := range em.handlers {
			em.removeNamespaced(t, namespace)
		}
	case eventType != "" && namespace != "":
		em.removeNamespaced(eventType, namespace)
	}
}

func (em *EventManager) removeNamespaced(eventType, namespace string) {
	kept := em.handlers[eventType][:0]
	for _, reg := range em.handlers[eventType] {
		if reg.namespace != namespace {
			kept = append(kept, reg)
		}
	}
	if len(kept) == 0 {
		delete(em.handlers, eventType)
		return
	}
	em.handlers[eventType] = kept
}

// snapshot copies the handler list so handlers can listen or remove while the
// emit is in progress.
func (em *EventManager) snapshot(eventType string) []registration {
	em.mu.RLock()
	defer em.mu.RUnlock()

	regs := em.handlers[eventType]
	if len(regs) == 0 {
		return nil
	}
	out := make([]registration, len(regs))
	copy(out, regs)
	return out
}

// splitTypeString splits "type.namespace" at the first dot.
func splitTypeString(typeStr string) (eventType, namespace string) {
	eventType, namespace, _ = strings.Cut(typeStr, ".")
	return eventType, namespace
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}
