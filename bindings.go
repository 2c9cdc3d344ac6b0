package rigging

import (
	"fmt"
	"strings"
)

// Bindings maps event names to handlers. Keys may name several
// whitespace-separated events. Values are either a callback (Handler or any
// func(...any)) or a string of one or more whitespace-separated method names
// resolved on the bind target.
type Bindings map[string]any

// BindEntityEvents subscribes target to entity's events as described by
// bindings. The target must be a Binder (embed Emitter); method-name values
// are resolved on the target's concrete type, so handler methods live next
// to the state they act on:
//
//	view.BindEntityEvents(view, model, rigging.Bindings{
//		"change":  "Render",
//		"destroy": func(args ...any) { view.Remove() },
//	})
//
// A nil entity or empty bindings map is a no-op. A method name that does not
// resolve is a *MissingMethodError; bindings already applied stay applied.
func BindEntityEvents(target any, entity Observable, bindings Bindings) error {
	if entity == nil || len(bindings) == 0 {
		return nil
	}
	binder, ok := target.(Binder)
	if !ok {
		return &NotBindableError{Type: fmt.Sprintf("%T", target)}
	}

	for events, v := range bindings {
		switch value := v.(type) {
		case Handler:
			binder.ListenTo(entity, events, value)
		case func(args ...any):
			binder.ListenTo(entity, events, value)
		case string:
			for _, name := range strings.Fields(value) {
				h, err := methodHandler(target, name)
				if err != nil {
					return err
				}
				if tb, ok := target.(taggedBinder); ok {
					tb.listenToTag(entity, events, h, name)
				} else {
					binder.ListenTo(entity, events, h)
				}
			}
		default:
			return fmt.Errorf("binding for %q must be a handler func or method name, got %T", events, v)
		}
	}
	return nil
}

// UnbindEntityEvents removes the subscriptions BindEntityEvents created for
// the same bindings map. Method-name values unbind only registrations tagged
// with that method, so handlers attached by other means survive; callback
// values unbind at event granularity. Binding then unbinding the same map
// leaves target with no subscriptions to entity.
func UnbindEntityEvents(target any, entity Observable, bindings Bindings) error {
	if entity == nil || len(bindings) == 0 {
		return nil
	}
	binder, ok := target.(Binder)
	if !ok {
		return &NotBindableError{Type: fmt.Sprintf("%T", target)}
	}

	for events, v := range bindings {
		switch value := v.(type) {
		case Handler, func(args ...any):
			binder.StopListening(entity, strings.Fields(events)...)
		case string:
			for _, name := range strings.Fields(value) {
				if tb, ok := target.(taggedBinder); ok {
					tb.stopListeningTag(entity, strings.Fields(events), name)
				} else {
					binder.StopListening(entity, strings.Fields(events)...)
				}
			}
		default:
			return fmt.Errorf("binding for %q must be a handler func or method name, got %T", events, v)
		}
	}
	return nil
}

// NormalizeMethods resolves a bindings map into concrete callbacks: string
// values become handlers bound to target, callbacks pass through, and
// entries that do not resolve are dropped. Useful for turning a declarative
// hash into something directly invokable.
func NormalizeMethods(target any, hash Bindings) map[string]Handler {
	if hash == nil {
		return nil
	}
	out := make(map[string]Handler, len(hash))
	for event, v := range hash {
		switch value := v.(type) {
		case Handler:
			out[event] = value
		case func(args ...any):
			out[event] = value
		case string:
			if h, err := methodHandler(target, value); err == nil {
				out[event] = h
			}
		}
	}
	return out
}
