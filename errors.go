package rigging

import "fmt"

// MissingMethodError indicates a binding named a method the target does not
// have.
type MissingMethodError struct {
	Method string
}

func (e *MissingMethodError) Error() string {
	return fmt.Sprintf("method %q was configured as an event handler but does not exist", e.Method)
}

// BadHandlerError indicates a handler method exists but its signature cannot
// receive a dispatched event.
type BadHandlerError struct {
	Method string
	Sig    string
}

func (e *BadHandlerError) Error() string {
	return fmt.Sprintf("method %q has unsupported handler signature %s", e.Method, e.Sig)
}

// NotBindableError indicates an entity-event bind target that cannot track
// its own listens.
type NotBindableError struct {
	Type string
}

func (e *NotBindableError) Error() string {
	return fmt.Sprintf("type %s cannot bind entity events: it does not track listens", e.Type)
}
