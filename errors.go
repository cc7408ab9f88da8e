// FILE: lixenwraith/propcfg/errors.go
package propcfg

import (
	"errors"
	"fmt"
)

var (
	// ErrConstantNotFound is returned when an explicitly named constant does not exist
	ErrConstantNotFound = errors.New("constant not found")
	// ErrTypeNotFound is returned when a qualified name refers to an undeclared type
	ErrTypeNotFound = errors.New("type not found")
	// ErrCoercion wraps failures converting a raw value to a property's type
	ErrCoercion = errors.New("coercion failed")
	// ErrMutation wraps failures writing a property
	ErrMutation = errors.New("mutation failed")
	// ErrMissingInstance is returned when an instance property is used without an owner
	ErrMissingInstance = errors.New("instance property requires an owner instance")
	// ErrUnexpectedInstance is returned when a static property is used with an owner
	ErrUnexpectedInstance = errors.New("static property cannot take an owner instance")
	// ErrOwnerMismatch is returned when an event's owner does not match the property kind
	ErrOwnerMismatch = errors.New("owner presence does not match property kind")
	// ErrEmptyCallbacks is returned when callbacks are built without any handler
	ErrEmptyCallbacks = errors.New("callbacks require at least one handler")
	// ErrUnknownProcedure is returned when a named handler has no definition
	ErrUnknownProcedure = errors.New("unknown procedure")
	// ErrHandlerPanic wraps a panic recovered from a user handler
	ErrHandlerPanic = errors.New("handler panicked")
	// ErrRemoteBlocked is returned when a blocked property is offered to the remote surface
	ErrRemoteBlocked = errors.New("property is blocked from remote access")
	// ErrRemoteKeyConflict is returned when a remote key is already bound to another property
	ErrRemoteKeyConflict = errors.New("remote key already registered")
	// ErrPropertiesNotFound is returned when a properties file does not exist
	ErrPropertiesNotFound = errors.New("properties file not found")
	// ErrUnsupportedFormat is returned when a properties file format cannot be determined
	ErrUnsupportedFormat = errors.New("unsupported properties format")
)

// FailureHandlerError is returned from a configuration pass when a failure
// handler itself fails. It carries the handler error and the original
// failure cause; both are reachable through errors.Is and errors.As.
type FailureHandlerError struct {
	Err      error // error raised by the failure handler
	Original error // error that produced the failure event
}

func (e *FailureHandlerError) Error() string {
	return fmt.Sprintf("failure handler failed: %v (while handling: %v)", e.Err, e.Original)
}

func (e *FailureHandlerError) Unwrap() []error {
	return []error{e.Err, e.Original}
}
