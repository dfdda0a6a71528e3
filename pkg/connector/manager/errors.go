package manager

import (
	"fmt"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// ErrStateAlreadyExists reports a duplicate registration of an atomic
// request ID. This is a protocol violation by the caller, not a runtime
// condition the subsystem recovers from.
type ErrStateAlreadyExists struct {
	ID domain.AtomicRequestID
}

func (e *ErrStateAlreadyExists) Error() string {
	return fmt.Sprintf("request state already existed for %s", e.ID)
}

// ErrBindingShutdown is the terminal error synthesized for requests still
// registered when the manager stops.
type ErrBindingShutdown struct {
	Binding string
}

func (e *ErrBindingShutdown) Error() string {
	return fmt.Sprintf("connector binding %s is shutting down", e.Binding)
}

// ErrRequestCancelled is the terminal error of a cancelled request.
type ErrRequestCancelled struct {
	ID domain.AtomicRequestID
}

func (e *ErrRequestCancelled) Error() string {
	return fmt.Sprintf("request %s was cancelled", e.ID)
}

// ErrLifecycle reports a Start or Stop call in the wrong lifecycle state.
type ErrLifecycle struct {
	Binding string
	Reason  string
}

func (e *ErrLifecycle) Error() string {
	return fmt.Sprintf("connector binding %s: %s", e.Binding, e.Reason)
}
