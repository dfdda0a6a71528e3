package domain

import (
	"context"
	"log"
)

// Environment is what a connector binding sees at start time.
type Environment struct {
	BindingName string
	Options     map[string]interface{}
	Logger      *log.Logger
}

// Log returns the environment logger, falling back to the process default.
func (e *Environment) Log() *log.Logger {
	if e == nil || e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}

// Connector is the base contract every backend plugin satisfies.
// Optional behavior (XA, pooling preference, per-user identity) is declared
// through the extension interfaces in capabilities.go.
type Connector interface {
	// Start initializes the connector for the given binding.
	Start(env *Environment) error

	// Stop releases all connector resources. Idempotent.
	Stop()

	// GetConnection obtains a connection for the request's work context.
	GetConnection(ctx context.Context, workCtx *WorkContext) (Connection, error)

	// GetCapabilities returns the connector-level capabilities, shared by
	// all users. Returning (nil, nil) means capabilities vary per
	// connection and must be queried from Connection.GetCapabilities.
	GetCapabilities() (Capabilities, error)
}

// Connection is one logical connection to the backend data source.
type Connection interface {
	// CreateExecution prepares an execution for one resolved command.
	CreateExecution(ctx context.Context, req *AtomicRequestMessage) (Execution, error)

	// GetCapabilities returns per-connection capabilities.
	GetCapabilities() (Capabilities, error)

	// IsAlive reports whether the physical connection is still usable.
	IsAlive() bool

	// Close releases the connection.
	Close()
}

// Execution is the cursor over one command's results.
type Execution interface {
	// Execute submits the command to the backend.
	Execute(ctx context.Context) error

	// NextBatch returns the next batch of rows. Cooperative connectors
	// return a *DataNotAvailableError when results are not yet ready; the
	// caller re-polls after the indicated delay. The batch with Final set
	// ends the stream.
	NextBatch(ctx context.Context) (*AtomicResultsMessage, error)

	// Cancel asks the backend to abort the command. Best effort.
	Cancel() error

	// Close releases cursor-side resources.
	Close()
}

// ConnectorStatus is the liveness state a binding reports.
type ConnectorStatus int

const (
	StatusUnknown ConnectorStatus = iota
	StatusOpen
	StatusClosed
)

func (s ConnectorStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}
