package domain

import (
	"fmt"
	"sync"
)

// ConnectorType names a connector implementation ("mysql", "badger", ...).
type ConnectorType string

// DriverMetadata describes a connector implementation for catalog queries.
type DriverMetadata struct {
	Comment      string
	Transactions string
	XA           string
}

// Factory creates connector instances of one type.
type Factory interface {
	// GetType returns the connector type this factory produces.
	GetType() ConnectorType

	// GetMetadata returns the driver metadata.
	GetMetadata() DriverMetadata

	// Create builds an unstarted connector from binding options.
	Create(options map[string]interface{}) (Connector, error)
}

// Registry maps connector types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[ConnectorType]Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[ConnectorType]Factory)}
}

// Register adds a factory. Registering the same type twice is an error.
func (r *Registry) Register(f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[f.GetType()]; exists {
		return fmt.Errorf("connector type already registered: %s", f.GetType())
	}
	r.factories[f.GetType()] = f
	return nil
}

// Get returns the factory for a connector type.
func (r *Registry) Get(t ConnectorType) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("connector type not registered: %s", t)
	}
	return f, nil
}

// Types returns the registered connector types.
func (r *Registry) Types() []ConnectorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ConnectorType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide factory registry that connector
// packages register into at init time.
func DefaultRegistry() *Registry { return defaultRegistry }
