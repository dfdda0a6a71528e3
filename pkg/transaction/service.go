// Package transaction holds the XA recovery-source registry the connector
// managers enlist with. The two-phase-commit protocol itself is driven by
// an external transaction manager; this service only keeps track of which
// bindings can hand it an XA resource during recovery.
package transaction

import (
	"fmt"
	"sync"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// RecoveryProvider lazily opens an XA resource for crash recovery.
type RecoveryProvider interface {
	// GetXAResource opens (or reuses) the provider's XA resource.
	GetXAResource() (domain.XAResource, error)

	// Close releases any connection the provider is holding.
	Close()
}

// Service is the in-process recovery-source registry.
type Service struct {
	mu      sync.Mutex
	sources map[string]RecoveryProvider
}

// NewService creates an empty recovery registry.
func NewService() *Service {
	return &Service{sources: make(map[string]RecoveryProvider)}
}

// RegisterRecoverySource enlists a binding as recoverable.
func (s *Service) RegisterRecoverySource(name string, p RecoveryProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[name]; exists {
		return fmt.Errorf("recovery source already registered: %s", name)
	}
	s.sources[name] = p
	return nil
}

// RemoveRecoverySource delists a binding and closes its provider. Removing
// an unknown name is a no-op.
func (s *Service) RemoveRecoverySource(name string) {
	s.mu.Lock()
	p, ok := s.sources[name]
	delete(s.sources, name)
	s.mu.Unlock()

	if ok {
		p.Close()
	}
}

// Sources returns the names of the registered recovery sources.
func (s *Service) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.sources))
	for name := range s.sources {
		out = append(out, name)
	}
	return out
}

// Recover returns the in-doubt transaction branches of one source.
func (s *Service) Recover(name string) ([]domain.Xid, error) {
	s.mu.Lock()
	p, ok := s.sources[name]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("recovery source not registered: %s", name)
	}
	res, err := p.GetXAResource()
	if err != nil {
		return nil, err
	}
	return res.Recover()
}
