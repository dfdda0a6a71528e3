// Package adapter wraps an arbitrary connector implementation behind one
// uniform surface that always answers XA, identity, and liveness questions,
// synthesizing safe defaults for connectors that do not customize them.
package adapter

import (
	"context"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Adapter normalizes a connector. Above this layer no caller needs to probe
// for the optional extension interfaces.
type Adapter struct {
	connector     domain.Connector
	connectorType string
}

// New wraps a connector. connectorType names the implementation for error
// messages.
func New(c domain.Connector, connectorType string) *Adapter {
	return &Adapter{connector: c, connectorType: connectorType}
}

// Raw returns the wrapped connector.
func (a *Adapter) Raw() domain.Connector { return a.connector }

// Start starts the wrapped connector.
func (a *Adapter) Start(env *domain.Environment) error {
	return a.connector.Start(env)
}

// Stop stops the wrapped connector.
func (a *Adapter) Stop() {
	a.connector.Stop()
}

// GetConnection obtains a connection, establishing the work context's
// connector identity first. Identity is computed at most once per work
// context; subsequent acquisitions reuse the cached value.
func (a *Adapter) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	if err := a.ensureIdentity(workCtx); err != nil {
		return nil, err
	}
	return a.connector.GetConnection(ctx, workCtx)
}

// GetXAConnection obtains an XA-enlisted connection, or reports the
// operation unsupported for non-XA connectors.
func (a *Adapter) GetXAConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.XAConnection, error) {
	xa, ok := a.connector.(domain.IsXACapable)
	if !ok || !xa.SupportsXA() {
		return nil, &domain.ErrUnsupportedOperation{
			ConnectorType: a.connectorType,
			Operation:     "XA transactions",
		}
	}
	if err := a.ensureIdentity(workCtx); err != nil {
		return nil, err
	}
	return xa.GetXAConnection(ctx, workCtx)
}

// SupportsXA reports whether the wrapped connector participates in XA.
func (a *Adapter) SupportsXA() bool {
	return domain.HasXASupport(a.connector)
}

// SupportsSingleIdentity reports whether the binding can open connections
// without a user context.
func (a *Adapter) SupportsSingleIdentity() bool {
	return domain.HasSingleIdentity(a.connector)
}

// GetCapabilities returns connector-scope capabilities; (nil, nil) means
// per-connection scope.
func (a *Adapter) GetCapabilities() (domain.Capabilities, error) {
	return a.connector.GetCapabilities()
}

// Status probes binding liveness with a throwaway connection. Liveness is
// only observable for single-identity connectors; for all others the answer
// is unknown, since probing would require a real user identity.
func (a *Adapter) Status(ctx context.Context) domain.ConnectorStatus {
	if !a.SupportsSingleIdentity() {
		return domain.StatusUnknown
	}
	conn, err := a.GetConnection(ctx, nil)
	if err != nil {
		return domain.StatusClosed
	}
	defer conn.Close()
	if !conn.IsAlive() {
		return domain.StatusClosed
	}
	return domain.StatusOpen
}

// ensureIdentity computes and caches the connector identity on the work
// context. A nil work context is the trusted system identity and carries no
// cache.
func (a *Adapter) ensureIdentity(workCtx *domain.WorkContext) error {
	if workCtx == nil || workCtx.Identity() != nil {
		return nil
	}
	id, err := domain.CreateIdentity(a.connector, workCtx)
	if err != nil {
		return err
	}
	workCtx.SetIdentity(id)
	return nil
}
