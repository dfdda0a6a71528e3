package domain

import "context"

// Capabilities describes what a connector can execute natively. The planner
// pushes down only what the connector claims to support; everything else is
// computed by the engine.
type Capabilities interface {
	SupportsSelectDistinct() bool
	SupportsOuterJoins() bool
	SupportsOrderBy() bool
	SupportsAggregates() bool
	SupportsInCriteria() bool
	SupportsLikeCriteria() bool
	SupportsRowLimit() bool
	SupportsRowOffset() bool
	SupportsBatchedUpdates() bool
	SupportsXATransactions() bool
	MaxInCriteriaSize() int
	MaxFromGroups() int

	// SupportsFunction reports pushdown support for a scalar function.
	SupportsFunction(name string) bool
}

// BaseCapabilities is an all-defaults Capabilities implementation that
// connectors embed and selectively override.
type BaseCapabilities struct{}

func (BaseCapabilities) SupportsSelectDistinct() bool { return false }
func (BaseCapabilities) SupportsOuterJoins() bool     { return false }
func (BaseCapabilities) SupportsOrderBy() bool        { return false }
func (BaseCapabilities) SupportsAggregates() bool     { return false }
func (BaseCapabilities) SupportsInCriteria() bool     { return false }
func (BaseCapabilities) SupportsLikeCriteria() bool   { return false }
func (BaseCapabilities) SupportsRowLimit() bool       { return false }
func (BaseCapabilities) SupportsRowOffset() bool      { return false }
func (BaseCapabilities) SupportsBatchedUpdates() bool { return false }
func (BaseCapabilities) SupportsXATransactions() bool { return false }
func (BaseCapabilities) MaxInCriteriaSize() int       { return -1 }
func (BaseCapabilities) MaxFromGroups() int           { return -1 }
func (BaseCapabilities) SupportsFunction(string) bool { return false }

// ==================== Connector extension interfaces ====================

// IsXACapable marks a connector that can hand out XA connections for
// distributed transaction participation.
type IsXACapable interface {
	// SupportsXA reports whether XA is enabled for this binding.
	SupportsXA() bool

	// GetXAConnection obtains a connection enlisted in XA.
	GetXAConnection(ctx context.Context, workCtx *WorkContext) (XAConnection, error)
}

// XAConnection is a Connection that exposes its XA resource.
type XAConnection interface {
	Connection

	XAResource() XAResource
}

// XAResource is the minimal two-phase-commit surface the transaction
// service drives during recovery.
type XAResource interface {
	Recover() ([]Xid, error)
	Commit(xid Xid, onePhase bool) error
	Rollback(xid Xid) error
}

// Xid is a distributed transaction branch identifier.
type Xid struct {
	FormatID int
	GlobalID []byte
	BranchID []byte
}

// IsPoolable marks a connector that declares a pooling preference.
// Absent this interface, the deployment property alone decides.
type IsPoolable interface {
	// SupportsPooling reports whether the connector wants its physical
	// connections pooled per identity.
	SupportsPooling() bool
}

// IsIdentityAware marks a connector that distinguishes the user a
// connection is opened as. Absent this interface, all connections share a
// single identity.
type IsIdentityAware interface {
	// CreateIdentity maps a work context to a connector identity. A nil
	// work context asks for the trusted system identity; connectors that
	// cannot serve one return an error, which also means the binding has
	// no single stable identity.
	CreateIdentity(workCtx *WorkContext) (ConnectorIdentity, error)
}

// ==================== Helpers ====================

// HasXASupport reports whether the connector participates in XA.
func HasXASupport(c Connector) bool {
	if xa, ok := c.(IsXACapable); ok {
		return xa.SupportsXA()
	}
	return false
}

// PoolingPreference returns the connector's declared pooling preference and
// whether it declared one at all.
func PoolingPreference(c Connector) (enabled bool, declared bool) {
	if p, ok := c.(IsPoolable); ok {
		return p.SupportsPooling(), true
	}
	return false, false
}

// CreateIdentity computes the identity for a work context, falling back to
// the shared single identity for connectors that are not identity-aware.
func CreateIdentity(c Connector, workCtx *WorkContext) (ConnectorIdentity, error) {
	if aware, ok := c.(IsIdentityAware); ok {
		return aware.CreateIdentity(workCtx)
	}
	return SingleIdentity{}, nil
}

// HasSingleIdentity reports whether the binding can open connections under
// one stable identity with no user context. Liveness probes and XA recovery
// are only possible when this holds.
func HasSingleIdentity(c Connector) bool {
	id, err := CreateIdentity(c, nil)
	if err != nil {
		return false
	}
	_, ok := id.(SingleIdentity)
	return ok
}
