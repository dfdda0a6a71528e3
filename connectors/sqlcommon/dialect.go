package sqlcommon

import "github.com/kasuganosora/fedsql/pkg/connector/domain"

// Dialect encapsulates database-engine-specific behavior.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// BuildDSN constructs the driver-specific connection string.
	BuildDSN(cfg *Config) (string, error)

	// Capabilities returns the engine's static pushdown capabilities.
	Capabilities() domain.Capabilities
}

// XADialect is implemented by dialects whose engine speaks XA. The
// statements drive recovery through plain SQL.
type XADialect interface {
	Dialect

	// RecoverQuery lists in-doubt transaction branches. Columns:
	// formatID, gtrid length, bqual length, concatenated data.
	RecoverQuery() string

	// CommitStatement commits a prepared branch.
	CommitStatement(xid domain.Xid, onePhase bool) string

	// RollbackStatement rolls a prepared branch back.
	RollbackStatement(xid domain.Xid) string
}
