package mysql

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kasuganosora/fedsql/connectors/sqlcommon"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Dialect implements MySQL-specific behavior, including XA.
type Dialect struct{}

func (Dialect) DriverName() string { return "mysql" }

func (Dialect) BuildDSN(cfg *sqlcommon.Config) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("mysql: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	parseTime := cfg.ParseTime != nil && *cfg.ParseTime
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&timeout=%ds",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database,
		cfg.Charset, parseTime, cfg.ConnectTimeout), nil
}

func (Dialect) Capabilities() domain.Capabilities { return capabilities{} }

// RecoverQuery lists prepared XA branches.
func (Dialect) RecoverQuery() string { return "XA RECOVER" }

func (Dialect) CommitStatement(xid domain.Xid, onePhase bool) string {
	stmt := fmt.Sprintf("XA COMMIT X'%X',X'%X',%d", xid.GlobalID, xid.BranchID, xid.FormatID)
	if onePhase {
		stmt += " ONE PHASE"
	}
	return stmt
}

func (Dialect) RollbackStatement(xid domain.Xid) string {
	return fmt.Sprintf("XA ROLLBACK X'%X',X'%X',%d", xid.GlobalID, xid.BranchID, xid.FormatID)
}

type capabilities struct {
	domain.BaseCapabilities
}

func (capabilities) SupportsSelectDistinct() bool { return true }
func (capabilities) SupportsOuterJoins() bool     { return true }
func (capabilities) SupportsOrderBy() bool        { return true }
func (capabilities) SupportsAggregates() bool     { return true }
func (capabilities) SupportsInCriteria() bool     { return true }
func (capabilities) SupportsLikeCriteria() bool   { return true }
func (capabilities) SupportsRowLimit() bool       { return true }
func (capabilities) SupportsRowOffset() bool      { return true }
func (capabilities) SupportsBatchedUpdates() bool { return true }
func (capabilities) SupportsXATransactions() bool { return true }
func (capabilities) MaxInCriteriaSize() int       { return 1000 }

func (capabilities) SupportsFunction(name string) bool {
	switch name {
	case "concat", "substring", "upper", "lower", "length", "abs", "round":
		return true
	}
	return false
}
