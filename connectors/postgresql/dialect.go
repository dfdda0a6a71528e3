package postgresql

import (
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kasuganosora/fedsql/connectors/sqlcommon"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Dialect implements PostgreSQL-specific behavior.
type Dialect struct{}

func (Dialect) DriverName() string { return "postgres" }

func (Dialect) BuildDSN(cfg *sqlcommon.Config) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("postgresql: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.ConnectTimeout), nil
}

func (Dialect) Capabilities() domain.Capabilities { return capabilities{} }

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
func (capabilities) MaxInCriteriaSize() int       { return 10000 }

func (capabilities) SupportsFunction(name string) bool {
	switch name {
	case "concat", "substring", "upper", "lower", "length", "abs", "round", "coalesce":
		return true
	}
	return false
}
