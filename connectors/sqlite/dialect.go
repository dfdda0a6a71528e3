package sqlite

import (
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kasuganosora/fedsql/connectors/sqlcommon"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Dialect implements SQLite-specific behavior. The database is a local
// file (or ":memory:"), so every identity shares it.
type Dialect struct{}

func (Dialect) DriverName() string { return "sqlite" }

func (Dialect) BuildDSN(cfg *sqlcommon.Config) (string, error) {
	if cfg.File == "" {
		return "", fmt.Errorf("sqlite: file is required")
	}
	return cfg.File, nil
}

func (Dialect) Capabilities() domain.Capabilities { return capabilities{} }

type capabilities struct {
	domain.BaseCapabilities
}

func (capabilities) SupportsSelectDistinct() bool { return true }
func (capabilities) SupportsOrderBy() bool        { return true }
func (capabilities) SupportsAggregates() bool     { return true }
func (capabilities) SupportsInCriteria() bool     { return true }
func (capabilities) SupportsLikeCriteria() bool   { return true }
func (capabilities) SupportsRowLimit() bool       { return true }
func (capabilities) SupportsRowOffset() bool      { return true }

func (capabilities) SupportsFunction(name string) bool {
	switch name {
	case "upper", "lower", "length", "abs", "round":
		return true
	}
	return false
}
