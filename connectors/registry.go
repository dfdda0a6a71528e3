// Package connectors registers every built-in connector factory with the
// default registry. Importing it (usually for side effects) makes the
// factories resolvable by binding type.
package connectors

import (
	"github.com/kasuganosora/fedsql/connectors/badgerkv"
	"github.com/kasuganosora/fedsql/connectors/excel"
	"github.com/kasuganosora/fedsql/connectors/memory"
	"github.com/kasuganosora/fedsql/connectors/mysql"
	"github.com/kasuganosora/fedsql/connectors/postgresql"
	"github.com/kasuganosora/fedsql/connectors/sqlite"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

func init() {
	registry := domain.DefaultRegistry()

	// Base connectors
	registry.Register(memory.NewFactory())

	// SQL connectors
	registry.Register(mysql.NewFactory())
	registry.Register(postgresql.NewFactory())
	registry.Register(sqlite.NewFactory())

	// Storage and file connectors
	registry.Register(badgerkv.NewFactory())
	registry.Register(excel.NewFactory())
}
