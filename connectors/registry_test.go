package connectors

import (
	"testing"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

func TestAllBuiltinsRegistered(t *testing.T) {
	registry := domain.DefaultRegistry()

	for _, typ := range []domain.ConnectorType{"memory", "mysql", "postgresql", "sqlite", "badger", "excel"} {
		f, err := registry.Get(typ)
		if err != nil {
			t.Errorf("connector type %s not registered: %v", typ, err)
			continue
		}
		if f.GetType() != typ {
			t.Errorf("factory for %s reports type %s", typ, f.GetType())
		}
	}
}

func TestXAMetadataMatchesDialects(t *testing.T) {
	registry := domain.DefaultRegistry()

	mysqlFactory, _ := registry.Get("mysql")
	if mysqlFactory.GetMetadata().XA != "YES" {
		t.Error("mysql metadata should advertise XA")
	}
	pgFactory, _ := registry.Get("postgresql")
	if pgFactory.GetMetadata().XA != "NO" {
		t.Error("postgresql metadata must not advertise XA")
	}
}
