package mysql

import (
	"github.com/kasuganosora/fedsql/connectors/sqlcommon"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Factory creates MySQL connector instances.
type Factory struct{}

// NewFactory creates a new Factory.
func NewFactory() *Factory { return &Factory{} }

// GetType returns the connector type.
func (f *Factory) GetType() domain.ConnectorType { return "mysql" }

// GetMetadata returns the driver metadata.
func (f *Factory) GetMetadata() domain.DriverMetadata {
	return domain.DriverMetadata{
		Comment:      "MySQL over database/sql with XA support",
		Transactions: "YES",
		XA:           "YES",
	}
}

// Create builds a MySQL connector from binding options.
func (f *Factory) Create(options map[string]interface{}) (domain.Connector, error) {
	cfg, err := sqlcommon.ParseConfig(options)
	if err != nil {
		return nil, err
	}
	return sqlcommon.NewConnector(Dialect{}, cfg), nil
}
