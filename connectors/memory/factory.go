package memory

import "github.com/kasuganosora/fedsql/pkg/connector/domain"

// Factory creates memory connector instances.
type Factory struct{}

// NewFactory creates a new Factory.
func NewFactory() *Factory { return &Factory{} }

// GetType returns the connector type.
func (f *Factory) GetType() domain.ConnectorType { return "memory" }

// GetMetadata returns the driver metadata.
func (f *Factory) GetMetadata() domain.DriverMetadata {
	return domain.DriverMetadata{
		Comment:      "In-memory tables, whole-table scans",
		Transactions: "NO",
		XA:           "NO",
	}
}

// Create builds an empty memory connector; tables are loaded through the
// connector API.
func (f *Factory) Create(options map[string]interface{}) (domain.Connector, error) {
	return NewConnector(), nil
}
