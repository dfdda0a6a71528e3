// Package memory is an in-memory table connector. It serves whole-table
// scans: the resolved command names the table to read. Used by tests and
// the demo binary.
package memory

import (
	"context"
	"sync"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/types"
)

const defaultBatchSize = 1024

type table struct {
	columns []types.ColumnInfo
	rows    []types.Row
}

// Connector holds named in-memory tables.
type Connector struct {
	mu      sync.RWMutex
	tables  map[string]*table
	started bool
}

// NewConnector creates an empty memory connector.
func NewConnector() *Connector {
	return &Connector{tables: make(map[string]*table)}
}

// LoadTable registers or replaces a table.
func (c *Connector) LoadTable(name string, columns []types.ColumnInfo, rows []types.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &table{columns: columns, rows: rows}
}

func (c *Connector) Start(env *domain.Environment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

func (c *Connector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started {
		return nil, &domain.ErrConnectionFailed{ConnectorType: "memory", Reason: "connector not started"}
	}
	return &connection{connector: c}, nil
}

func (c *Connector) GetCapabilities() (domain.Capabilities, error) {
	return capabilities{}, nil
}

type capabilities struct {
	domain.BaseCapabilities
}

func (capabilities) SupportsRowLimit() bool { return true }
func (capabilities) SupportsOrderBy() bool  { return false }

type connection struct {
	connector *Connector
	closed    bool
	mu        sync.Mutex
}

func (cn *connection) CreateExecution(ctx context.Context, req *domain.AtomicRequestMessage) (domain.Execution, error) {
	return &execution{connection: cn, req: req}, nil
}

func (cn *connection) GetCapabilities() (domain.Capabilities, error) {
	return capabilities{}, nil
}

func (cn *connection) IsAlive() bool {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	return !cn.closed
}

func (cn *connection) Close() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	cn.closed = true
}

type execution struct {
	connection *connection
	req        *domain.AtomicRequestMessage

	columns []types.ColumnInfo
	rows    []types.Row
	offset  int
}

// Execute snapshots the table named by the command.
func (e *execution) Execute(ctx context.Context) error {
	c := e.connection.connector
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[e.req.Command]
	if !ok {
		return &domain.ErrConnectionFailed{ConnectorType: "memory", Reason: "table not found: " + e.req.Command}
	}
	e.columns = t.columns
	e.rows = make([]types.Row, len(t.rows))
	copy(e.rows, t.rows)
	return nil
}

func (e *execution) NextBatch(ctx context.Context) (*domain.AtomicResultsMessage, error) {
	size := e.req.FetchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	end := e.offset + size
	if end > len(e.rows) {
		end = len(e.rows)
	}
	batch := &domain.AtomicResultsMessage{
		Columns: e.columns,
		Rows:    e.rows[e.offset:end],
		Final:   end == len(e.rows),
	}
	e.offset = end
	return batch, nil
}

func (e *execution) Cancel() error { return nil }

func (e *execution) Close() {}
