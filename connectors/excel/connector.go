// Package excel is a read-only connector over an Excel workbook. Each
// sheet is a table: the first row carries the column names, every other
// row is data. The resolved command is the sheet name.
package excel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/types"
)

const defaultBatchSize = 1024

// Options configure the workbook connector.
type Options struct {
	File string `json:"file"`
}

// Connector serves sheet scans from one workbook file.
type Connector struct {
	opts Options

	mu      sync.RWMutex
	file    *excelize.File
	started bool
}

// NewConnector creates an unstarted Excel connector.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

func (c *Connector) Start(env *domain.Environment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.File == "" {
		return fmt.Errorf("excel: file is required")
	}
	f, err := excelize.OpenFile(c.opts.File)
	if err != nil {
		return &domain.ErrConnectionFailed{ConnectorType: "excel", Reason: err.Error()}
	}
	c.file = f
	c.started = true
	return nil
}

func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
}

func (c *Connector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started {
		return nil, &domain.ErrConnectionFailed{ConnectorType: "excel", Reason: "connector not started"}
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

type connection struct {
	connector *Connector

	mu     sync.Mutex
	closed bool
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

// Execute reads the sheet named by the command into memory.
func (e *execution) Execute(ctx context.Context) error {
	c := e.connection.connector
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.file == nil {
		return &domain.ErrConnectionFailed{ConnectorType: "excel", Reason: "connector stopped"}
	}
	raw, err := c.file.GetRows(e.req.Command)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	e.columns = make([]types.ColumnInfo, len(raw[0]))
	for i, name := range raw[0] {
		e.columns[i] = types.ColumnInfo{Name: name, Type: "TEXT", Nullable: true}
	}
	e.rows = make([]types.Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(types.Row, len(e.columns))
		for i := range e.columns {
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		e.rows = append(e.rows, row)
	}
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

// Factory creates Excel connector instances.
type Factory struct{}

// NewFactory creates a new Factory.
func NewFactory() *Factory { return &Factory{} }

// GetType returns the connector type.
func (f *Factory) GetType() domain.ConnectorType { return "excel" }

// GetMetadata returns the driver metadata.
func (f *Factory) GetMetadata() domain.DriverMetadata {
	return domain.DriverMetadata{
		Comment:      "Excel workbook sheets as read-only tables",
		Transactions: "NO",
		XA:           "NO",
	}
}

// Create builds an Excel connector from binding options.
func (f *Factory) Create(options map[string]interface{}) (domain.Connector, error) {
	opts := Options{}
	if options != nil {
		data, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		if err := json.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("parse excel options: %w", err)
		}
	}
	return NewConnector(opts), nil
}
