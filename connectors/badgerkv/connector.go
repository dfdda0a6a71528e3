// Package badgerkv is a read-only connector over a Badger key-value store.
// The resolved command is a key prefix; each result row is a (key, value)
// pair.
package badgerkv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/types"
)

const defaultBatchSize = 1024

// Options configure the Badger store.
type Options struct {
	DataDir  string `json:"data_dir,omitempty"`
	InMemory bool   `json:"in_memory,omitempty"`
}

// Connector serves prefix scans over one Badger database.
type Connector struct {
	opts Options

	mu      sync.RWMutex
	db      *badger.DB
	started bool
}

// NewConnector creates an unstarted Badger connector.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

func (c *Connector) Start(env *domain.Environment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var bopts badger.Options
	if c.opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if c.opts.DataDir == "" {
			return fmt.Errorf("badgerkv: data_dir is required")
		}
		bopts = badger.DefaultOptions(c.opts.DataDir)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return &domain.ErrConnectionFailed{ConnectorType: "badger", Reason: err.Error()}
	}
	c.db = db
	c.started = true
	return nil
}

func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

// DB exposes the underlying store for loading data in tests and demos.
func (c *Connector) DB() *badger.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Connector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started {
		return nil, &domain.ErrConnectionFailed{ConnectorType: "badger", Reason: "connector not started"}
	}
	return &connection{db: c.db}, nil
}

func (c *Connector) GetCapabilities() (domain.Capabilities, error) {
	return capabilities{}, nil
}

type capabilities struct {
	domain.BaseCapabilities
}

// Prefix scans come back in key order.
func (capabilities) SupportsOrderBy() bool  { return true }
func (capabilities) SupportsRowLimit() bool { return true }

type connection struct {
	db *badger.DB

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
	return !cn.closed && !cn.db.IsClosed()
}

func (cn *connection) Close() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	cn.closed = true
}

var kvColumns = []types.ColumnInfo{
	{Name: "key", Type: "TEXT"},
	{Name: "value", Type: "TEXT"},
}

type execution struct {
	connection *connection
	req        *domain.AtomicRequestMessage

	txn  *badger.Txn
	it   *badger.Iterator
	done bool
}

func (e *execution) Execute(ctx context.Context) error {
	e.txn = e.connection.db.NewTransaction(false)
	iopts := badger.DefaultIteratorOptions
	iopts.Prefix = []byte(e.req.Command)
	e.it = e.txn.NewIterator(iopts)
	e.it.Rewind()
	return nil
}

func (e *execution) NextBatch(ctx context.Context) (*domain.AtomicResultsMessage, error) {
	size := e.req.FetchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	batch := &domain.AtomicResultsMessage{Columns: kvColumns}
	for len(batch.Rows) < size {
		if e.done || !e.it.Valid() {
			batch.Final = true
			e.done = true
			break
		}
		item := e.it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		batch.Rows = append(batch.Rows, types.Row{string(item.KeyCopy(nil)), string(val)})
		e.it.Next()
	}
	return batch, nil
}

func (e *execution) Cancel() error {
	return nil
}

func (e *execution) Close() {
	if e.it != nil {
		e.it.Close()
		e.it = nil
	}
	if e.txn != nil {
		e.txn.Discard()
		e.txn = nil
	}
}

// Factory creates Badger connector instances.
type Factory struct{}

// NewFactory creates a new Factory.
func NewFactory() *Factory { return &Factory{} }

// GetType returns the connector type.
func (f *Factory) GetType() domain.ConnectorType { return "badger" }

// GetMetadata returns the driver metadata.
func (f *Factory) GetMetadata() domain.DriverMetadata {
	return domain.DriverMetadata{
		Comment:      "Badger key-value store, prefix scans",
		Transactions: "NO",
		XA:           "NO",
	}
}

// Create builds a Badger connector from binding options.
func (f *Factory) Create(options map[string]interface{}) (domain.Connector, error) {
	opts := Options{}
	if options != nil {
		data, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		if err := json.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("parse badgerkv options: %w", err)
		}
	}
	return NewConnector(opts), nil
}
