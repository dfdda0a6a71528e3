package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/types"
)

// fakeConnector is a scriptable connector for manager tests.
type fakeConnector struct {
	mu sync.Mutex

	rows      []types.Row
	batchSize int

	// yieldBeforeBatch makes every NextBatch report data-not-available
	// once before producing, exercising the cooperative path.
	yieldBeforeBatch bool
	yieldDelay       time.Duration

	// blockOnFetch makes NextBatch block until the context is cancelled.
	blockOnFetch bool

	// failOnFetch makes NextBatch return failErr.
	failOnFetch bool
	failErr     error

	// perConnCaps answers capabilities per connection instead of
	// statically.
	perConnCaps bool

	// perUser makes the connector identity-aware.
	perUser bool

	started     atomic.Bool
	stopped     atomic.Bool
	connections atomic.Int32
	closes      atomic.Int32
	cancels     atomic.Int32
}

func (c *fakeConnector) Start(env *domain.Environment) error {
	c.started.Store(true)
	return nil
}

func (c *fakeConnector) Stop() {
	c.stopped.Store(true)
}

func (c *fakeConnector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	c.connections.Add(1)
	return &fakeConnection{connector: c}, nil
}

func (c *fakeConnector) GetCapabilities() (domain.Capabilities, error) {
	if c.perConnCaps {
		return nil, nil
	}
	return fakeCaps{}, nil
}

type fakeCaps struct {
	domain.BaseCapabilities
}

func (fakeCaps) SupportsOrderBy() bool { return true }

// fakeIdentityConnector layers per-user identities over fakeConnector.
type fakeIdentityConnector struct {
	*fakeConnector
}

func (c *fakeIdentityConnector) CreateIdentity(workCtx *domain.WorkContext) (domain.ConnectorIdentity, error) {
	if workCtx == nil {
		return nil, &domain.ErrUnsupportedOperation{ConnectorType: "fake", Operation: "system identity"}
	}
	return domain.UserIdentity{Username: workCtx.User}, nil
}

// fakeXAConnector adds XA support to fakeConnector.
type fakeXAConnector struct {
	*fakeConnector

	xaConnections atomic.Int32
}

func (c *fakeXAConnector) SupportsXA() bool { return true }

func (c *fakeXAConnector) GetXAConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.XAConnection, error) {
	c.xaConnections.Add(1)
	return &fakeXAConnection{fakeConnection: fakeConnection{connector: c.fakeConnector}}, nil
}

type fakeConnection struct {
	connector *fakeConnector
	closed    atomic.Bool
}

func (cn *fakeConnection) CreateExecution(ctx context.Context, req *domain.AtomicRequestMessage) (domain.Execution, error) {
	return &fakeExecution{connector: cn.connector, req: req}, nil
}

func (cn *fakeConnection) GetCapabilities() (domain.Capabilities, error) {
	return fakeCaps{}, nil
}

func (cn *fakeConnection) IsAlive() bool { return !cn.closed.Load() }

func (cn *fakeConnection) Close() {
	if !cn.closed.Swap(true) {
		cn.connector.closes.Add(1)
	}
}

type fakeXAConnection struct {
	fakeConnection
}

func (cn *fakeXAConnection) XAResource() domain.XAResource { return fakeXAResource{} }

type fakeXAResource struct{}

func (fakeXAResource) Recover() ([]domain.Xid, error)             { return nil, nil }
func (fakeXAResource) Commit(xid domain.Xid, onePhase bool) error { return nil }
func (fakeXAResource) Rollback(xid domain.Xid) error              { return nil }

type fakeExecution struct {
	connector *fakeConnector
	req       *domain.AtomicRequestMessage

	offset  int
	yielded bool
}

func (e *fakeExecution) Execute(ctx context.Context) error { return nil }

func (e *fakeExecution) NextBatch(ctx context.Context) (*domain.AtomicResultsMessage, error) {
	c := e.connector

	if c.blockOnFetch {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.failOnFetch {
		return nil, c.failErr
	}
	if c.yieldBeforeBatch && !e.yielded {
		e.yielded = true
		delay := c.yieldDelay
		if delay <= 0 {
			delay = time.Millisecond
		}
		return nil, &domain.DataNotAvailableError{RetryDelay: delay}
	}
	e.yielded = false

	size := c.batchSize
	if size <= 0 {
		size = 2
	}
	end := e.offset + size
	if end > len(c.rows) {
		end = len(c.rows)
	}
	batch := &domain.AtomicResultsMessage{
		Columns: []types.ColumnInfo{{Name: "v", Type: "INT"}},
		Rows:    c.rows[e.offset:end],
		Final:   end == len(c.rows),
	}
	e.offset = end
	return batch, nil
}

func (e *fakeExecution) Cancel() error {
	e.connector.cancels.Add(1)
	return nil
}

func (e *fakeExecution) Close() {}

// collectingReceiver records everything delivered for one request.
type collectingReceiver struct {
	mu        sync.Mutex
	batches   []*domain.AtomicResultsMessage
	err       error
	finals    int
	errors    int
	terminal  chan struct{}
	closeOnce sync.Once

	// autoMore pulls the next batch as soon as one arrives, the way a
	// consuming engine does.
	autoMore func(id domain.AtomicRequestID)
	id       domain.AtomicRequestID
}

func newCollectingReceiver() *collectingReceiver {
	return &collectingReceiver{terminal: make(chan struct{})}
}

func (r *collectingReceiver) DeliverResults(msg *domain.AtomicResultsMessage) {
	r.mu.Lock()
	r.batches = append(r.batches, msg)
	final := msg.Final
	if final {
		r.finals++
	}
	auto := r.autoMore
	r.mu.Unlock()

	if final {
		r.closeOnce.Do(func() { close(r.terminal) })
		return
	}
	if auto != nil {
		auto(r.id)
	}
}

func (r *collectingReceiver) ExceptionOccurred(err error) {
	r.mu.Lock()
	r.err = err
	r.errors++
	r.mu.Unlock()
	r.closeOnce.Do(func() { close(r.terminal) })
}

func (r *collectingReceiver) wait(t interface{ Fatalf(string, ...interface{}) }) {
	select {
	case <-r.terminal:
	case <-time.After(5 * time.Second):
		t.Fatalf("request did not reach a terminal state")
	}
}

func (r *collectingReceiver) rowValues() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []interface{}
	for _, b := range r.batches {
		for _, row := range b.Rows {
			out = append(out, row[0])
		}
	}
	return out
}

func (r *collectingReceiver) terminalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finals + r.errors
}

func intRows(n int) []types.Row {
	rows := make([]types.Row, n)
	for i := range rows {
		rows[i] = types.Row{i}
	}
	return rows
}
