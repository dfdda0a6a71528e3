// Package manager owns the lifecycle of every outstanding atomic request
// against one connector binding: worker-pool dispatch, cancellation,
// timeout-driven resumption, capability resolution, and XA registration.
// Each binding gets its own manager instance; there is no process-wide
// state beyond the connector factory registry.
package manager

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kasuganosora/fedsql/pkg/config"
	"github.com/kasuganosora/fedsql/pkg/connector/adapter"
	"github.com/kasuganosora/fedsql/pkg/connector/caps"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/connector/pooling"
	"github.com/kasuganosora/fedsql/pkg/tracking"
	"github.com/kasuganosora/fedsql/pkg/transaction"
	"github.com/kasuganosora/fedsql/pkg/workerpool"
)

type lifecycleState int

const (
	lifecycleCreated lifecycleState = iota
	lifecycleStarted
	lifecycleStopped
)

// Options are the collaborators a manager is wired with. All fields are
// optional.
type Options struct {
	// Registry resolves the binding's connector type. Defaults to the
	// process registry connector packages register into.
	Registry *domain.Registry

	// Connector overrides the registry lookup with a pre-built instance.
	Connector domain.Connector

	// Transactions receives the XA recovery-source registration when the
	// binding supports it. Nil disables XA recovery registration.
	Transactions *transaction.Service

	// Tracker receives command begin/end events. Nil disables tracking.
	Tracker tracking.CommandLogger

	Logger *log.Logger
}

// ConnectorManager is the facade the query engine talks to for one
// connector binding.
type ConnectorManager struct {
	cfg  config.BindingConfig
	opts Options

	logger    *log.Logger
	capsCache *caps.Cache

	mu           sync.Mutex
	state        lifecycleState
	adapter      *adapter.Adapter
	pooled       *pooling.PooledConnector
	pool         *workerpool.Pool
	scheduler    *deferredScheduler
	xaRegistered bool

	reqMu    sync.Mutex
	requests map[domain.AtomicRequestID]workItem
}

// New creates an unstarted manager for one binding.
func New(cfg config.BindingConfig, opts Options) *ConnectorManager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &ConnectorManager{
		cfg:       cfg,
		opts:      opts,
		logger:    logger,
		capsCache: caps.NewCache(),
		requests:  make(map[domain.AtomicRequestID]workItem),
	}
}

// ConnectorID returns the binding name.
func (m *ConnectorManager) ConnectorID() string { return m.cfg.Name }

// Start performs one-time initialization: resolves and instantiates the
// connector, decides pooling, wraps the chain in the adapter, starts the
// connector, and registers the XA recovery source. Starting twice, or
// after Stop, is an error.
func (m *ConnectorManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case lifecycleStarted:
		return &ErrLifecycle{Binding: m.cfg.Name, Reason: "already started"}
	case lifecycleStopped:
		return &ErrLifecycle{Binding: m.cfg.Name, Reason: "already stopped"}
	}

	if err := m.cfg.Validate(); err != nil {
		return err
	}

	connector := m.opts.Connector
	if connector == nil {
		registry := m.opts.Registry
		if registry == nil {
			registry = domain.DefaultRegistry()
		}
		factory, err := registry.Get(domain.ConnectorType(m.cfg.Type))
		if err != nil {
			return err
		}
		connector, err = factory.Create(m.cfg.Options)
		if err != nil {
			return err
		}
	}

	supportsXA := domain.HasXASupport(connector)

	pooled := pooling.Decide(m.cfg.ConnectionPooling, connector)
	if pooled && !m.cfg.SynchronousWorkers {
		// Cooperative items can hold pooled connections across suspension
		// points, shrinking effective pool concurrency.
		m.logger.Printf("[%s] connection pooling enabled with asynchronous workers; pooled connections may be held across suspensions", m.cfg.Name)
	}

	chain := connector
	if pooled {
		m.pooled = pooling.NewPooledConnector(connector, pooling.Config{
			MaxIdlePerIdentity: m.cfg.PoolMaxIdle,
			Lifetime:           m.cfg.PoolConnLifetime,
			IdleTimeout:        m.cfg.PoolConnIdleTimeout,
		})
		chain = m.pooled
	}
	m.adapter = adapter.New(chain, m.cfg.Type)

	pool, err := workerpool.New(workerpool.Config{
		Size:        m.cfg.MaxWorkerThreads,
		QueueSize:   m.cfg.WorkerQueueSize,
		IdleTimeout: m.cfg.WorkerIdleTimeout,
	})
	if err != nil {
		return err
	}
	m.pool = pool

	env := &domain.Environment{
		BindingName: m.cfg.Name,
		Options:     m.cfg.Options,
		Logger:      m.logger,
	}
	if err := m.adapter.Start(env); err != nil {
		m.pool.Close()
		m.pool = nil
		return err
	}

	if supportsXA && m.opts.Transactions != nil && m.adapter.SupportsSingleIdentity() {
		provider := &recoveryProvider{adapter: m.adapter}
		if err := m.opts.Transactions.RegisterRecoverySource(m.cfg.Name, provider); err != nil {
			m.adapter.Stop()
			m.pool.Close()
			m.pool = nil
			return err
		}
		m.xaRegistered = true
	}

	m.state = lifecycleStarted
	m.logger.Printf("[%s] connector started (type=%s, workers=%d, synchronous=%t, pooled=%t, xa=%t)",
		m.cfg.Name, m.cfg.Type, m.cfg.MaxWorkerThreads, m.cfg.SynchronousWorkers, pooled, supportsXA)
	return nil
}

// ExecuteRequest registers a work item for the message and enqueues it on
// the worker pool. It does not block on execution. Submitting an ID that is
// already registered is a protocol violation and fails without touching the
// existing request.
func (m *ConnectorManager) ExecuteRequest(receiver domain.ResultsReceiver, msg *domain.AtomicRequestMessage) error {
	m.mu.Lock()
	if m.state != lifecycleStarted {
		m.mu.Unlock()
		return &ErrBindingShutdown{Binding: m.cfg.Name}
	}
	m.mu.Unlock()

	var item workItem
	if m.cfg.SynchronousWorkers {
		item = newSyncItem(m, msg, receiver)
	} else {
		item = newAsyncItem(m, msg, receiver)
	}

	m.reqMu.Lock()
	if _, exists := m.requests[msg.ID]; exists {
		m.reqMu.Unlock()
		return &ErrStateAlreadyExists{ID: msg.ID}
	}
	m.requests[msg.ID] = item
	m.reqMu.Unlock()

	msg.MarkProcessingStart(time.Now())
	if m.opts.Tracker != nil {
		m.opts.Tracker.CommandStarted(msg.ID, msg.ModelName, msg.Command)
	}

	if async, ok := item.(*asyncItem); ok {
		async.enqueue()
		return nil
	}
	if err := m.enqueueItem(item); err != nil {
		item.shutdown(&ErrBindingShutdown{Binding: m.cfg.Name})
		return err
	}
	return nil
}

// RequestMore pulls the next batch for a request. An unknown ID means the
// request already completed; the call is a no-op.
func (m *ConnectorManager) RequestMore(id domain.AtomicRequestID) {
	if item, ok := m.lookup(id); ok {
		item.requestMore()
	}
}

// CancelRequest cooperatively cancels a request. Unknown IDs are no-ops.
func (m *ConnectorManager) CancelRequest(id domain.AtomicRequestID) {
	if item, ok := m.lookup(id); ok {
		item.requestCancel()
	}
}

// CloseRequest releases a request the consumer is done with. Unknown IDs
// are no-ops.
func (m *ConnectorManager) CloseRequest(id domain.AtomicRequestID) {
	if item, ok := m.lookup(id); ok {
		item.requestClose()
	}
}

// GetCapabilities resolves the binding's capabilities for planning.
// Connector-level capabilities are shared across users (global scope);
// connectors without them are queried over a throwaway connection and the
// snapshot is scoped to the requesting user. Both paths pass through the
// deployment-property overlay and are cached.
func (m *ConnectorManager) GetCapabilities(ctx context.Context, workCtx *domain.WorkContext) (domain.Capabilities, error) {
	m.mu.Lock()
	if m.state != lifecycleStarted {
		m.mu.Unlock()
		return nil, &ErrBindingShutdown{Binding: m.cfg.Name}
	}
	a := m.adapter
	m.mu.Unlock()

	base, err := a.GetCapabilities()
	if err != nil {
		return nil, err
	}
	if base != nil {
		if cached, ok := m.capsCache.Get(caps.ScopeGlobal, ""); ok {
			return cached, nil
		}
		view := caps.NewOverlay(base, m.cfg.CapabilityOverrides)
		m.capsCache.Put(caps.ScopeGlobal, "", view)
		return view, nil
	}

	user := ""
	if workCtx != nil {
		user = workCtx.User
	}
	if cached, ok := m.capsCache.Get(caps.ScopeUser, user); ok {
		return cached, nil
	}
	conn, err := a.GetConnection(ctx, workCtx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	base, err = conn.GetCapabilities()
	if err != nil {
		return nil, err
	}
	view := caps.NewOverlay(base, m.cfg.CapabilityOverrides)
	m.capsCache.Put(caps.ScopeUser, user, view)
	return view, nil
}

// GetStatus reports binding liveness. Bindings without a single stable
// identity report unknown; their liveness cannot be probed without a real
// user identity.
func (m *ConnectorManager) GetStatus(ctx context.Context) domain.ConnectorStatus {
	m.mu.Lock()
	if m.state != lifecycleStarted {
		m.mu.Unlock()
		return domain.StatusClosed
	}
	a := m.adapter
	m.mu.Unlock()

	return a.Status(ctx)
}

// QueueStatistics reports the worker pool's pending and active work.
func (m *ConnectorManager) QueueStatistics() (pending, active int) {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()

	if pool == nil {
		return 0, 0
	}
	stats := pool.Stats()
	return stats.Pending, stats.Active
}

// RegisteredRequests returns the number of live requests.
func (m *ConnectorManager) RegisteredRequests() int {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	return len(m.requests)
}

// Stop shuts the binding down: the worker pool is closed (queued work is
// abandoned), every still-registered request receives the shutdown error,
// the XA recovery source is deregistered, pending resumptions are
// cancelled, and the connector is stopped. Idempotent; Start afterwards is
// an error.
func (m *ConnectorManager) Stop() {
	m.mu.Lock()
	if m.state != lifecycleStarted {
		m.state = lifecycleStopped
		m.mu.Unlock()
		return
	}
	m.state = lifecycleStopped
	pool := m.pool
	scheduler := m.scheduler
	a := m.adapter
	xaRegistered := m.xaRegistered
	m.mu.Unlock()

	if pool != nil {
		pool.Close()
	}
	if scheduler != nil {
		scheduler.stop()
	}

	// Drain the registry. Receivers may already be gone; delivery failures
	// are swallowed by the item.
	m.reqMu.Lock()
	items := make([]workItem, 0, len(m.requests))
	for _, item := range m.requests {
		items = append(items, item)
	}
	m.reqMu.Unlock()
	for _, item := range items {
		item.shutdown(&ErrBindingShutdown{Binding: m.cfg.Name})
	}

	if xaRegistered && m.opts.Transactions != nil {
		m.opts.Transactions.RemoveRecoverySource(m.cfg.Name)
	}
	if a != nil {
		a.Stop()
	}
	m.logger.Printf("[%s] connector stopped", m.cfg.Name)
}

// ==================== internal plumbing ====================

func (m *ConnectorManager) lookup(id domain.AtomicRequestID) (workItem, bool) {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	item, ok := m.requests[id]
	return item, ok
}

// enqueueItem hands a work item to the worker pool.
func (m *ConnectorManager) enqueueItem(item workItem) error {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()

	if pool == nil {
		return workerpool.ErrPoolClosed
	}
	return pool.Submit(item.process)
}

// openConnection acquires a connection through the adapter chain.
func (m *ConnectorManager) openConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	m.mu.Lock()
	a := m.adapter
	m.mu.Unlock()

	if a == nil {
		return nil, &ErrBindingShutdown{Binding: m.cfg.Name}
	}
	return a.GetConnection(ctx, workCtx)
}

// scheduleResume parks an item on the deferred-task scheduler. The
// scheduler is created lazily on first use.
func (m *ConnectorManager) scheduleResume(item *asyncItem, delay time.Duration) {
	m.mu.Lock()
	if m.state != lifecycleStarted {
		m.mu.Unlock()
		item.shutdown(&ErrBindingShutdown{Binding: m.cfg.Name})
		return
	}
	if m.scheduler == nil {
		m.scheduler = newDeferredScheduler()
	}
	s := m.scheduler
	m.mu.Unlock()

	s.schedule(item.id(), delay, item.resume)
}

func (m *ConnectorManager) cancelResume(item *asyncItem) {
	m.mu.Lock()
	s := m.scheduler
	m.mu.Unlock()

	if s != nil {
		s.cancel(item.id())
	}
}

// itemFinished deregisters a terminal item and reports its outcome.
// Removal is idempotent: the shutdown drain and the item's own finish can
// both reach here.
func (m *ConnectorManager) itemFinished(req *domain.AtomicRequestMessage, rowCount int, cause error) {
	m.reqMu.Lock()
	_, registered := m.requests[req.ID]
	delete(m.requests, req.ID)
	m.reqMu.Unlock()

	m.mu.Lock()
	s := m.scheduler
	m.mu.Unlock()
	if s != nil {
		s.cancel(req.ID)
	}

	if registered && m.opts.Tracker != nil {
		m.opts.Tracker.CommandFinished(req.ID, rowCount, time.Since(req.ProcessingStart()), cause)
	}
}

// recoveryProvider hands the transaction service a lazily opened XA
// resource for crash recovery, under the binding's system identity.
type recoveryProvider struct {
	adapter *adapter.Adapter

	mu   sync.Mutex
	conn domain.XAConnection
}

func (p *recoveryProvider) GetXAResource() (domain.XAResource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || !p.conn.IsAlive() {
		if p.conn != nil {
			p.conn.Close()
		}
		conn, err := p.adapter.GetXAConnection(context.Background(), nil)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	return p.conn.XAResource(), nil
}

func (p *recoveryProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
