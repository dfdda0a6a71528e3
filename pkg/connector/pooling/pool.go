package pooling

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Config controls the per-identity connection pool.
type Config struct {
	// MaxIdlePerIdentity is how many idle connections are retained per
	// identity key.
	MaxIdlePerIdentity int
	// Lifetime retires a connection regardless of use.
	Lifetime time.Duration
	// IdleTimeout retires a connection idle for too long.
	IdleTimeout time.Duration
}

// DefaultConfig returns the pool defaults.
func DefaultConfig() Config {
	return Config{
		MaxIdlePerIdentity: 5,
		Lifetime:           30 * time.Minute,
		IdleTimeout:        5 * time.Minute,
	}
}

// Metrics counts pool activity.
type Metrics struct {
	mu        sync.Mutex
	Created   int64
	Destroyed int64
	Acquired  int64
	Released  int64
}

func (m *Metrics) inc(field *int64) {
	m.mu.Lock()
	*field++
	m.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (m *Metrics) Snapshot() (created, destroyed, acquired, released int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Created, m.Destroyed, m.Acquired, m.Released
}

// pooledConn is one physical connection held by the pool.
type pooledConn struct {
	id        string
	conn      domain.Connection
	createdAt time.Time
	lastUsed  time.Time
}

// PooledConnector decorates a connector so that physical connections are
// checked out per identity and returned on Close instead of being torn
// down. A checked-out connection is owned by exactly one work item until it
// is checked back in.
type PooledConnector struct {
	connector domain.Connector
	config    Config
	metrics   Metrics

	mu     sync.Mutex
	idle   map[string]*list.List // identity key -> *pooledConn, LRU at back
	closed bool
}

// NewPooledConnector decorates c with connection pooling.
func NewPooledConnector(c domain.Connector, config Config) *PooledConnector {
	if config.MaxIdlePerIdentity <= 0 {
		config.MaxIdlePerIdentity = DefaultConfig().MaxIdlePerIdentity
	}
	if config.Lifetime <= 0 {
		config.Lifetime = DefaultConfig().Lifetime
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	return &PooledConnector{
		connector: c,
		config:    config,
		idle:      make(map[string]*list.List),
	}
}

// Metrics returns the pool's counters.
func (p *PooledConnector) Metrics() *Metrics { return &p.metrics }

// Start starts the underlying connector.
func (p *PooledConnector) Start(env *domain.Environment) error {
	return p.connector.Start(env)
}

// Stop closes every pooled connection and stops the underlying connector.
func (p *PooledConnector) Stop() {
	p.mu.Lock()
	p.closed = true
	for key, l := range p.idle {
		for e := l.Front(); e != nil; e = e.Next() {
			pc := e.Value.(*pooledConn)
			pc.conn.Close()
			p.metrics.inc(&p.metrics.Destroyed)
		}
		delete(p.idle, key)
	}
	p.mu.Unlock()

	p.connector.Stop()
}

// GetConnection checks a connection out of the pool for the context's
// identity, opening a new one when none is idle.
func (p *PooledConnector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	key := identityKey(workCtx)

	if pc := p.checkOut(key); pc != nil {
		p.metrics.inc(&p.metrics.Acquired)
		return &leasedConnection{pool: p, key: key, entry: pc}, nil
	}

	conn, err := p.connector.GetConnection(ctx, workCtx)
	if err != nil {
		return nil, err
	}
	p.metrics.inc(&p.metrics.Created)
	p.metrics.inc(&p.metrics.Acquired)
	pc := &pooledConn{
		id:        uuid.NewString(),
		conn:      conn,
		createdAt: time.Now(),
		lastUsed:  time.Now(),
	}
	return &leasedConnection{pool: p, key: key, entry: pc}, nil
}

// GetCapabilities delegates to the underlying connector.
func (p *PooledConnector) GetCapabilities() (domain.Capabilities, error) {
	return p.connector.GetCapabilities()
}

// SupportsXA reports the underlying connector's XA support.
func (p *PooledConnector) SupportsXA() bool {
	return domain.HasXASupport(p.connector)
}

// GetXAConnection delegates to the underlying connector. XA connections are
// never pooled: their lifetime belongs to the transaction.
func (p *PooledConnector) GetXAConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.XAConnection, error) {
	xa, ok := p.connector.(domain.IsXACapable)
	if !ok || !xa.SupportsXA() {
		return nil, &domain.ErrUnsupportedOperation{Operation: "XA transactions"}
	}
	return xa.GetXAConnection(ctx, workCtx)
}

// CreateIdentity delegates identity computation to the underlying
// connector, preserving its single-identity fallback.
func (p *PooledConnector) CreateIdentity(workCtx *domain.WorkContext) (domain.ConnectorIdentity, error) {
	return domain.CreateIdentity(p.connector, workCtx)
}

// SupportsPooling reports the underlying connector's declared preference.
func (p *PooledConnector) SupportsPooling() bool {
	pref, _ := domain.PoolingPreference(p.connector)
	return pref
}

// checkOut removes a usable idle connection for key, expiring stale ones.
func (p *PooledConnector) checkOut(key string) *pooledConn {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.idle[key]
	if !ok {
		return nil
	}
	now := time.Now()
	for e := l.Front(); e != nil; {
		next := e.Next()
		pc := e.Value.(*pooledConn)
		l.Remove(e)
		if now.Sub(pc.lastUsed) > p.config.IdleTimeout ||
			now.Sub(pc.createdAt) > p.config.Lifetime ||
			!pc.conn.IsAlive() {
			pc.conn.Close()
			p.metrics.inc(&p.metrics.Destroyed)
			e = next
			continue
		}
		return pc
	}
	return nil
}

// checkIn returns a connection to the idle list, closing it instead when
// the pool is full, the connection is dead, or the pool is stopped.
func (p *PooledConnector) checkIn(key string, pc *pooledConn) {
	p.metrics.inc(&p.metrics.Released)

	p.mu.Lock()
	if p.closed || !pc.conn.IsAlive() {
		p.mu.Unlock()
		pc.conn.Close()
		p.metrics.inc(&p.metrics.Destroyed)
		return
	}
	l, ok := p.idle[key]
	if !ok {
		l = list.New()
		p.idle[key] = l
	}
	if l.Len() >= p.config.MaxIdlePerIdentity {
		p.mu.Unlock()
		pc.conn.Close()
		p.metrics.inc(&p.metrics.Destroyed)
		return
	}
	pc.lastUsed = time.Now()
	l.PushBack(pc)
	p.mu.Unlock()
}

// IdleCount returns the number of idle pooled connections across all
// identities.
func (p *PooledConnector) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, l := range p.idle {
		n += l.Len()
	}
	return n
}

func identityKey(workCtx *domain.WorkContext) string {
	// A nil work context is the system identity.
	if workCtx != nil {
		if id := workCtx.Identity(); id != nil {
			return id.ConnectionKey()
		}
	}
	return domain.SingleIdentity{}.ConnectionKey()
}

// leasedConnection hands a pooled physical connection to one work item.
// Close checks the connection back in rather than closing it.
type leasedConnection struct {
	pool  *PooledConnector
	key   string
	entry *pooledConn

	mu     sync.Mutex
	closed bool
}

func (c *leasedConnection) CreateExecution(ctx context.Context, req *domain.AtomicRequestMessage) (domain.Execution, error) {
	return c.entry.conn.CreateExecution(ctx, req)
}

func (c *leasedConnection) GetCapabilities() (domain.Capabilities, error) {
	return c.entry.conn.GetCapabilities()
}

func (c *leasedConnection) IsAlive() bool {
	return c.entry.conn.IsAlive()
}

func (c *leasedConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.pool.checkIn(c.key, c.entry)
}
