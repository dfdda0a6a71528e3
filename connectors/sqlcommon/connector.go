package sqlcommon

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Connector implements domain.Connector over database/sql. The driver's
// own pool handles physical connections, so the connector declares no
// pooling preference of its own via SupportsPooling.
type Connector struct {
	dialect Dialect
	cfg     *Config

	mu      sync.RWMutex
	db      *sql.DB
	started bool
}

// NewConnector creates an unstarted SQL connector.
func NewConnector(dialect Dialect, cfg *Config) *Connector {
	return &Connector{dialect: dialect, cfg: cfg}
}

// Start opens the database handle, configures its pool, and verifies
// connectivity.
func (c *Connector) Start(env *domain.Environment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dsn, err := c.dialect.BuildDSN(c.cfg)
	if err != nil {
		return &domain.ErrConnectionFailed{ConnectorType: c.dialect.DriverName(), Reason: err.Error()}
	}
	db, err := sql.Open(c.dialect.DriverName(), dsn)
	if err != nil {
		return &domain.ErrConnectionFailed{ConnectorType: c.dialect.DriverName(), Reason: err.Error()}
	}

	db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(c.cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(c.cfg.ConnMaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(c.cfg.ConnectTimeout)*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return &domain.ErrConnectionFailed{ConnectorType: c.dialect.DriverName(), Reason: err.Error()}
	}

	c.db = db
	c.started = true
	return nil
}

// Stop closes the database handle. Idempotent.
func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}

// GetConnection reserves a dedicated connection from the driver pool.
func (c *Connector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, &domain.ErrConnectionFailed{ConnectorType: c.dialect.DriverName(), Reason: err.Error()}
	}
	return &connection{dialect: c.dialect, conn: conn}, nil
}

// GetCapabilities returns the dialect's static capabilities, shared by all
// users.
func (c *Connector) GetCapabilities() (domain.Capabilities, error) {
	return c.dialect.Capabilities(), nil
}

// SupportsPooling declares that the subsystem's identity-keyed pooling is
// unnecessary here: database/sql pools underneath.
func (c *Connector) SupportsPooling() bool { return false }

// SupportsXA reports whether the dialect speaks XA.
func (c *Connector) SupportsXA() bool {
	_, ok := c.dialect.(XADialect)
	return ok
}

// GetXAConnection reserves a connection that exposes the dialect's XA
// surface.
func (c *Connector) GetXAConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.XAConnection, error) {
	xd, ok := c.dialect.(XADialect)
	if !ok {
		return nil, &domain.ErrUnsupportedOperation{ConnectorType: c.dialect.DriverName(), Operation: "XA transactions"}
	}
	conn, err := c.GetConnection(ctx, workCtx)
	if err != nil {
		return nil, err
	}
	return &xaConnection{connection: conn.(*connection), dialect: xd}, nil
}

func (c *Connector) handle() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started || c.db == nil {
		return nil, &domain.ErrConnectionFailed{ConnectorType: c.dialect.DriverName(), Reason: "connector not started"}
	}
	return c.db, nil
}
