package pooling

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

type countingConnector struct {
	plainConnector
	opened atomic.Int32
	dead   atomic.Bool
}

func (c *countingConnector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	c.opened.Add(1)
	return &countingConnection{connector: c}, nil
}

type countingConnection struct {
	connector *countingConnector
	closed    atomic.Bool
}

func (cn *countingConnection) CreateExecution(ctx context.Context, req *domain.AtomicRequestMessage) (domain.Execution, error) {
	return nil, errors.New("not scripted")
}
func (cn *countingConnection) GetCapabilities() (domain.Capabilities, error) {
	return domain.BaseCapabilities{}, nil
}
func (cn *countingConnection) IsAlive() bool {
	return !cn.connector.dead.Load() && !cn.closed.Load()
}
func (cn *countingConnection) Close() { cn.closed.Store(true) }

func userContext(user string) *domain.WorkContext {
	w := &domain.WorkContext{SessionID: "s1", User: user}
	w.SetIdentity(domain.UserIdentity{Username: user})
	return w
}

func TestReuseAfterCheckIn(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{})

	ctx := context.Background()
	conn, err := p.GetConnection(ctx, userContext("alice"))
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	if p.IdleCount() != 1 {
		t.Fatalf("idle = %d, want 1", p.IdleCount())
	}

	again, err := p.GetConnection(ctx, userContext("alice"))
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()

	if got := c.opened.Load(); got != 1 {
		t.Fatalf("opened %d physical connections, want 1", got)
	}
	created, _, acquired, released := p.Metrics().Snapshot()
	if created != 1 || acquired != 2 || released != 1 {
		t.Fatalf("metrics created=%d acquired=%d released=%d", created, acquired, released)
	}
}

func TestIdentitiesDoNotShareConnections(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{})

	ctx := context.Background()
	conn, _ := p.GetConnection(ctx, userContext("alice"))
	conn.Close()

	if _, err := p.GetConnection(ctx, userContext("bob")); err != nil {
		t.Fatal(err)
	}
	if got := c.opened.Load(); got != 2 {
		t.Fatalf("bob must not receive alice's connection; opened %d", got)
	}
	if p.IdleCount() != 1 {
		t.Fatalf("alice's idle connection should remain, idle = %d", p.IdleCount())
	}
}

func TestIdleCapPerIdentity(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{MaxIdlePerIdentity: 2})

	ctx := context.Background()
	conns := make([]domain.Connection, 4)
	for i := range conns {
		cn, err := p.GetConnection(ctx, userContext("alice"))
		if err != nil {
			t.Fatal(err)
		}
		conns[i] = cn
	}
	for _, cn := range conns {
		cn.Close()
	}

	if p.IdleCount() != 2 {
		t.Fatalf("idle = %d, want cap of 2", p.IdleCount())
	}
	_, destroyed, _, _ := p.Metrics().Snapshot()
	if destroyed != 2 {
		t.Fatalf("destroyed = %d, want 2 over-cap connections closed", destroyed)
	}
}

func TestDoubleCloseChecksInOnce(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{})

	conn, _ := p.GetConnection(context.Background(), userContext("alice"))
	conn.Close()
	conn.Close()

	if p.IdleCount() != 1 {
		t.Fatalf("idle = %d, want 1 after double close", p.IdleCount())
	}
	_, _, _, released := p.Metrics().Snapshot()
	if released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}
}

func TestDeadConnectionNotReused(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{})

	ctx := context.Background()
	conn, _ := p.GetConnection(ctx, userContext("alice"))
	c.dead.Store(true)
	conn.Close()

	if p.IdleCount() != 0 {
		t.Fatalf("dead connection was pooled, idle = %d", p.IdleCount())
	}

	c.dead.Store(false)
	if _, err := p.GetConnection(ctx, userContext("alice")); err != nil {
		t.Fatal(err)
	}
	if got := c.opened.Load(); got != 2 {
		t.Fatalf("expected a fresh connection, opened %d", got)
	}
}

func TestIdleTimeoutExpires(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{IdleTimeout: time.Millisecond})

	ctx := context.Background()
	conn, _ := p.GetConnection(ctx, userContext("alice"))
	conn.Close()

	time.Sleep(5 * time.Millisecond)

	if _, err := p.GetConnection(ctx, userContext("alice")); err != nil {
		t.Fatal(err)
	}
	if got := c.opened.Load(); got != 2 {
		t.Fatalf("stale connection should be retired, opened %d", got)
	}
	_, destroyed, _, _ := p.Metrics().Snapshot()
	if destroyed != 1 {
		t.Fatalf("destroyed = %d, want 1", destroyed)
	}
}

func TestStopClosesIdleAndRefusesCheckIn(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{})

	ctx := context.Background()
	idle, _ := p.GetConnection(ctx, userContext("alice"))
	idle.Close()
	leased, _ := p.GetConnection(ctx, userContext("bob"))

	p.Stop()

	if p.IdleCount() != 0 {
		t.Fatalf("idle = %d after stop", p.IdleCount())
	}

	// The outstanding lease checks in after stop; the connection must be
	// closed, not pooled.
	leased.Close()
	if p.IdleCount() != 0 {
		t.Fatal("check-in after stop must close the connection")
	}
	_, destroyed, _, _ := p.Metrics().Snapshot()
	if destroyed != 2 {
		t.Fatalf("destroyed = %d, want both connections closed", destroyed)
	}
}

func TestSystemIdentityPoolsUnderOneKey(t *testing.T) {
	c := &countingConnector{}
	p := NewPooledConnector(c, Config{})

	ctx := context.Background()
	conn, err := p.GetConnection(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	if _, err := p.GetConnection(ctx, &domain.WorkContext{SessionID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if got := c.opened.Load(); got != 1 {
		t.Fatalf("system identity should share the pool, opened %d", got)
	}
}

func TestXANeverPooled(t *testing.T) {
	p := NewPooledConnector(&plainConnector{}, Config{})
	_, err := p.GetXAConnection(context.Background(), nil)
	var unsupported *domain.ErrUnsupportedOperation
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
}
