package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/types"
)

const defaultBatchSize = 1024

type connection struct {
	dialect Dialect
	conn    *sql.Conn

	mu     sync.Mutex
	closed bool
}

func (cn *connection) CreateExecution(ctx context.Context, req *domain.AtomicRequestMessage) (domain.Execution, error) {
	return &execution{connection: cn, req: req}, nil
}

func (cn *connection) GetCapabilities() (domain.Capabilities, error) {
	return cn.dialect.Capabilities(), nil
}

func (cn *connection) IsAlive() bool {
	cn.mu.Lock()
	if cn.closed {
		cn.mu.Unlock()
		return false
	}
	cn.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return cn.conn.PingContext(ctx) == nil
}

func (cn *connection) Close() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		return
	}
	cn.closed = true
	cn.conn.Close()
}

// execution streams one query's rows in fetch-size batches. Cancel tears
// down the query context, which drivers translate to a backend-side kill.
type execution struct {
	connection *connection
	req        *domain.AtomicRequestMessage

	queryCtx context.Context
	cancel   context.CancelFunc
	rows     *sql.Rows
	columns  []types.ColumnInfo
	rowIdx   int
}

func (e *execution) Execute(ctx context.Context) error {
	e.queryCtx, e.cancel = context.WithCancel(ctx)

	rows, err := e.connection.conn.QueryContext(e.queryCtx, e.req.Command)
	if err != nil {
		return err
	}
	e.rows = rows

	cols, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return err
	}
	e.columns = make([]types.ColumnInfo, len(cols))
	for i, ct := range cols {
		nullable, _ := ct.Nullable()
		e.columns[i] = types.ColumnInfo{
			Name:     ct.Name(),
			Type:     ct.DatabaseTypeName(),
			Nullable: nullable,
		}
	}
	return nil
}

func (e *execution) NextBatch(ctx context.Context) (*domain.AtomicResultsMessage, error) {
	size := e.req.FetchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	batch := &domain.AtomicResultsMessage{Columns: e.columns}
	for len(batch.Rows) < size {
		if !e.rows.Next() {
			if err := e.rows.Err(); err != nil {
				return nil, err
			}
			batch.Final = true
			break
		}
		row := make(types.Row, len(e.columns))
		ptrs := make([]interface{}, len(e.columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := e.rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		batch.Rows = append(batch.Rows, row)
		e.rowIdx++
	}
	return batch, nil
}

func (e *execution) Cancel() error {
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

func (e *execution) Close() {
	if e.rows != nil {
		e.rows.Close()
		e.rows = nil
	}
	if e.cancel != nil {
		e.cancel()
	}
}

// xaConnection layers the dialect's XA statements over a reserved
// connection.
type xaConnection struct {
	*connection
	dialect XADialect
}

func (x *xaConnection) XAResource() domain.XAResource {
	return &xaResource{conn: x.connection, dialect: x.dialect}
}

type xaResource struct {
	conn    *connection
	dialect XADialect
}

// Recover lists the backend's in-doubt transaction branches.
func (r *xaResource) Recover() ([]domain.Xid, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := r.conn.conn.QueryContext(ctx, r.dialect.RecoverQuery())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var xids []domain.Xid
	for rows.Next() {
		var formatID, gtridLen, bqualLen int
		var data []byte
		if err := rows.Scan(&formatID, &gtridLen, &bqualLen, &data); err != nil {
			return nil, err
		}
		if gtridLen+bqualLen > len(data) {
			return nil, fmt.Errorf("malformed xid row: lengths %d+%d exceed %d bytes", gtridLen, bqualLen, len(data))
		}
		xids = append(xids, domain.Xid{
			FormatID: formatID,
			GlobalID: data[:gtridLen],
			BranchID: data[gtridLen : gtridLen+bqualLen],
		})
	}
	return xids, rows.Err()
}

func (r *xaResource) Commit(xid domain.Xid, onePhase bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.conn.conn.ExecContext(ctx, r.dialect.CommitStatement(xid, onePhase))
	return err
}

func (r *xaResource) Rollback(xid domain.Xid) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.conn.conn.ExecContext(ctx, r.dialect.RollbackStatement(xid))
	return err
}
