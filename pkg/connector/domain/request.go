package domain

import (
	"fmt"
	"time"

	"github.com/kasuganosora/fedsql/pkg/types"
)

// AtomicRequestID identifies one atomic request carved out of a user query.
// Identity is by all three fields; it is the registry key for every live
// request against a connector binding.
type AtomicRequestID struct {
	SessionID string
	RequestID int64
	NodeID    int32
}

func (id AtomicRequestID) String() string {
	return fmt.Sprintf("%s.%d.%d", id.SessionID, id.RequestID, id.NodeID)
}

// WorkContext carries the session identity an atomic request runs under.
type WorkContext struct {
	SessionID  string
	User       string
	VDBName    string
	VDBVersion int

	// identity is computed once per context by the adapter and cached.
	identity ConnectorIdentity
}

// Identity returns the cached connector identity, or nil if not yet computed.
func (w *WorkContext) Identity() ConnectorIdentity {
	if w == nil {
		return nil
	}
	return w.identity
}

// SetIdentity caches the connector identity on the context.
func (w *WorkContext) SetIdentity(id ConnectorIdentity) {
	w.identity = id
}

// TransactionContext describes the distributed transaction, if any, the
// request participates in.
type TransactionContext struct {
	ID  string
	Xid *Xid
}

// AtomicRequestMessage is one resolved sub-command plus its execution
// context. It is read-only to the execution subsystem except for the
// processing-start timestamp stamped on submission.
type AtomicRequestMessage struct {
	ID          AtomicRequestID
	Command     string
	ModelName   string
	FetchSize   int
	RowLimit    int
	WorkContext *WorkContext
	Transaction *TransactionContext

	processingStart time.Time
}

// MarkProcessingStart stamps the time the request was accepted for
// execution. Only the first call takes effect.
func (m *AtomicRequestMessage) MarkProcessingStart(t time.Time) {
	if m.processingStart.IsZero() {
		m.processingStart = t
	}
}

// ProcessingStart returns the submission timestamp.
func (m *AtomicRequestMessage) ProcessingStart() time.Time {
	return m.processingStart
}

// AtomicResultsMessage is one batch of result rows. Final marks the last
// batch of the stream.
type AtomicResultsMessage struct {
	Columns  []types.ColumnInfo
	Rows     []types.Row
	FirstRow int
	Final    bool
	Warnings []string
}

// RowCount returns the number of rows in the batch.
func (m *AtomicResultsMessage) RowCount() int {
	return len(m.Rows)
}

// ResultsReceiver consumes the result stream of one atomic request.
// Exactly one terminal call (a Final batch or ExceptionOccurred) is
// delivered per request.
type ResultsReceiver interface {
	// DeliverResults delivers one batch, in production order.
	DeliverResults(msg *AtomicResultsMessage)

	// ExceptionOccurred delivers the terminal error of the request.
	ExceptionOccurred(err error)
}
