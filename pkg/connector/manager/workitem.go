package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// itemState is the work item lifecycle:
// Created -> Queued -> Running -> {Suspended <-> Running} -> terminal.
type itemState int

const (
	stateCreated itemState = iota
	stateQueued
	stateRunning
	stateSuspended
	stateClosed
	stateCancelled
	stateErrored
)

func (s itemState) terminal() bool { return s >= stateClosed }

func (s itemState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateQueued:
		return "queued"
	case stateRunning:
		return "running"
	case stateSuspended:
		return "suspended"
	case stateClosed:
		return "closed"
	case stateCancelled:
		return "cancelled"
	default:
		return "errored"
	}
}

// workItem is the unit of execution for one atomic request. The manager's
// registry holds the only long-lived reference; deregistration is the
// request ceasing to exist.
type workItem interface {
	id() domain.AtomicRequestID

	// process is the worker-pool entry point. An item's steps never run
	// concurrently: the item is on the pool queue or the timer queue,
	// never both.
	process(ctx context.Context)

	requestMore()
	requestCancel()
	requestClose()

	// shutdown delivers the binding-shutdown error and releases the item.
	// Called by the manager while draining the registry on Stop.
	shutdown(err error)
}

// baseItem carries the state shared by both execution strategies.
type baseItem struct {
	mgr      *ConnectorManager
	request  *domain.AtomicRequestMessage
	receiver domain.ResultsReceiver

	mu              sync.Mutex
	state           itemState
	conn            domain.Connection
	exec            domain.Execution
	rowCount        int
	cancelRequested bool
	closeRequested  bool
	terminalSent    bool
	finished        bool
}

func (w *baseItem) id() domain.AtomicRequestID { return w.request.ID }

// begin transitions a freshly dispatched item to Running. It returns false
// when the item was cancelled or closed while still queued, after
// finalizing it.
func (w *baseItem) begin() bool {
	w.mu.Lock()
	if w.state.terminal() {
		w.mu.Unlock()
		return false
	}
	if w.cancelRequested {
		w.mu.Unlock()
		w.deliverError(&ErrRequestCancelled{ID: w.request.ID})
		w.finish(stateCancelled, nil)
		return false
	}
	if w.closeRequested {
		w.mu.Unlock()
		w.finish(stateClosed, nil)
		return false
	}
	w.state = stateRunning
	w.mu.Unlock()
	return true
}

// interrupted reports a pending cancel or close and finalizes the item
// accordingly. Checked at every safe point between connector calls.
func (w *baseItem) interrupted() bool {
	w.mu.Lock()
	cancel, closed := w.cancelRequested, w.closeRequested
	w.mu.Unlock()

	if cancel {
		w.deliverError(&ErrRequestCancelled{ID: w.request.ID})
		w.finish(stateCancelled, &ErrRequestCancelled{ID: w.request.ID})
		return true
	}
	if closed {
		w.finish(stateClosed, nil)
		return true
	}
	return false
}

// setConnection records the opened connection, unless the item was already
// torn down, in which case the connection is closed immediately.
func (w *baseItem) setConnection(conn domain.Connection) bool {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		conn.Close()
		return false
	}
	w.conn = conn
	w.mu.Unlock()
	return true
}

func (w *baseItem) setExecution(exec domain.Execution) {
	w.mu.Lock()
	w.exec = exec
	w.mu.Unlock()
}

// deliverBatch enforces the row limit, stamps the batch position, and
// pushes the batch to the receiver. It returns whether the batch ended the
// stream, or an error when the configured row limit was exceeded.
func (w *baseItem) deliverBatch(b *domain.AtomicResultsMessage) (bool, error) {
	w.mu.Lock()
	if w.terminalSent {
		w.mu.Unlock()
		return true, nil
	}
	if limit := w.mgr.cfg.MaxResultRows; limit > 0 && w.rowCount+len(b.Rows) > limit {
		if w.mgr.cfg.ExceptionOnMaxRows {
			w.mu.Unlock()
			return false, &domain.ErrMaxRowsExceeded{RequestID: w.request.ID, Limit: limit}
		}
		b.Rows = b.Rows[:limit-w.rowCount]
		b.Final = true
	}
	b.FirstRow = w.rowCount + 1
	w.rowCount += len(b.Rows)
	final := b.Final
	if final {
		w.terminalSent = true
	}
	w.mu.Unlock()

	w.safeDeliver(func() { w.receiver.DeliverResults(b) })
	return final, nil
}

// deliverError delivers the terminal error, at most once per request.
func (w *baseItem) deliverError(err error) {
	w.mu.Lock()
	if w.terminalSent {
		w.mu.Unlock()
		return
	}
	w.terminalSent = true
	w.mu.Unlock()

	w.safeDeliver(func() { w.receiver.ExceptionOccurred(err) })
}

// safeDeliver shields the item from a misbehaving receiver. The receiver
// may already be gone during shutdown; a panic there must not leak into
// the worker pool.
func (w *baseItem) safeDeliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.mgr.logger.Printf("[%s] request %s: results receiver panicked: %v",
				w.mgr.cfg.Name, w.request.ID, r)
		}
	}()
	fn()
}

// finish moves the item to a terminal state, releases the connection
// exactly once, deregisters the item, and reports the outcome to the
// tracker. Safe to call more than once; only the first call acts.
func (w *baseItem) finish(st itemState, cause error) {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return
	}
	w.finished = true
	w.state = st
	exec, conn := w.exec, w.conn
	w.exec, w.conn = nil, nil
	rows := w.rowCount
	w.mu.Unlock()

	if exec != nil {
		exec.Close()
	}
	if conn != nil {
		conn.Close()
	}
	w.mgr.itemFinished(w.request, rows, cause)
}

func (w *baseItem) isFinished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}

// markCancel flags the cancel and returns the live execution for the
// best-effort connector-side cancel hook.
func (w *baseItem) markCancel() (domain.Execution, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return nil, false
	}
	w.cancelRequested = true
	return w.exec, true
}

func (w *baseItem) markClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return false
	}
	w.closeRequested = true
	return true
}

// shutdown is the manager-stop path: synthesize the terminal error and
// release whatever the item still holds.
func (w *baseItem) shutdown(err error) {
	w.deliverError(err)
	w.finish(stateClosed, err)
}

// syncItem executes a request start-to-finish on one worker thread. It
// never suspends; a connector that reports data-not-available simply costs
// the thread a sleep.
type syncItem struct {
	baseItem
}

func newSyncItem(mgr *ConnectorManager, req *domain.AtomicRequestMessage, receiver domain.ResultsReceiver) *syncItem {
	return &syncItem{baseItem: baseItem{mgr: mgr, request: req, receiver: receiver}}
}

func (w *syncItem) process(ctx context.Context) {
	if !w.begin() {
		return
	}
	err := w.run(ctx)
	switch {
	case err == nil:
		w.finish(stateClosed, nil)
	case w.isFinished():
		// run already finalized (cancel or close observed mid-stream).
	default:
		wrapped := &domain.ErrExecutionFailed{RequestID: w.request.ID, Cause: err}
		w.deliverError(wrapped)
		w.finish(stateErrored, wrapped)
	}
}

func (w *syncItem) run(ctx context.Context) error {
	conn, err := w.mgr.openConnection(ctx, w.request.WorkContext)
	if err != nil {
		return err
	}
	if !w.setConnection(conn) {
		return nil
	}

	exec, err := conn.CreateExecution(ctx, w.request)
	if err != nil {
		return err
	}
	w.setExecution(exec)

	if err := exec.Execute(ctx); err != nil {
		return err
	}

	for {
		if w.interrupted() {
			return nil
		}
		batch, err := exec.NextBatch(ctx)
		var dna *domain.DataNotAvailableError
		if errors.As(err, &dna) {
			// Synchronous strategy: block the worker thread and re-poll.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dna.RetryDelay):
			}
			continue
		}
		if err != nil {
			return err
		}
		final, err := w.deliverBatch(batch)
		if err != nil {
			return err
		}
		if final {
			return nil
		}
	}
}

// requestMore is a no-op for the synchronous strategy: batches are pushed
// without waiting for consumer pulls.
func (w *syncItem) requestMore() {}

func (w *syncItem) requestCancel() {
	exec, ok := w.markCancel()
	if !ok {
		return
	}
	if exec != nil {
		if err := exec.Cancel(); err != nil {
			w.mgr.logger.Printf("[%s] request %s: connector cancel failed: %v",
				w.mgr.cfg.Name, w.request.ID, err)
		}
	}
}

func (w *syncItem) requestClose() {
	w.markClose()
}
