package manager

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

type asyncPhase int

const (
	phaseOpen asyncPhase = iota
	phaseExecute
	phaseFetch
)

// asyncItem executes a request in cooperative steps. Between steps the item
// holds no worker thread: while the connector is producing data it sits on
// the deferred-task scheduler, and after delivering a batch it sits idle
// until the consumer pulls with requestMore. The onPoolQueue flag is the
// self-serialization guard — at most one dispatch of the item is queued or
// running at any time.
type asyncItem struct {
	baseItem

	phase        asyncPhase
	onPoolQueue  bool
	awaitingMore bool
	pendingMore  bool
}

func newAsyncItem(mgr *ConnectorManager, req *domain.AtomicRequestMessage, receiver domain.ResultsReceiver) *asyncItem {
	return &asyncItem{baseItem: baseItem{mgr: mgr, request: req, receiver: receiver}}
}

func (w *asyncItem) process(ctx context.Context) {
	w.mu.Lock()
	if w.finished {
		w.onPoolQueue = false
		w.mu.Unlock()
		return
	}
	w.state = stateRunning
	w.mu.Unlock()

	for {
		if w.interrupted() {
			w.clearPoolQueue()
			return
		}

		switch w.curPhase() {
		case phaseOpen:
			conn, err := w.mgr.openConnection(ctx, w.request.WorkContext)
			if err != nil {
				w.fail(err)
				return
			}
			if !w.setConnection(conn) {
				w.clearPoolQueue()
				return
			}
			w.setPhase(phaseExecute)

		case phaseExecute:
			w.mu.Lock()
			conn := w.conn
			w.mu.Unlock()
			exec, err := conn.CreateExecution(ctx, w.request)
			if err != nil {
				w.fail(err)
				return
			}
			w.setExecution(exec)
			if err := exec.Execute(ctx); err != nil {
				w.fail(err)
				return
			}
			w.setPhase(phaseFetch)

		case phaseFetch:
			w.mu.Lock()
			exec := w.exec
			w.mu.Unlock()
			batch, err := exec.NextBatch(ctx)
			var dna *domain.DataNotAvailableError
			if errors.As(err, &dna) {
				w.suspend(dna.RetryDelay)
				return
			}
			if err != nil {
				w.fail(err)
				return
			}
			final, err := w.deliverBatch(batch)
			if err != nil {
				w.fail(err)
				return
			}
			if final {
				w.finish(stateClosed, nil)
				w.clearPoolQueue()
				return
			}
			if w.parkForMore() {
				return
			}
			// A pull already arrived; fetch the next batch immediately.
		}
	}
}

func (w *asyncItem) curPhase() asyncPhase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

func (w *asyncItem) setPhase(p asyncPhase) {
	w.mu.Lock()
	w.phase = p
	w.mu.Unlock()
}

func (w *asyncItem) clearPoolQueue() {
	w.mu.Lock()
	w.onPoolQueue = false
	w.mu.Unlock()
}

// suspend parks the item on the timer queue until the connector is ready.
func (w *asyncItem) suspend(delay time.Duration) {
	if delay <= 0 {
		delay = time.Millisecond
	}
	w.mu.Lock()
	if w.finished {
		w.onPoolQueue = false
		w.mu.Unlock()
		return
	}
	w.onPoolQueue = false
	w.state = stateSuspended
	w.mu.Unlock()

	w.mgr.scheduleResume(w, delay)
}

// parkForMore suspends the item until the consumer pulls. It returns false
// when a pull already arrived while the last batch was being delivered, in
// which case the item keeps its dispatch and fetches on.
func (w *asyncItem) parkForMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelRequested || w.closeRequested || w.finished {
		// Let the dispatch loop observe it.
		return false
	}
	if w.pendingMore {
		w.pendingMore = false
		return false
	}
	w.awaitingMore = true
	w.onPoolQueue = false
	w.state = stateSuspended
	return true
}

func (w *asyncItem) fail(err error) {
	wrapped := &domain.ErrExecutionFailed{RequestID: w.request.ID, Cause: err}
	w.deliverError(wrapped)
	w.finish(stateErrored, wrapped)
	w.clearPoolQueue()
}

// enqueue puts the item back on the worker pool, unless it is already there
// or has finished. The pool refusing the item (shutdown) finalizes it.
func (w *asyncItem) enqueue() {
	w.mu.Lock()
	if w.finished || w.onPoolQueue {
		w.mu.Unlock()
		return
	}
	w.onPoolQueue = true
	w.state = stateQueued
	w.mu.Unlock()

	if err := w.mgr.enqueueItem(w); err != nil {
		w.clearPoolQueue()
		w.shutdown(&ErrBindingShutdown{Binding: w.mgr.cfg.Name})
	}
}

// resume is the deferred-task callback.
func (w *asyncItem) resume() {
	w.enqueue()
}

// requestMore pulls the next batch on behalf of the consumer.
func (w *asyncItem) requestMore() {
	w.mu.Lock()
	if w.finished {
		w.mu.Unlock()
		return
	}
	if !w.awaitingMore {
		// The pull raced the batch delivery; remember it.
		w.pendingMore = true
		w.mu.Unlock()
		return
	}
	w.awaitingMore = false
	w.mu.Unlock()

	w.enqueue()
}

func (w *asyncItem) requestCancel() {
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
	// A suspended item will not observe the flag on its own; wake it. The
	// pending resume timer, if any, becomes redundant.
	w.mgr.cancelResume(w)
	w.enqueue()
}

func (w *asyncItem) requestClose() {
	if !w.markClose() {
		return
	}
	w.mgr.cancelResume(w)
	w.enqueue()
}
