// Package tracking is the optional sink for atomic-command begin/end
// events. A nil tracker disables tracking without affecting execution.
package tracking

import (
	"log"
	"time"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// CommandLogger receives the lifecycle events of atomic commands.
type CommandLogger interface {
	// CommandStarted is called when a request begins executing against the
	// connector.
	CommandStarted(id domain.AtomicRequestID, modelName, command string)

	// CommandFinished is called once per request with its outcome.
	CommandFinished(id domain.AtomicRequestID, rowCount int, elapsed time.Duration, err error)
}

// LogTracker writes command events to a standard logger.
type LogTracker struct {
	logger *log.Logger
}

// NewLogTracker creates a tracker writing to logger, or the process default
// when logger is nil.
func NewLogTracker(logger *log.Logger) *LogTracker {
	if logger == nil {
		logger = log.Default()
	}
	return &LogTracker{logger: logger}
}

func (t *LogTracker) CommandStarted(id domain.AtomicRequestID, modelName, command string) {
	t.logger.Printf("[tracking] request %s started on model %s: %s", id, modelName, command)
}

func (t *LogTracker) CommandFinished(id domain.AtomicRequestID, rowCount int, elapsed time.Duration, err error) {
	if err != nil {
		t.logger.Printf("[tracking] request %s failed after %s: %v", id, elapsed, err)
		return
	}
	t.logger.Printf("[tracking] request %s finished: %d rows in %s", id, rowCount, elapsed)
}
