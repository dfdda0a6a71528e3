// Command fedsql is a small demonstration of the connector request
// execution subsystem: it starts a memory connector binding, runs one
// atomic request through it, and prints the streamed batches.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/kasuganosora/fedsql/connectors"
	"github.com/kasuganosora/fedsql/connectors/memory"
	"github.com/kasuganosora/fedsql/pkg/config"
	"github.com/kasuganosora/fedsql/pkg/connector/domain"
	"github.com/kasuganosora/fedsql/pkg/connector/manager"
	"github.com/kasuganosora/fedsql/pkg/tracking"
	"github.com/kasuganosora/fedsql/pkg/transaction"
	"github.com/kasuganosora/fedsql/pkg/types"
)

type printReceiver struct {
	done chan struct{}
}

func (r *printReceiver) DeliverResults(msg *domain.AtomicResultsMessage) {
	for _, row := range msg.Rows {
		fmt.Println(row)
	}
	if msg.Final {
		close(r.done)
	}
}

func (r *printReceiver) ExceptionOccurred(err error) {
	fmt.Fprintln(os.Stderr, "request failed:", err)
	close(r.done)
}

func main() {
	configPath := flag.String("config", "", "deployment config file (optional)")
	flag.Parse()

	logger := log.New(os.Stderr, "fedsql ", log.LstdFlags)

	cfg := config.BindingConfig{
		Name:               "demo",
		Type:               "memory",
		MaxWorkerThreads:   2,
		SynchronousWorkers: true,
	}
	if *configPath != "" {
		deployment, err := config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal(err)
		}
		if len(deployment.Bindings) > 0 {
			cfg = deployment.Bindings[0]
		}
	}

	opts := manager.Options{
		Transactions: transaction.NewService(),
		Tracker:      tracking.NewLogTracker(logger),
		Logger:       logger,
	}
	// Memory bindings get demo data; other types resolve through the
	// factory registry and serve whatever the backend holds.
	if cfg.Type == "memory" {
		conn := memory.NewConnector()
		conn.LoadTable("accounts",
			[]types.ColumnInfo{{Name: "id", Type: "INT"}, {Name: "name", Type: "TEXT"}},
			[]types.Row{{1, "alice"}, {2, "bob"}, {3, "carol"}},
		)
		opts.Connector = conn
	}

	mgr := manager.New(cfg, opts)
	if err := mgr.Start(); err != nil {
		logger.Fatal(err)
	}
	defer mgr.Stop()

	receiver := &printReceiver{done: make(chan struct{})}
	msg := &domain.AtomicRequestMessage{
		ID:        domain.AtomicRequestID{SessionID: "demo-session", RequestID: 1, NodeID: 0},
		Command:   "accounts",
		ModelName: "demo",
		WorkContext: &domain.WorkContext{
			SessionID: "demo-session",
			User:      "demo",
			VDBName:   "demo",
		},
	}
	if err := mgr.ExecuteRequest(receiver, msg); err != nil {
		logger.Fatal(err)
	}

	select {
	case <-receiver.done:
	case <-time.After(5 * time.Second):
		logger.Fatal("request did not finish in time")
	}

	caps, err := mgr.GetCapabilities(context.Background(), msg.WorkContext)
	if err != nil {
		logger.Fatal(err)
	}
	fmt.Printf("row limit pushdown: %t, status: %s\n",
		caps.SupportsRowLimit(), mgr.GetStatus(context.Background()))
}
