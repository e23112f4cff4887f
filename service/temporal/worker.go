package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/dustwatch/service/metrics"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

const defaultExecutionSlots = 10

// WorkerConfig wires a scan worker.
type WorkerConfig struct {
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	Lister      SignatureLister
	Inspector   ReportInspector
	Index       ReportIndex      // Optional: enables SkipKnown
	Concurrency int              // Parallel inspections per activity
	Metrics     *metrics.Metrics // Optional
	Logger      *slog.Logger

	// Slots for concurrently executing activities and workflow tasks.
	// Zero means 10.
	ActivitySlots     int
	WorkflowTaskSlots int
}

// Worker runs the scan workflow and its activities on one task queue.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker dials Temporal and registers the scan workflow and activities.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	logger := config.Logger.With("component", "scan_worker", "task_queue", config.TaskQueue)

	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", config.TemporalHost, err)
	}

	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     orDefault(config.ActivitySlots, defaultExecutionSlots),
		MaxConcurrentWorkflowTaskExecutionSize: orDefault(config.WorkflowTaskSlots, defaultExecutionSlots),
	})

	activities := NewActivities(
		config.Lister,
		config.Inspector,
		config.Index,
		config.Concurrency,
		config.Metrics,
		logger,
	)
	register(w, activities)

	logger.Info("scan worker ready",
		"namespace", config.TemporalNamespace,
		"inspect_concurrency", activities.concurrency,
		"skip_known", config.Index != nil,
	)
	return &Worker{client: c, worker: w, logger: logger}, nil
}

// register binds the workflow and its activities. Activity names match the
// method names used by ExecuteActivity in ScanWalletWorkflow.
func register(r worker.Registry, a *Activities) {
	r.RegisterWorkflow(ScanWalletWorkflow)
	r.RegisterActivity(a.ListSignatures)
	r.RegisterActivity(a.InspectSignatures)
}

// Run processes tasks until ctx is cancelled, then stops the worker and
// closes the Temporal connection.
func (w *Worker) Run(ctx context.Context) error {
	defer w.client.Close()

	stop := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	w.logger.Info("scan worker polling")
	if err := w.worker.Run(stop); err != nil {
		return fmt.Errorf("scan worker stopped: %w", err)
	}
	w.logger.Info("scan worker stopped")
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
