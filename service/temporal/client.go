package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// ErrScanNotFound is returned when a scan workflow does not exist.
var ErrScanNotFound = errors.New("scan not found")

// Scan workflow states reported by GetScanResult.
const (
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
	ScanStatusCanceled  = "canceled"
	ScanStatusTimedOut  = "timed_out"
	ScanStatusUnknown   = "unknown"
)

// ScanStatus is the state of a scan workflow and, once it finished, its result.
type ScanStatus struct {
	WorkflowID string            `json:"workflow_id"`
	Status     string            `json:"status"`
	Result     *ScanWalletResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// UpsertWatchSchedule creates or updates the Temporal schedule that scans a wallet.
// If the schedule already exists, only its interval changes.
func (c *Client) UpsertWatchSchedule(ctx context.Context, address string, interval time.Duration) error {
	id := scheduleID(address)

	c.logger.Debug("upserting watch schedule",
		"address", address,
		"schedule_id", id,
		"interval", interval,
	)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.createWatchSchedule(ctx, address, interval)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})
	if err != nil {
		c.logger.Error("failed to update schedule",
			"address", address,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("watch schedule updated",
		"address", address,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

func (c *Client) createWatchSchedule(ctx context.Context, address string, interval time.Duration) error {
	id := scheduleID(address)

	// Scheduled scans only classify what is new since the last run.
	action := client.ScheduleWorkflowAction{
		ID:        id,
		Workflow:  ScanWalletWorkflow,
		TaskQueue: c.taskQueue,
		Args: []interface{}{ScanWalletInput{
			Address:   address,
			Limit:     DefaultScanLimit,
			SkipKnown: true,
		}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{{Every: interval}},
		},
		Action: &action,
		Memo: map[string]interface{}{
			"address":    address,
			"created_by": "dustwatch",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"address", address,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("watch schedule created",
		"address", address,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// DeleteWatchSchedule deletes the Temporal schedule of a wallet.
func (c *Client) DeleteWatchSchedule(ctx context.Context, address string) error {
	id := scheduleID(address)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"address", address,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("watch schedule deleted", "address", address, "schedule_id", id)
	return nil
}

// ListWatchSchedules returns every wallet watch known to Temporal.
func (c *Client) ListWatchSchedules(ctx context.Context) ([]WatchSchedule, error) {
	iter, err := c.client.ScheduleClient().List(ctx, client.ScheduleListOptions{PageSize: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	var watches []WatchSchedule
	for iter.HasNext() {
		entry, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to list schedules: %w", err)
		}
		if !strings.HasPrefix(entry.ID, scheduleIDPrefix) {
			continue
		}
		watch := WatchSchedule{
			ID:      entry.ID,
			Address: strings.TrimPrefix(entry.ID, scheduleIDPrefix),
			Paused:  entry.Paused,
		}
		if entry.Spec != nil && len(entry.Spec.Intervals) > 0 {
			watch.Interval = entry.Spec.Intervals[0].Every
		}
		watches = append(watches, watch)
	}
	return watches, nil
}

// StartScan starts a one-off ScanWalletWorkflow and returns its workflow ID.
func (c *Client) StartScan(ctx context.Context, input ScanWalletInput) (string, error) {
	id := "scan-" + input.Address + "-" + ulid.Make().String()

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: c.taskQueue,
	}, ScanWalletWorkflow, input)
	if err != nil {
		c.logger.Error("failed to start scan", "address", input.Address, "error", err)
		return "", fmt.Errorf("failed to start scan for %s: %w", input.Address, err)
	}

	c.logger.Info("scan started",
		"address", input.Address,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return run.GetID(), nil
}

// GetScanResult returns the state of a scan workflow. The result is only
// populated once the workflow has completed.
func (c *Client) GetScanResult(ctx context.Context, workflowID string) (*ScanStatus, error) {
	desc, err := c.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrScanNotFound, workflowID)
		}
		return nil, fmt.Errorf("failed to describe scan %s: %w", workflowID, err)
	}

	status := &ScanStatus{
		WorkflowID: workflowID,
		Status:     scanStatusName(desc.GetWorkflowExecutionInfo().GetStatus()),
	}

	switch status.Status {
	case ScanStatusRunning:
		return status, nil
	case ScanStatusCompleted:
		var result ScanWalletResult
		if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
			return nil, fmt.Errorf("failed to read scan result %s: %w", workflowID, err)
		}
		status.Result = &result
	default:
		if err := c.client.GetWorkflow(ctx, workflowID, "").Get(ctx, nil); err != nil {
			status.Error = err.Error()
		}
	}
	return status, nil
}

func scanStatusName(s enumspb.WorkflowExecutionStatus) string {
	switch s {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return ScanStatusRunning
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return ScanStatusCompleted
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return ScanStatusFailed
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return ScanStatusCanceled
	case enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return ScanStatusTimedOut
	default:
		return ScanStatusUnknown
	}
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
