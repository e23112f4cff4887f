package temporal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockScheduler is an in-memory implementation of Scheduler and the scan
// operations of Client, for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]time.Duration // map[scheduleID]interval
	scans     map[string]*ScanStatus
	started   []ScanWalletInput
	createErr error
	deleteErr error
	scanErr   error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]time.Duration),
		scans:     make(map[string]*ScanStatus),
	}
}

// UpsertWatchSchedule creates or updates a schedule.
func (m *MockScheduler) UpsertWatchSchedule(ctx context.Context, address string, interval time.Duration) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[scheduleID(address)] = interval
	return nil
}

// DeleteWatchSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteWatchSchedule(ctx context.Context, address string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(address)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}

	delete(m.schedules, id)
	return nil
}

// ListWatchSchedules returns the schedules ordered by ID.
func (m *MockScheduler) ListWatchSchedules(ctx context.Context) ([]WatchSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	watches := make([]WatchSchedule, 0, len(m.schedules))
	for id, interval := range m.schedules {
		watches = append(watches, WatchSchedule{
			ID:       id,
			Address:  id[len(scheduleIDPrefix):],
			Interval: interval,
		})
	}
	sort.Slice(watches, func(i, j int) bool { return watches[i].ID < watches[j].ID })
	return watches, nil
}

// StartScan records the scan and marks it as running.
func (m *MockScheduler) StartScan(ctx context.Context, input ScanWalletInput) (string, error) {
	if m.scanErr != nil {
		return "", m.scanErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("scan-%s-%d", input.Address, len(m.started)+1)
	m.started = append(m.started, input)
	m.scans[id] = &ScanStatus{WorkflowID: id, Status: ScanStatusRunning}
	return id, nil
}

// GetScanResult returns the recorded status of a scan.
func (m *MockScheduler) GetScanResult(ctx context.Context, workflowID string) (*ScanStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.scans[workflowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, workflowID)
	}
	cp := *status
	return &cp, nil
}

// CompleteScan marks a started scan as completed with the given result.
func (m *MockScheduler) CompleteScan(workflowID string, result *ScanWalletResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[workflowID] = &ScanStatus{
		WorkflowID: workflowID,
		Status:     ScanStatusCompleted,
		Result:     result,
	}
}

// StartedScans returns the inputs of every started scan.
func (m *MockScheduler) StartedScans() []ScanWalletInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ScanWalletInput(nil), m.started...)
}

// SetCreateError makes UpsertWatchSchedule return an error.
func (m *MockScheduler) SetCreateError(err error) {
	m.createErr = err
}

// SetDeleteError makes DeleteWatchSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.deleteErr = err
}

// SetScanError makes StartScan return an error.
func (m *MockScheduler) SetScanError(err error) {
	m.scanErr = err
}

// ScheduleExists checks if a schedule exists for a wallet.
func (m *MockScheduler) ScheduleExists(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.schedules[scheduleID(address)]
	return exists
}

// GetScheduleInterval returns the interval of a wallet's schedule.
func (m *MockScheduler) GetScheduleInterval(address string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	interval, exists := m.schedules[scheduleID(address)]
	return interval, exists
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}
