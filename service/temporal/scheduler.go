package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for wallet watches.
// Each watched wallet gets its own schedule that triggers the ScanWalletWorkflow.
type Scheduler interface {
	// UpsertWatchSchedule creates the schedule for a wallet, or updates its
	// interval if it already exists.
	UpsertWatchSchedule(ctx context.Context, address string, interval time.Duration) error

	// DeleteWatchSchedule deletes the schedule for a wallet.
	DeleteWatchSchedule(ctx context.Context, address string) error
}

// WatchSchedule describes an existing wallet watch.
type WatchSchedule struct {
	ID       string        `json:"id"`
	Address  string        `json:"address"`
	Interval time.Duration `json:"interval"`
	Paused   bool          `json:"paused"`
}

const scheduleIDPrefix = "scan-wallet-"

// scheduleID returns the Temporal schedule ID for a wallet address.
func scheduleID(address string) string {
	return scheduleIDPrefix + address
}
