package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for background trade refreshes.
// Each registered wallet gets its own schedule that triggers the
// RefreshTradesWorkflow.
type Scheduler interface {
	// CreateWalletSchedule creates a new schedule that refreshes the
	// wallet's trade history on the given interval.
	CreateWalletSchedule(ctx context.Context, address string, interval time.Duration) error

	// DeleteWalletSchedule deletes the schedule for a wallet.
	// This stops the wallet from being refreshed.
	DeleteWalletSchedule(ctx context.Context, address string) error
}
