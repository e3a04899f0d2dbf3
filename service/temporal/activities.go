package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/hopscotch/service/trade"
)

// RefreshTradesInput contains the input parameters for refreshing a
// wallet's trade history.
type RefreshTradesInput struct {
	WalletAddress string `json:"wallet_address"`
}

// RefreshTradesResult contains the result of one refresh run.
type RefreshTradesResult struct {
	WalletAddress string    `json:"wallet_address"`
	Trades        int       `json:"trades"`
	RefreshTime   time.Time `json:"refresh_time"`
	Error         *string   `json:"error,omitempty"`
}

// FetchTradeHistoryInput contains parameters for the FetchTradeHistory activity.
type FetchTradeHistoryInput struct {
	WalletAddress string `json:"wallet_address"`
}

// FetchTradeHistoryResult contains the result of the FetchTradeHistory activity.
type FetchTradeHistoryResult struct {
	Trades       int     `json:"trades"`
	DurationSecs float64 `json:"duration_secs"`
}

// HistoryEngine defines the retrieval operation needed by activities.
// This allows for easy mocking in tests.
type HistoryEngine interface {
	GetTradeHistory(ctx context.Context, wallet string) ([]*trade.FormattedTrade, error)
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit.
type Activities struct {
	engine HistoryEngine
	logger *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
func NewActivities(engine HistoryEngine, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		engine: engine,
		logger: logger,
	}
}

// FetchTradeHistory runs one bounded trade-history retrieval for the
// wallet. The engine streams trades to its configured sink as it goes;
// the activity result only carries the totals.
func (a *Activities) FetchTradeHistory(ctx context.Context, input FetchTradeHistoryInput) (*FetchTradeHistoryResult, error) {
	start := time.Now()

	a.logger.DebugContext(ctx, "fetching trade history",
		"wallet_address", input.WalletAddress,
	)

	trades, err := a.engine.GetTradeHistory(ctx, input.WalletAddress)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to fetch trade history",
			"wallet_address", input.WalletAddress,
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch trade history: %w", err)
	}

	elapsed := time.Since(start)
	a.logger.InfoContext(ctx, "fetched trade history successfully",
		"wallet_address", input.WalletAddress,
		"trades", len(trades),
		"duration", elapsed,
	)

	return &FetchTradeHistoryResult{
		Trades:       len(trades),
		DurationSecs: elapsed.Seconds(),
	}, nil
}
