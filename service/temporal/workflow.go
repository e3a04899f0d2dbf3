package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// RefreshTradesWorkflow is the Temporal workflow that refreshes a
// wallet's trade history. It is triggered by a Temporal schedule at a
// configured interval.
//
// The workflow runs a single bounded retrieval (FetchTradeHistory
// activity). Individual trades stream to NATS from inside the activity;
// the workflow only tracks the run's outcome.
func RefreshTradesWorkflow(ctx workflow.Context, input RefreshTradesInput) (*RefreshTradesResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("RefreshTradesWorkflow started", "wallet_address", input.WalletAddress)

	result := &RefreshTradesResult{
		WalletAddress: input.WalletAddress,
		RefreshTime:   workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 600 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var fetchResult *FetchTradeHistoryResult
	err := workflow.ExecuteActivity(ctx, a.FetchTradeHistory, FetchTradeHistoryInput{
		WalletAddress: input.WalletAddress,
	}).Get(ctx, &fetchResult)
	if err != nil {
		errMsg := fmt.Sprintf("failed to fetch trade history: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to fetch trade history: %w", err)
	}

	result.Trades = fetchResult.Trades

	logger.Info("RefreshTradesWorkflow completed successfully",
		"wallet_address", input.WalletAddress,
		"trades", fetchResult.Trades,
		"duration_secs", fetchResult.DurationSecs,
	)

	return result, nil
}
