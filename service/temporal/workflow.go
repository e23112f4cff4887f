package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// ScanWalletWorkflow classifies the most recent transactions of a wallet.
// It runs on demand or from a watch schedule.
//
// The workflow performs these steps:
// 1. List recent signatures of the wallet (ListSignatures activity)
// 2. Fetch, classify and store each one (InspectSignatures activity)
// 3. Return a summary of flagged and failed signatures
func ScanWalletWorkflow(ctx workflow.Context, input ScanWalletInput) (*ScanWalletResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ScanWalletWorkflow started", "address", input.Address, "limit", input.Limit)

	result := &ScanWalletResult{
		Address:           input.Address,
		FlaggedSignatures: []string{},
		ScanTime:          workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var listed *ListSignaturesResult
	err := workflow.ExecuteActivity(ctx, a.ListSignatures, ListSignaturesInput{
		Address:   input.Address,
		Limit:     input.Limit,
		SkipKnown: input.SkipKnown,
	}).Get(ctx, &listed)
	if err != nil {
		logger.Error("failed to list signatures", "address", input.Address, "error", err)
		errMsg := fmt.Sprintf("failed to list signatures: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to list signatures: %w", err)
	}
	result.Skipped = listed.Skipped

	var inspected *InspectSignaturesResult
	err = workflow.ExecuteActivity(ctx, a.InspectSignatures, InspectSignaturesInput{
		Address:    input.Address,
		Signatures: listed.Signatures,
		StartedAt:  result.ScanTime,
	}).Get(ctx, &inspected)
	if err != nil {
		logger.Error("failed to inspect signatures", "address", input.Address, "error", err)
		errMsg := fmt.Sprintf("failed to inspect signatures: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to inspect signatures: %w", err)
	}

	result.Scanned = inspected.Inspected
	result.Failed = len(inspected.Failures)
	result.Failures = inspected.Failures
	result.Flagged = len(inspected.Flagged)
	if inspected.Flagged != nil {
		result.FlaggedSignatures = inspected.Flagged
	}

	logger.Info("ScanWalletWorkflow completed",
		"address", input.Address,
		"scanned", result.Scanned,
		"skipped", result.Skipped,
		"flagged", result.Flagged,
		"failed", result.Failed,
	)
	return result, nil
}
