package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/metrics"
	"github.com/brojonat/dustwatch/service/solana"
	temporalsdk "go.temporal.io/sdk/temporal"
	"golang.org/x/sync/errgroup"
)

// DefaultScanLimit is the number of recent signatures scanned when no limit is given.
const DefaultScanLimit = 100

// MaxScanLimit is the page size cap of getSignaturesForAddress.
const MaxScanLimit = 1000

// ScanWalletInput contains the input parameters for scanning a wallet.
type ScanWalletInput struct {
	Address   string `json:"address"`
	Limit     int    `json:"limit"`      // Signatures to scan, newest first
	SkipKnown bool   `json:"skip_known"` // Skip signatures that already have a stored report
}

// ScanWalletResult contains the result of scanning a wallet.
type ScanWalletResult struct {
	Address           string             `json:"address"`
	Scanned           int                `json:"scanned"`
	Skipped           int                `json:"skipped"`
	Flagged           int                `json:"flagged"`
	Failed            int                `json:"failed"`
	FlaggedSignatures []string           `json:"flagged_signatures"`
	Failures          []SignatureFailure `json:"failures,omitempty"`
	ScanTime          time.Time          `json:"scan_time"`
	Error             *string            `json:"error,omitempty"`
}

// SignatureFailure records a signature that could not be inspected.
type SignatureFailure struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// ListSignaturesInput contains parameters for the ListSignatures activity.
type ListSignaturesInput struct {
	Address   string `json:"address"`
	Limit     int    `json:"limit"`
	Before    string `json:"before,omitempty"`
	SkipKnown bool   `json:"skip_known"`
}

// ListSignaturesResult contains the signatures to inspect, newest first.
type ListSignaturesResult struct {
	Signatures []string `json:"signatures"`
	Skipped    int      `json:"skipped"`
}

// InspectSignaturesInput contains parameters for the InspectSignatures activity.
type InspectSignaturesInput struct {
	Address    string    `json:"address"`
	Signatures []string  `json:"signatures"`
	StartedAt  time.Time `json:"started_at"` // Workflow start, used for the scan duration metric
}

// InspectSignaturesResult contains the result of inspecting a batch of signatures.
type InspectSignaturesResult struct {
	Inspected int                `json:"inspected"`
	Flagged   []string           `json:"flagged"`
	Failures  []SignatureFailure `json:"failures,omitempty"`
}

// SignatureLister lists the transaction signatures of an address.
type SignatureLister interface {
	ListSignatures(ctx context.Context, address string, limit int, before string) ([]solana.SignatureInfo, error)
}

// ReportInspector inspects one transaction and returns its report.
type ReportInspector interface {
	Inspect(ctx context.Context, signature string) (*inspector.Report, error)
}

// ReportIndex answers whether a signature already has a stored report.
type ReportIndex interface {
	ReportExists(ctx context.Context, signature string) (bool, error)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	lister      SignatureLister
	inspector   ReportInspector
	index       ReportIndex // optional
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// index may be nil, in which case SkipKnown has no effect. If metrics is nil,
// no metrics will be recorded.
func NewActivities(
	lister SignatureLister,
	insp ReportInspector,
	index ReportIndex,
	concurrency int,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Activities{
		lister:      lister,
		inspector:   insp,
		index:       index,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger,
	}
}

// ListSignatures fetches the most recent signatures of a wallet and drops
// the ones that already have a report when asked to.
func (a *Activities) ListSignatures(ctx context.Context, input ListSignaturesInput) (*ListSignaturesResult, error) {
	start := time.Now()
	defer a.recordDuration("ListSignatures", start)

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	if limit > MaxScanLimit {
		limit = MaxScanLimit
	}

	a.logger.DebugContext(ctx, "listing signatures",
		"address", input.Address,
		"limit", limit,
		"before", input.Before,
	)

	infos, err := a.lister.ListSignatures(ctx, input.Address, limit, input.Before)
	if err != nil {
		if errors.Is(err, solana.ErrInvalidAddress) || errors.Is(err, solana.ErrInvalidSignature) {
			return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
		}
		return nil, fmt.Errorf("failed to list signatures for %s: %w", input.Address, err)
	}

	result := &ListSignaturesResult{Signatures: make([]string, 0, len(infos))}
	for _, info := range infos {
		if input.SkipKnown && a.index != nil {
			known, err := a.index.ReportExists(ctx, info.Signature)
			if err != nil {
				return nil, fmt.Errorf("failed to check report for %s: %w", info.Signature, err)
			}
			if known {
				result.Skipped++
				continue
			}
		}
		result.Signatures = append(result.Signatures, info.Signature)
	}

	a.logger.InfoContext(ctx, "listed signatures",
		"address", input.Address,
		"count", len(result.Signatures),
		"skipped", result.Skipped,
	)
	return result, nil
}

// InspectSignatures inspects every signature with bounded concurrency.
// A signature that cannot be inspected is recorded as a failure and does not
// fail the batch; only context cancellation does.
func (a *Activities) InspectSignatures(ctx context.Context, input InspectSignaturesInput) (*InspectSignaturesResult, error) {
	start := time.Now()
	defer a.recordDuration("InspectSignatures", start)

	var (
		mu       sync.Mutex
		flagged  = make(map[string]bool)
		failures = make(map[string]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, sig := range input.Signatures {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := a.inspector.Inspect(gctx, sig)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.logger.WarnContext(ctx, "failed to inspect signature",
					"address", input.Address,
					"signature", sig,
					"error", err,
				)
				failures[sig] = err.Error()
				return nil
			}
			if report.Flagged() {
				flagged[sig] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.recordScan("canceled", input.StartedAt)
		return nil, fmt.Errorf("inspection of %s interrupted: %w", input.Address, err)
	}

	// Report in listing order so results are stable across retries.
	result := &InspectSignaturesResult{Flagged: []string{}}
	for _, sig := range input.Signatures {
		if msg, ok := failures[sig]; ok {
			result.Failures = append(result.Failures, SignatureFailure{Signature: sig, Error: msg})
			continue
		}
		result.Inspected++
		if flagged[sig] {
			result.Flagged = append(result.Flagged, sig)
		}
	}

	status := "completed"
	if len(result.Failures) > 0 {
		status = "partial"
	}
	a.recordScan(status, input.StartedAt)

	a.logger.InfoContext(ctx, "inspected signatures",
		"address", input.Address,
		"inspected", result.Inspected,
		"flagged", len(result.Flagged),
		"failed", len(result.Failures),
	)
	return result, nil
}

func (a *Activities) recordDuration(activity string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordActivityDuration(activity, time.Since(start).Seconds())
	}
}

func (a *Activities) recordScan(status string, startedAt time.Time) {
	if a.metrics == nil || startedAt.IsZero() {
		return
	}
	a.metrics.RecordWorkflowDuration(status, time.Since(startedAt).Seconds())
}
