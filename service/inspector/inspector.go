// Package inspector ties fetching, classification, storage and publishing of
// a single transaction together.
package inspector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/dustwatch/service/metrics"
	"github.com/brojonat/dustwatch/service/outcome"
)

// Fetcher returns the raw record for a signature.
type Fetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*outcome.RawTransaction, error)
}

// Store persists reports.
type Store interface {
	SaveReport(ctx context.Context, report *Report) error
}

// Publisher announces reports to subscribers.
type Publisher interface {
	PublishReport(ctx context.Context, report *Report) error
}

// Report is the outcome of one inspected transaction plus the record
// metadata needed to index it.
type Report struct {
	Signature string     `json:"signature"`
	Signer    string     `json:"signer"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"block_time,omitempty"`
	Fee       uint64     `json:"fee"`
	Failed    bool       `json:"failed"`

	// SpamCount counts spam native movements and low-value token movements.
	SpamCount      int `json:"spam_count"`
	LowValueCount  int `json:"low_value_count"`
	SuspiciousLogs int `json:"suspicious_logs"`

	Outcome     *outcome.TransactionOutcome `json:"outcome"`
	InspectedAt time.Time                   `json:"inspected_at"`
}

// Flagged reports whether any movement was flagged.
func (r *Report) Flagged() bool {
	return r.SpamCount > 0
}

// NewReport builds a report for signature from a raw record and its outcome.
func NewReport(signature string, raw *outcome.RawTransaction, out *outcome.TransactionOutcome) *Report {
	r := &Report{
		Signature:      signature,
		Signer:         out.Signer.Address,
		Slot:           raw.Slot,
		Fee:            raw.Meta.Fee,
		Failed:         raw.Failed(),
		SpamCount:      out.SpamCount(),
		LowValueCount:  out.LowValueCount(),
		SuspiciousLogs: out.SuspiciousLogCount(),
		Outcome:        out,
		InspectedAt:    time.Now().UTC(),
	}
	if raw.BlockTime != nil {
		bt := time.Unix(*raw.BlockTime, 0).UTC()
		r.BlockTime = &bt
	}
	return r
}

// Inspector classifies transactions and fans the result out to the optional
// store and publisher.
type Inspector struct {
	fetcher    Fetcher
	classifier *outcome.Classifier
	store      Store
	publisher  Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithStore persists every report.
func WithStore(s Store) Option {
	return func(i *Inspector) { i.store = s }
}

// WithPublisher publishes every report.
func WithPublisher(p Publisher) Option {
	return func(i *Inspector) { i.publisher = p }
}

// WithMetrics records classification metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Inspector) { i.metrics = m }
}

// New creates an Inspector.
func New(fetcher Fetcher, classifier *outcome.Classifier, logger *slog.Logger, opts ...Option) *Inspector {
	i := &Inspector{
		fetcher:    fetcher,
		classifier: classifier,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect fetches and classifies signature, then saves and publishes the report.
func (i *Inspector) Inspect(ctx context.Context, signature string) (*Report, error) {
	raw, err := i.fetcher.FetchTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", signature, err)
	}
	return i.InspectRaw(ctx, signature, raw)
}

// InspectRaw classifies an already fetched record. Store and publish
// failures are logged; the report is still returned.
func (i *Inspector) InspectRaw(ctx context.Context, signature string, raw *outcome.RawTransaction) (*Report, error) {
	out, err := i.Classify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to classify transaction %s: %w", signature, err)
	}

	report := NewReport(signature, raw, out)

	if i.store != nil {
		if err := i.store.SaveReport(ctx, report); err != nil {
			i.logger.ErrorContext(ctx, "failed to save report",
				"signature", signature,
				"error", err,
			)
		}
	}

	if i.publisher != nil {
		if err := i.publisher.PublishReport(ctx, report); err != nil {
			i.logger.WarnContext(ctx, "failed to publish report",
				"signature", signature,
				"error", err,
			)
		}
	}

	i.logger.DebugContext(ctx, "inspected transaction",
		"signature", signature,
		"signer", report.Signer,
		"spam_count", report.SpamCount,
		"suspicious_logs", report.SuspiciousLogs,
	)
	return report, nil
}

// Classify runs the classifier on raw without storing or publishing anything.
func (i *Inspector) Classify(ctx context.Context, raw *outcome.RawTransaction) (*outcome.TransactionOutcome, error) {
	start := time.Now()
	out, err := i.classifier.Parse(raw)
	if i.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		i.metrics.RecordClassification(status, time.Since(start).Seconds())
		if err == nil {
			i.metrics.RecordFlagged(len(out.Spammed().NativeAccounts), out.LowValueCount(), out.SuspiciousLogCount())
		}
	}
	return out, err
}
