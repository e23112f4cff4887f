package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/metrics"
	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// ErrReportNotFound is returned when no report exists for a signature.
var ErrReportNotFound = errors.New("report not found")

// Store provides report persistence on top of a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no query metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

// NewPool parses databaseURL, connects and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// StoredReport is a report together with its row identity.
type StoredReport struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	inspector.Report
}

const reportColumns = `id, signature, signer, slot, block_time, fee, failed,
	spam_count, low_value_count, suspicious_logs, outcome, inspected_at, created_at`

// SaveReport inserts report, or replaces the stored report for the same
// signature. The row id of an existing report is preserved.
func (s *Store) SaveReport(ctx context.Context, report *inspector.Report) (err error) {
	defer s.observe("save_report", time.Now(), &err)

	data, err := json.Marshal(report.Outcome)
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports (
			id, signature, signer, slot, block_time, fee, failed,
			spam_count, low_value_count, suspicious_logs, outcome, inspected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (signature) DO UPDATE SET
			signer = EXCLUDED.signer,
			slot = EXCLUDED.slot,
			block_time = EXCLUDED.block_time,
			fee = EXCLUDED.fee,
			failed = EXCLUDED.failed,
			spam_count = EXCLUDED.spam_count,
			low_value_count = EXCLUDED.low_value_count,
			suspicious_logs = EXCLUDED.suspicious_logs,
			outcome = EXCLUDED.outcome,
			inspected_at = EXCLUDED.inspected_at`,
		ulid.Make().String(),
		report.Signature,
		report.Signer,
		int64(report.Slot),
		report.BlockTime,
		int64(report.Fee),
		report.Failed,
		report.SpamCount,
		report.LowValueCount,
		report.SuspiciousLogs,
		data,
		report.InspectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.Signature, err)
	}
	return nil
}

// GetReport retrieves the report for signature.
func (s *Store) GetReport(ctx context.Context, signature string) (_ *StoredReport, err error) {
	defer s.observe("get_report", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE signature = $1`, signature)
	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", signature, err)
	}
	return report, nil
}

// ListReportsBySigner returns reports paid for by signer, newest slot first.
func (s *Store) ListReportsBySigner(ctx context.Context, signer string, limit, offset int32) (_ []*StoredReport, err error) {
	defer s.observe("list_reports_by_signer", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE signer = $1
		ORDER BY slot DESC
		LIMIT $2 OFFSET $3`, signer, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return collectReports(rows)
}

// ListFlaggedReports returns the most recent reports with at least one
// flagged movement.
func (s *Store) ListFlaggedReports(ctx context.Context, limit int32) (_ []*StoredReport, err error) {
	defer s.observe("list_flagged_reports", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE spam_count > 0
		ORDER BY slot DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged reports: %w", err)
	}
	return collectReports(rows)
}

// ReportExists checks whether a report is stored for signature.
func (s *Store) ReportExists(ctx context.Context, signature string) (_ bool, err error) {
	defer s.observe("report_exists", time.Now(), &err)

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reports WHERE signature = $1)`, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check report %s: %w", signature, err)
	}
	return exists, nil
}

// DeleteReport removes the report for signature.
func (s *Store) DeleteReport(ctx context.Context, signature string) (err error) {
	defer s.observe("delete_report", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE signature = $1`, signature)
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", signature, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (s *Store) observe(operation string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	var opErr error
	if err != nil && *err != nil && !errors.Is(*err, ErrReportNotFound) {
		opErr = *err
	}
	s.metrics.RecordDBQuery(operation, "reports", time.Since(start).Seconds(), opErr)
}

func collectReports(rows pgx.Rows) ([]*StoredReport, error) {
	defer rows.Close()

	reports := []*StoredReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func scanReport(row pgx.Row) (*StoredReport, error) {
	var (
		r         StoredReport
		slot, fee int64
		data      []byte
	)
	err := row.Scan(
		&r.ID,
		&r.Signature,
		&r.Signer,
		&slot,
		&r.BlockTime,
		&fee,
		&r.Failed,
		&r.SpamCount,
		&r.LowValueCount,
		&r.SuspiciousLogs,
		&data,
		&r.InspectedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Slot = uint64(slot)
	r.Fee = uint64(fee)

	var out outcome.TransactionOutcome
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode stored outcome: %w", err)
	}
	r.Outcome = &out
	return &r, nil
}
