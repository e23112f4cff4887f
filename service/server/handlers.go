package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/brojonat/dustwatch/service/db"
	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/brojonat/dustwatch/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - a full getTransaction response fits comfortably
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer
	maxSignatureLength = 100     // Signatures are 88 chars
	maxWatchInterval   = 24 * time.Hour
	defaultReportLimit = 50
	maxReportLimit     = 500
)

var (
	// Valid Solana base58 characters (no 0, O, I, l)
	validBase58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// handleInspect returns a handler that fetches and classifies a transaction.
// POST /tx/{signature}
func handleInspect(insp Inspector, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, ok := inspect(w, r, insp, logger)
		if !ok {
			return
		}
		writeJSON(w, map[string]interface{}{
			"info": report.Outcome,
		}, http.StatusOK)
	})
}

// handleCount returns a handler that counts the flagged movements of a transaction.
// POST /count/{signature}
func handleCount(insp Inspector, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, ok := inspect(w, r, insp, logger)
		if !ok {
			return
		}
		writeJSON(w, map[string]interface{}{
			"count": report.SpamCount,
		}, http.StatusOK)
	})
}

// handleSpammed returns a handler that lists only the flagged movements of a transaction.
// POST /spammed/{signature}
func handleSpammed(insp Inspector, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, ok := inspect(w, r, insp, logger)
		if !ok {
			return
		}
		writeJSON(w, report.Outcome.Spammed(), http.StatusOK)
	})
}

// inspect validates the signature path value and runs the inspection,
// writing the error response itself when it fails.
func inspect(w http.ResponseWriter, r *http.Request, insp Inspector, logger *slog.Logger) (*inspector.Report, bool) {
	signature := r.PathValue("signature")
	if err := validateSignature(signature); err != nil {
		logger.Debug("invalid signature", "signature", signature, "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	report, err := insp.Inspect(r.Context(), signature)
	if err != nil {
		status := inspectionStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("failed to inspect transaction", "signature", signature, "error", err)
		} else {
			logger.Debug("transaction not classified", "signature", signature, "error", err)
		}
		writeError(w, err.Error(), status)
		return nil, false
	}

	logger.Debug("transaction inspected",
		"signature", signature,
		"spam_count", report.SpamCount,
		"suspicious_logs", report.SuspiciousLogs,
	)
	return report, true
}

// handleClassify returns a handler that classifies a raw record posted in the body.
// The body may be a bare getTransaction result or the full JSON-RPC response.
// POST /api/v1/classify
func handleClassify(insp Inspector, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		data, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusRequestEntityTooLarge)
				return
			}
			writeError(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		raw, err := outcome.DecodeRawTransaction(data)
		if err != nil {
			logger.Debug("failed to decode raw record", "error", err)
			if errors.Is(err, outcome.ErrTransactionNotFound) {
				writeError(w, err.Error(), http.StatusNotFound)
				return
			}
			writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}

		out, err := insp.Classify(r.Context(), raw)
		if err != nil {
			logger.Debug("raw record rejected", "error", err)
			writeError(w, err.Error(), inspectionStatus(err))
			return
		}

		writeJSON(w, out, http.StatusOK)
	})
}

// handleGetReport returns a handler that retrieves a stored report.
// GET /api/v1/reports/{signature}
func handleGetReport(reports ReportStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			writeError(w, "report store not configured", http.StatusServiceUnavailable)
			return
		}

		signature := r.PathValue("signature")
		if err := validateSignature(signature); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		report, err := reports.GetReport(r.Context(), signature)
		if err != nil {
			if errors.Is(err, db.ErrReportNotFound) {
				writeError(w, "report not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get report", "signature", signature, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, report, http.StatusOK)
	})
}

// handleListReports returns a handler that lists stored reports.
// GET /api/v1/reports?signer=ADDRESS&limit=N&offset=N
// GET /api/v1/reports?flagged=true&limit=N
func handleListReports(reports ReportStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			writeError(w, "report store not configured", http.StatusServiceUnavailable)
			return
		}

		query := r.URL.Query()
		limit, err := parseBoundedInt(query.Get("limit"), defaultReportLimit, 1, maxReportLimit)
		if err != nil {
			writeError(w, "invalid limit: "+err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := parseBoundedInt(query.Get("offset"), 0, 0, 1<<30)
		if err != nil {
			writeError(w, "invalid offset: "+err.Error(), http.StatusBadRequest)
			return
		}

		signer := query.Get("signer")
		var list []*db.StoredReport
		switch {
		case signer != "":
			if err := validateAddress(signer); err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			list, err = reports.ListReportsBySigner(r.Context(), signer, int32(limit), int32(offset))
		case query.Get("flagged") == "true":
			list, err = reports.ListFlaggedReports(r.Context(), int32(limit))
		default:
			writeError(w, "signer query parameter is required", http.StatusBadRequest)
			return
		}
		if err != nil {
			logger.Error("failed to list reports", "signer", signer, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if list == nil {
			list = []*db.StoredReport{}
		}
		writeJSON(w, map[string]interface{}{
			"reports": list,
			"limit":   limit,
			"offset":  offset,
		}, http.StatusOK)
	})
}

// inspectionStatus maps an inspection error to an HTTP status.
func inspectionStatus(err error) int {
	switch {
	case errors.Is(err, solana.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, outcome.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, outcome.ErrMalformedRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}
	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}
	if err := checkBase58("address", address); err != nil {
		return err
	}
	if _, err := solanago.PublicKeyFromBase58(address); err != nil {
		return errorf("invalid address: %v", err)
	}
	return nil
}

// validateSignature validates a transaction signature for security and format.
func validateSignature(signature string) error {
	if signature == "" {
		return errorf("signature is required")
	}
	if len(signature) > maxSignatureLength {
		return errorf("signature too long: maximum length is %d characters", maxSignatureLength)
	}
	if err := checkBase58("signature", signature); err != nil {
		return err
	}
	if _, err := solanago.SignatureFromBase58(signature); err != nil {
		return errorf("invalid signature: %v", err)
	}
	return nil
}

func checkBase58(field, value string) error {
	for _, r := range value {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in %s: control characters not allowed", field)
		}
	}
	if !validBase58Regex.MatchString(value) {
		return errorf("invalid %s format: must contain only valid base58 characters", field)
	}
	return nil
}

// validateWatchInterval validates a watch interval for reasonable bounds.
func validateWatchInterval(interval, minInterval, maxInterval time.Duration) error {
	if interval <= 0 {
		return errorf("interval must be positive")
	}
	if interval < minInterval {
		return errorf("interval must be at least %v", minInterval)
	}
	if interval > maxInterval {
		return errorf("interval cannot exceed %v", maxInterval)
	}
	return nil
}

func parseBoundedInt(value string, def, lo, hi int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errorf("must be an integer")
	}
	if n < lo || n > hi {
		return 0, errorf("must be between %d and %d", lo, hi)
	}
	return n, nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
