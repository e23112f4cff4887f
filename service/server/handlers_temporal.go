package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/dustwatch/service/temporal"
)

// handleCreateWatch returns a handler that creates or updates the scan schedule of a wallet.
// POST /api/v1/watches
func handleCreateWatch(scans ScanService, minInterval, maxInterval, defaultInterval time.Duration, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if scans == nil {
			writeError(w, "workflows not configured", http.StatusServiceUnavailable)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Address  string `json:"address"`
			Interval string `json:"interval"` // Go duration, e.g. "5m"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode watch request", "error", err)
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.Address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		interval := defaultInterval
		if req.Interval != "" {
			parsed, err := time.ParseDuration(req.Interval)
			if err != nil {
				writeError(w, "invalid interval: must be a duration like 5m", http.StatusBadRequest)
				return
			}
			interval = parsed
		}
		if err := validateWatchInterval(interval, minInterval, maxInterval); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := scans.UpsertWatchSchedule(r.Context(), req.Address, interval); err != nil {
			logger.Error("failed to upsert watch schedule", "address", req.Address, "error", err)
			writeError(w, "failed to create watch", http.StatusInternalServerError)
			return
		}

		logger.Info("watch created", "address", req.Address, "interval", interval)
		writeJSON(w, map[string]interface{}{
			"address":  req.Address,
			"interval": interval.String(),
		}, http.StatusCreated)
	})
}

// handleDeleteWatch returns a handler that deletes the scan schedule of a wallet.
// DELETE /api/v1/watches/{address}
func handleDeleteWatch(scans ScanService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if scans == nil {
			writeError(w, "workflows not configured", http.StatusServiceUnavailable)
			return
		}

		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := scans.DeleteWatchSchedule(r.Context(), address); err != nil {
			logger.Error("failed to delete watch schedule", "address", address, "error", err)
			writeError(w, "failed to delete watch", http.StatusInternalServerError)
			return
		}

		logger.Info("watch deleted", "address", address)
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleListWatches returns a handler that lists every wallet watch.
// GET /api/v1/watches
func handleListWatches(scans ScanService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if scans == nil {
			writeError(w, "workflows not configured", http.StatusServiceUnavailable)
			return
		}

		watches, err := scans.ListWatchSchedules(r.Context())
		if err != nil {
			logger.Error("failed to list watch schedules", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]map[string]interface{}, len(watches))
		for i, watch := range watches {
			resp[i] = map[string]interface{}{
				"address":  watch.Address,
				"interval": watch.Interval.String(),
				"paused":   watch.Paused,
			}
		}
		writeJSON(w, map[string]interface{}{"watches": resp}, http.StatusOK)
	})
}

// handleStartScan returns a handler that starts a one-off wallet scan.
// POST /api/v1/scans
func handleStartScan(scans ScanService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if scans == nil {
			writeError(w, "workflows not configured", http.StatusServiceUnavailable)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req temporal.ScanWalletInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.Address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Limit < 0 || req.Limit > temporal.MaxScanLimit {
			writeError(w, errorf("limit must be between 0 and %d", temporal.MaxScanLimit).Error(), http.StatusBadRequest)
			return
		}

		workflowID, err := scans.StartScan(r.Context(), req)
		if err != nil {
			logger.Error("failed to start scan", "address", req.Address, "error", err)
			writeError(w, "failed to start scan", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"workflow_id": workflowID,
			"address":     req.Address,
		}, http.StatusAccepted)
	})
}

// handleGetScan returns a handler that reports the state of a scan workflow.
// GET /api/v1/scans/{workflow_id}
func handleGetScan(scans ScanService, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if scans == nil {
			writeError(w, "workflows not configured", http.StatusServiceUnavailable)
			return
		}

		workflowID := r.PathValue("workflow_id")
		if workflowID == "" {
			writeError(w, "workflow_id is required", http.StatusBadRequest)
			return
		}

		status, err := scans.GetScanResult(r.Context(), workflowID)
		if err != nil {
			if errors.Is(err, temporal.ErrScanNotFound) {
				writeError(w, "scan not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get scan", "workflow_id", workflowID, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, status, http.StatusOK)
	})
}
