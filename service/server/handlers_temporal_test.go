package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/brojonat/dustwatch/service/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWatch_CreatesTemporalSchedule(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, scheduler)

	tests := []struct {
		name     string
		address  string
		interval string
		expected time.Duration
	}{
		{name: "explicit interval", address: testSigner, interval: "2m", expected: 2 * time.Minute},
		{name: "default interval", address: testRecipient, interval: "", expected: 5 * time.Minute},
		{name: "upsert changes interval", address: testSigner, interval: "1h", expected: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"address":"%s","interval":"%s"}`, tt.address, tt.interval)
			w := do(t, h, "POST", "/api/v1/watches", body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			interval, exists := scheduler.GetScheduleInterval(tt.address)
			require.True(t, exists, "schedule should exist for wallet")
			assert.Equal(t, tt.expected, interval)
		})
	}
	assert.Equal(t, 2, scheduler.ScheduleCount())
}

func TestCreateWatch_Validation(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, scheduler)

	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{name: "malformed JSON", body: `{"address":`, contains: "invalid request body"},
		{name: "missing address", body: `{"interval":"5m"}`, contains: "address is required"},
		{name: "invalid address", body: `{"address":"nope!","interval":"5m"}`, contains: "base58"},
		{name: "unparseable interval", body: `{"address":"` + testSigner + `","interval":"soon"}`, contains: "invalid interval"},
		{name: "below minimum", body: `{"address":"` + testSigner + `","interval":"10s"}`, contains: "at least"},
		{name: "above maximum", body: `{"address":"` + testSigner + `","interval":"48h"}`, contains: "cannot exceed"},
		{name: "negative", body: `{"address":"` + testSigner + `","interval":"-5m"}`, contains: "positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/v1/watches", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
	assert.Equal(t, 0, scheduler.ScheduleCount())
}

func TestCreateWatch_TemporalFailure(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	scheduler.SetCreateError(fmt.Errorf("temporal service unavailable"))
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, scheduler)

	w := do(t, h, "POST", "/api/v1/watches", `{"address":"`+testSigner+`","interval":"5m"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, scheduler.ScheduleExists(testSigner))
}

func TestDeleteAndListWatches(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, scheduler)

	require.Equal(t, http.StatusCreated, do(t, h, "POST", "/api/v1/watches", `{"address":"`+testSigner+`","interval":"5m"}`).Code)

	w := do(t, h, "GET", "/api/v1/watches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"watches":[{"address":"`+testSigner+`","interval":"5m0s","paused":false}]}`, w.Body.String())

	w = do(t, h, "DELETE", "/api/v1/watches/"+testSigner, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, scheduler.ScheduleExists(testSigner))

	// Deleting again surfaces the scheduler error
	w = do(t, h, "DELETE", "/api/v1/watches/"+testSigner, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStartAndGetScan(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, scheduler)

	w := do(t, h, "POST", "/api/v1/scans", `{"address":"`+testSigner+`","limit":25}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var started struct {
		WorkflowID string `json:"workflow_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.WorkflowID)

	scans := scheduler.StartedScans()
	require.Len(t, scans, 1)
	assert.Equal(t, temporal.ScanWalletInput{Address: testSigner, Limit: 25}, scans[0])

	w = do(t, h, "GET", "/api/v1/scans/"+started.WorkflowID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status temporal.ScanStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, temporal.ScanStatusRunning, status.Status)
	assert.Nil(t, status.Result)

	scheduler.CompleteScan(started.WorkflowID, &temporal.ScanWalletResult{
		Address:           testSigner,
		Scanned:           25,
		Flagged:           1,
		FlaggedSignatures: []string{testSignature},
	})

	w = do(t, h, "GET", "/api/v1/scans/"+started.WorkflowID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, temporal.ScanStatusCompleted, status.Status)
	require.NotNil(t, status.Result)
	assert.Equal(t, []string{testSignature}, status.Result.FlaggedSignatures)

	w = do(t, h, "GET", "/api/v1/scans/scan-unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartScan_Validation(t *testing.T) {
	scheduler := temporal.NewMockScheduler()
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, scheduler)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/v1/scans", `{"address":"x0x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/v1/scans", `{"address":"`+testSigner+`","limit":5000}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/v1/scans", `not json`).Code)

	scheduler.SetScanError(fmt.Errorf("temporal down"))
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "POST", "/api/v1/scans", `{"address":"`+testSigner+`"}`).Code)
	assert.Empty(t, scheduler.StartedScans())
}

func TestWorkflowRoutes_NotConfigured(t *testing.T) {
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "POST", "/api/v1/watches", `{"address":"`+testSigner+`"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "DELETE", "/api/v1/watches/"+testSigner, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/api/v1/watches", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "POST", "/api/v1/scans", `{"address":"`+testSigner+`"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/api/v1/scans/scan-1", "").Code)
}
