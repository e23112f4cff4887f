package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAPIServer serves the classification routes from the fixture record.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile("testdata/dust_tx.json")
	require.NoError(t, err)
	raw, err := outcome.DecodeRawTransaction(data)
	require.NoError(t, err)
	out, err := outcome.MustNew(outcome.DefaultConfig()).Parse(raw)
	require.NoError(t, err)

	var scanPolls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/tx/"+testSig:
			json.NewEncoder(w).Encode(map[string]any{"info": out})
		case r.URL.Path == "/count/"+testSig:
			json.NewEncoder(w).Encode(map[string]int{"count": out.SpamCount()})
		case r.URL.Path == "/spammed/"+testSig:
			json.NewEncoder(w).Encode(out.Spammed())
		case r.URL.Path == "/api/v1/reports":
			report := inspector.NewReport(testSig, raw, out)
			json.NewEncoder(w).Encode(map[string]any{
				"reports": []any{map[string]any{"id": "01J", "created_at": report.InspectedAt, "signature": report.Signature,
					"signer": report.Signer, "slot": report.Slot, "spam_count": report.SpamCount,
					"low_value_count": report.LowValueCount, "suspicious_logs": report.SuspiciousLogs,
					"inspected_at": report.InspectedAt}},
			})
		case r.Method == "POST" && r.URL.Path == "/api/v1/scans":
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"workflow_id":"scan-` + testSigner + `-1"}`))
		case r.URL.Path == "/api/v1/scans/scan-"+testSigner+"-1":
			if scanPolls.Add(1) == 1 {
				w.Write([]byte(`{"workflow_id":"scan-1","status":"running"}`))
				return
			}
			w.Write([]byte(`{"workflow_id":"scan-1","status":"completed","result":{"scanned":10,"flagged":1,"flagged_signatures":["` + testSig + `"]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"transaction not found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientTxCommand(t *testing.T) {
	server := newAPIServer(t)

	output, err := runApp(t, "", "--server-url", server.URL, "client", "tx", testSig)
	require.NoError(t, err)
	assert.Contains(t, output, testSigner)
	assert.Contains(t, output, "1 spam, 1 low value")

	output, err = runApp(t, "", "--server-url", server.URL, "client", "tx", testSig, "--jq", ".logs | map(select(.has_invalid_chars)) | length")
	require.NoError(t, err)
	assert.Equal(t, "1\n", output)

	_, err = runApp(t, "", "--server-url", server.URL, "client", "tx", "unknownSig")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction not found")
}

func TestClientCountAndSpammedCommands(t *testing.T) {
	server := newAPIServer(t)

	output, err := runApp(t, "", "--server-url", server.URL, "client", "count", testSig)
	require.NoError(t, err)
	assert.Equal(t, "2\n", output)

	output, err = runApp(t, "", "--server-url", server.URL, "client", "spammed", testSig)
	require.NoError(t, err)
	assert.Contains(t, output, "native  "+testRecipient)
	assert.Contains(t, output, "0.000000001 SOL")
	assert.Contains(t, output, "token   "+testTokenAcct)

	_, err = runApp(t, "", "--server-url", server.URL, "client", "count")
	assert.ErrorContains(t, err, "requires exactly one argument")
}

func TestClientReportsCommand(t *testing.T) {
	server := newAPIServer(t)

	output, err := runApp(t, "", "--server-url", server.URL, "client", "reports", testSigner)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "SIGNATURE")
	assert.Contains(t, lines[1], testSig)
}

func TestClientScanCommand_Wait(t *testing.T) {
	server := newAPIServer(t)

	output, err := runApp(t, "", "--server-url", server.URL, "client", "scan", testSigner)
	require.NoError(t, err)
	assert.Contains(t, output, "Scan started: scan-"+testSigner+"-1")

	output, err = runApp(t, "", "--server-url", server.URL, "client", "scan", "--wait", testSigner)
	require.NoError(t, err)
	assert.Contains(t, output, "Status:    completed")
	assert.Contains(t, output, "Flagged:   1")
	assert.Contains(t, output, testSig)
}
