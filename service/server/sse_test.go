package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brojonat/dustwatch/service/config"
	"github.com/brojonat/dustwatch/service/metrics"
	natspkg "github.com/brojonat/dustwatch/service/nats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent reads lines until a complete SSE event and returns its name and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func newStreamServer(t *testing.T, sub natspkg.Subscriber) *httptest.Server {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	srv := New(":0", &config.Config{}, newTestInspector(staticFetcher(nil, nil)), nil, nil, sub, m, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStreamReports_DeliversSignerEvents(t *testing.T) {
	sub := natspkg.NewMockSubscriber()
	ts := newStreamServer(t, sub)

	resp, err := http.Get(ts.URL + "/api/v1/stream/reports/" + testSigner)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	assert.JSONEq(t, `{"signer":"`+testSigner+`"}`, data)
	require.Equal(t, 1, sub.Subscriptions())

	// Other signers are filtered out by the subscription
	sub.Emit(&natspkg.ReportEvent{Signature: "other", Signer: testRecipient})
	sub.Emit(&natspkg.ReportEvent{Signature: testSignature, Signer: testSigner, SpamCount: 2})

	name, data = readEvent(t, reader)
	assert.Equal(t, "report", name)
	var event natspkg.ReportEvent
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, testSignature, event.Signature)
	assert.Equal(t, 2, event.SpamCount)

	resp.Body.Close()
	assert.Eventually(t, func() bool { return sub.Subscriptions() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamReports_AllSigners(t *testing.T) {
	sub := natspkg.NewMockSubscriber()
	ts := newStreamServer(t, sub)

	resp, err := http.Get(ts.URL + "/api/v1/stream/reports")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	_, data := readEvent(t, reader)
	assert.JSONEq(t, `{"signer":"all"}`, data)

	sub.Emit(&natspkg.ReportEvent{Signature: "a", Signer: testRecipient})
	_, data = readEvent(t, reader)
	assert.Contains(t, data, `"signature":"a"`)
}

func TestStreamReports_Errors(t *testing.T) {
	sub := natspkg.NewMockSubscriber()
	ts := newStreamServer(t, sub)

	resp, err := http.Get(ts.URL + "/api/v1/stream/reports/not-base58!")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sub.SetSubscribeError(errors.New("nats unavailable"))
	resp, err = http.Get(ts.URL + "/api/v1/stream/reports/" + testSigner)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestStreamReports_DisabledWithoutSubscriber(t *testing.T) {
	h := newTestServer(newTestInspector(staticFetcher(nil, nil)), nil, nil)
	w := do(t, h, "GET", "/api/v1/stream/reports", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
