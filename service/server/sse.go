package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/dustwatch/service/metrics"
	natspkg "github.com/brojonat/dustwatch/service/nats"
)

// sseKeepalive is how often a comment is sent to idle streams.
var sseKeepalive = 10 * time.Second

// handleStreamReports handles SSE streaming of report events.
// If the signer path parameter is empty, streams every signer.
func handleStreamReports(subscriber natspkg.Subscriber, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		signer := r.PathValue("signer")
		signerDesc := signer
		if signer == "" {
			signerDesc = "all"
		} else if err := validateAddress(signer); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		events := make(chan *natspkg.ReportEvent, 10)
		stop, err := subscriber.Subscribe(ctx, signer, func(event *natspkg.ReportEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to subscribe", "signer", signerDesc, "error", err)
			writeError(w, "failed to subscribe", http.StatusBadGateway)
			return
		}
		defer stop()

		// Streams outlive the server write timeout.
		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if m != nil {
			m.RecordSSEConnectionChange(signerDesc, 1)
			defer m.RecordSSEConnectionChange(signerDesc, -1)
		}

		logger.DebugContext(ctx, "SSE client connected",
			"signer", signerDesc,
			"remote_addr", r.RemoteAddr,
		)

		fmt.Fprintf(w, "event: connected\ndata: {\"signer\":%q}\n\n", signerDesc)
		_ = rc.Flush()

		keepalive := time.NewTicker(sseKeepalive)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				_ = rc.Flush()

			case event := <-events:
				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(ctx, "failed to marshal event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: report\ndata: %s\n\n", data)
				_ = rc.Flush()
				if m != nil {
					m.RecordSSEEventSent(signerDesc, "report")
				}
				logger.DebugContext(ctx, "sent report event",
					"signer", signerDesc,
					"signature", event.Signature,
				)

			case <-ctx.Done():
				logger.DebugContext(ctx, "SSE client disconnected",
					"signer", signerDesc,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}
