package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/internal/realtime"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	"github.com/mediayaseer-arch/questpark-backend/pkg/metrics"
)

// EventSource hands out subscriptions to the checkout event hub.
type EventSource interface {
	Subscribe() (<-chan realtime.Event, func())
}

// CheckoutStream serves the dashboard event stream over SSE. It opens with a
// ready event, relays checkout changes, and heartbeats at the configured
// interval so intermediaries do not reap the connection.
func CheckoutStream(source EventSource, heartbeat time.Duration, httpMetrics *metrics.HTTPMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if source == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event hub unavailable"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		events, cancel := source.Subscribe()
		defer cancel()
		httpMetrics.StreamOpened()
		defer httpMetrics.StreamClosed()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		writeSSE(w, realtime.Event{Type: realtime.EventReady, At: time.Now().UTC().Format(time.RFC3339Nano)})
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				writeSSE(w, event)
				flusher.Flush()
			case <-ticker.C:
				writeSSE(w, realtime.Event{Type: realtime.EventPing, At: time.Now().UTC().Format(time.RFC3339Nano)})
				flusher.Flush()
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event realtime.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
}
