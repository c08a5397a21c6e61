package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"casaspese/internal/metrics"
	"casaspese/internal/middleware/trace"
)

// heartbeatInterval keeps proxies from closing an idle event stream.
const heartbeatInterval = 25 * time.Second

// handleEvents streams the household's full expense list as a
// server-sent event on every store change. The first event is the
// current snapshot.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	householdID := r.PathValue("id")
	ctx := r.Context()

	snapshots, err := s.svc.Watch(ctx, householdID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.ActiveWatchers.Inc()
	defer metrics.ActiveWatchers.Dec()

	s.logger.InfoContext(ctx, "Event stream opened",
		"household_id", householdID,
		"request_id", trace.FromContext(ctx))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Event stream closed",
				"household_id", householdID)
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case snapshot, open := <-snapshots:
			if !open {
				return
			}
			payload, err := json.Marshal(toExpenseList(snapshot))
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to encode snapshot", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: expenses\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
