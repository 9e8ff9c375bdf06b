package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/rzbill/pulse/internal/hub"
	logpkg "github.com/rzbill/pulse/pkg/log"
)

// handleSubscribeSSE streams hub frames to the client as Server-Sent Events.
// Teardown is owned by Subscription.Close: it runs exactly once whether the
// client disconnects, a write fails, or the server shuts down.
func (s *Server) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	q := r.URL.Query()
	sub, err := s.hub.Subscribe(hub.SubscribeRequest{
		Token:      bearerToken(r),
		TenantHint: q.Get("tenant"),
		SurveyHint: q.Get("survey"),
		Filter:     q.Get("filter"),
	})
	switch {
	case err == nil:
	case errors.Is(err, hub.ErrAnonymousDisabled):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	default:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(s.rt.Config().KeepAliveInterval())
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, open := <-sub.Frames():
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				s.logger.Debug("sse write failed",
					logpkg.Str("subscriber", sub.Subscriber().ID),
					logpkg.Err(err))
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := w.Write(hub.KeepAliveFrame()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
