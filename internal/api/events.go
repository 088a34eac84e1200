package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/san-kum/vlab/internal/lab"
)

const streamBuffer = 64

// events streams controller events as server-sent events until the client
// disconnects. Tick events are included only with ?ticks=1. A client that
// falls behind loses events rather than stalling the clock.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}
	withTicks := r.URL.Query().Get("ticks") == "1"

	ch := make(chan lab.Event, streamBuffer)
	unsubscribe := s.ctl.Subscribe(func(ev lab.Event) {
		if ev.Kind == lab.EventTick && !withTicks {
			return
		}
		select {
		case ch <- ev:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				s.log.Error("encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}
