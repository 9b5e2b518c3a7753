// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/log"
)

// streamBuffer is how many events a slow client may lag behind before
// events are dropped for it.
const streamBuffer = 64

// handleEvents streams bus events as server-sent events. ?kinds=state,time
// narrows the stream; the default is every kind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	kinds := []string{events.Wildcard}
	if raw := r.URL.Query().Get("kinds"); raw != "" {
		kinds = strings.Split(raw, ",")
	}
	ns := "sse-" + uuid.NewString()
	ch := make(chan events.Event, streamBuffer)
	send := func(ev events.Event) {
		select {
		case ch <- ev:
		default:
		}
	}

	var regErr error
	if err := s.runner.Do(r.Context(), func() {
		for _, k := range kinds {
			if _, regErr = s.eng.AddListener(strings.TrimSpace(k)+"."+ns, send); regErr != nil {
				_, _ = s.eng.RemoveListener("." + ns)
				return
			}
		}
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if regErr != nil {
		writeError(w, r, regErr)
		return
	}
	defer func() {
		_ = s.runner.Do(context.WithoutCancel(r.Context()), func() { _, _ = s.eng.RemoveListener("." + ns) })
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	s.logger.Debug().
		Str(log.FieldEvent, "api.stream_opened").
		Str("namespace", ns).
		Strs("kinds", kinds).
		Msg("event stream opened")

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Kind, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
