// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/playlist"
)

// StateResponse is the body of GET /api/v1/state.
type StateResponse struct {
	Lifecycle    string              `json:"lifecycle"`
	Buffer       string              `json:"buffer"`
	Seek         string              `json:"seek"`
	Position     float64             `json:"position"`
	Duration     float64             `json:"duration"`
	Volume       float64             `json:"volume"`
	Quality      string              `json:"quality"`
	CurrentIndex int                 `json:"currentIndex"`
	Current      *media.ResolvedItem `json:"current,omitempty"`
	Generation   uint64              `json:"generation"`
}

// ItemsResponse is the body of GET /api/v1/items.
type ItemsResponse struct {
	Items        []media.ResolvedItem `json:"items"`
	CurrentIndex int                  `json:"currentIndex"`
}

// AddItemsRequest is the body of POST /api/v1/items. At defaults to the end
// of the queue.
type AddItemsRequest struct {
	Items   []media.Descriptor `json:"items"`
	At      *int               `json:"at,omitempty"`
	Replace bool               `json:"replace,omitempty"`
}

// SetCurrentRequest is the body of PUT /api/v1/items/current. Selector is
// "next", "previous", "first", "last", an index or an item id.
type SetCurrentRequest struct {
	Selector string `json:"selector"`
	Autoplay bool   `json:"autoplay,omitempty"`
}

// CommandRequest is the body of POST /api/v1/commands/{name}. Each command
// reads the fields it needs.
type CommandRequest struct {
	ToZero   bool    `json:"toZero,omitempty"`
	Position float64 `json:"position,omitempty"`
	Relative bool    `json:"relative,omitempty"`
	Level    float64 `json:"level,omitempty"`
	Fade     string  `json:"fade,omitempty"`
	Key      string  `json:"key,omitempty"`
}

// CuepointCreated is the body answering POST /api/v1/cuepoints.
type CuepointCreated struct {
	ID string `json:"id"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, http.StatusOK, func() (any, error) {
		lc, _ := s.eng.State()
		buf, _ := s.eng.BufferState()
		seek, _ := s.eng.SeekState()
		resp := StateResponse{
			Lifecycle:    string(lc),
			Buffer:       string(buf),
			Seek:         string(seek),
			Position:     s.eng.Position(),
			Duration:     s.eng.Duration(),
			Volume:       s.eng.Volume(),
			Quality:      s.eng.Quality(),
			CurrentIndex: s.eng.CurrentIndex(),
			Generation:   s.eng.Generation(),
		}
		if it, err := s.eng.Item(playlist.Current); err == nil {
			resp.Current = &it
		}
		return resp, nil
	})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	s.call(w, r, http.StatusOK, func() (any, error) {
		items := s.eng.Items()
		if items == nil {
			items = []media.ResolvedItem{}
		}
		return ItemsResponse{Items: items, CurrentIndex: s.eng.CurrentIndex()}, nil
	})
}

func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	var req AddItemsRequest
	if err := s.decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, fmt.Errorf("%w: items must not be empty", errBadRequest))
		return
	}
	at := -1
	if req.At != nil {
		at = *req.At
	}
	s.call(w, r, http.StatusCreated, func() (any, error) {
		return s.eng.AddItems(r.Context(), req.Items, at, req.Replace)
	})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.call(w, r, http.StatusOK, func() (any, error) {
		return s.eng.RemoveItemByID(id)
	})
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	var req SetCurrentRequest
	if err := s.decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	sel := playlist.ParseSelector(req.Selector)
	s.call(w, r, http.StatusOK, func() (any, error) {
		if err := s.eng.SetActiveItem(sel, req.Autoplay); err != nil {
			return nil, err
		}
		return ItemsResponse{Items: s.eng.Items(), CurrentIndex: s.eng.CurrentIndex()}, nil
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := s.decode(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")

	var fade time.Duration
	if req.Fade != "" {
		d, err := time.ParseDuration(req.Fade)
		if err != nil || d < 0 {
			writeError(w, r, fmt.Errorf("%w: fade %q is not a duration", errBadRequest, req.Fade))
			return
		}
		fade = d
	}
	if math.IsNaN(req.Position) || math.IsInf(req.Position, 0) || math.IsNaN(req.Level) {
		writeError(w, r, fmt.Errorf("%w: position and level must be finite", errBadRequest))
		return
	}

	var run func() error
	switch name {
	case "play":
		run = s.eng.Play
	case "pause":
		run = s.eng.Pause
	case "stop":
		run = func() error { return s.eng.Stop(req.ToZero) }
	case "seek":
		run = func() error { return s.eng.Seek(req.Position, req.Relative) }
	case "volume":
		run = func() error { return s.eng.SetVolume(req.Level, req.Relative, fade) }
	case "quality":
		run = func() error { return s.eng.SetQuality(req.Key) }
	default:
		writeError(w, r, fmt.Errorf("%w: unknown command %q", errBadRequest, name))
		return
	}

	s.call(w, r, http.StatusAccepted, func() (any, error) {
		if err := run(); err != nil {
			return nil, err
		}
		lc, _ := s.eng.State()
		return map[string]string{"command": name, "lifecycle": string(lc)}, nil
	})
}

func (s *Server) handleListCuepoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID := q.Get("item")
	wildcard, _ := strconv.ParseBool(q.Get("wildcard"))
	var groups []string
	if g := q.Get("group"); g != "" {
		groups = strings.Split(g, ",")
	}
	s.call(w, r, http.StatusOK, func() (any, error) {
		out := s.eng.CuePoints(itemID, wildcard, groups...)
		if out == nil {
			out = []events.Cuepoint{}
		}
		return out, nil
	})
}

func (s *Server) handleAddCuepoint(w http.ResponseWriter, r *http.Request) {
	var d cuepoint.Descriptor
	if err := s.decode(w, r, &d, false); err != nil {
		writeError(w, r, err)
		return
	}
	s.call(w, r, http.StatusCreated, func() (any, error) {
		id, err := s.eng.SetCuePoint(d)
		if err != nil {
			return nil, err
		}
		return CuepointCreated{ID: id}, nil
	})
}

func (s *Server) handleRemoveCuepoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	itemID := r.URL.Query().Get("item")
	s.call(w, r, http.StatusNoContent, func() (any, error) {
		if !s.eng.RemoveCuePoint(id, itemID) {
			return nil, fmt.Errorf("cuepoint %q: %w", id, errNotFound)
		}
		return nil, nil
	})
}

// decode reads a JSON body strictly. With optional set an empty body is
// accepted and leaves dst untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}
