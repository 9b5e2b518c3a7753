// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"strconv"
	"strings"
)

type selectorKind int

const (
	selCurrent selectorKind = iota
	selIndex
	selNext
	selPrevious
	selFirst
	selLast
	selID
)

// Selector addresses an item relative to the queue.
type Selector struct {
	kind  selectorKind
	index int
	id    string
}

var (
	Current  = Selector{kind: selCurrent}
	Next     = Selector{kind: selNext}
	Previous = Selector{kind: selPrevious}
	First    = Selector{kind: selFirst}
	Last     = Selector{kind: selLast}
)

// At selects an absolute index.
func At(i int) Selector { return Selector{kind: selIndex, index: i} }

// ByID selects the item with id.
func ByID(id string) Selector { return Selector{kind: selID, id: id} }

// ParseSelector reads "current", "next", "previous", "first", "last", an
// index, or anything else as an item id.
func ParseSelector(s string) Selector {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current":
		return Current
	case "next":
		return Next
	case "previous", "prev":
		return Previous
	case "first":
		return First
	case "last":
		return Last
	}
	if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return At(i)
	}
	return ByID(s)
}

func (s Selector) String() string {
	switch s.kind {
	case selIndex:
		return strconv.Itoa(s.index)
	case selNext:
		return "next"
	case selPrevious:
		return "previous"
	case selFirst:
		return "first"
	case selLast:
		return "last"
	case selID:
		return s.id
	default:
		return "current"
	}
}

// Resolve turns s into an index. Next and Previous do not wrap.
func (q *Queue) Resolve(s Selector) (int, bool) {
	var i int
	switch s.kind {
	case selCurrent:
		i = q.current
	case selIndex:
		i = s.index
	case selNext:
		i = q.current + 1
	case selPrevious:
		if q.current < 0 {
			return -1, false
		}
		i = q.current - 1
	case selFirst:
		i = 0
	case selLast:
		i = len(q.items) - 1
	case selID:
		i = q.Index(s.id)
	}
	if i < 0 || i >= len(q.items) {
		return -1, false
	}
	return i, true
}
