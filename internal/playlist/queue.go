// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playlist holds the ordered queue of resolved items and the current
// item index. It is not safe for concurrent use; the engine confines it to
// its executor.
package playlist

import (
	"strconv"

	"github.com/ManuGH/playcore/internal/media"
)

// Result reports what an Add or Remove changed.
type Result struct {
	Added   int   `json:"added"`
	Removed int   `json:"removed"`
	Indexes []int `json:"indexes"`
	// CurrentItemAffected is set when the current item was replaced or
	// removed. Index shifts alone do not count.
	CurrentItemAffected bool `json:"currentItemAffected"`
}

// Queue is an ordered list of resolved items with an optional current item.
type Queue struct {
	items   []media.ResolvedItem
	current int
}

// New returns an empty queue with no current item.
func New() *Queue {
	return &Queue{current: -1}
}

func (q *Queue) Len() int { return len(q.items) }

// Items returns a copy of the queue.
func (q *Queue) Items() []media.ResolvedItem {
	out := make([]media.ResolvedItem, len(q.items))
	for i, it := range q.items {
		out[i] = it.Clone()
	}
	return out
}

// Get returns the item at index i.
func (q *Queue) Get(i int) (media.ResolvedItem, bool) {
	if i < 0 || i >= len(q.items) {
		return media.ResolvedItem{}, false
	}
	return q.items[i].Clone(), true
}

// Index returns the position of the item with id, or -1.
func (q *Queue) Index(id string) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// CurrentIndex returns the current position, or -1.
func (q *Queue) CurrentIndex() int { return q.current }

// Current returns the current item.
func (q *Queue) Current() (media.ResolvedItem, bool) {
	return q.Get(q.current)
}

// SetCurrent moves the current position. -1 clears it.
func (q *Queue) SetCurrent(i int) bool {
	if i < -1 || i >= len(q.items) {
		return false
	}
	q.current = i
	return true
}

// Update replaces the item at i in place, keeping its id.
func (q *Queue) Update(i int, fn func(*media.ResolvedItem)) bool {
	if i < 0 || i >= len(q.items) {
		return false
	}
	id := q.items[i].ID
	fn(&q.items[i])
	q.items[i].ID = id
	return true
}

// Add inserts items at position at (negative or past the end appends). With
// replace set the single item at at is replaced by items.
func (q *Queue) Add(items []media.ResolvedItem, at int, replace bool) Result {
	if at < 0 || at > len(q.items) {
		at = len(q.items)
	}
	replace = replace && at < len(q.items)

	var res Result
	if replace {
		res.Removed = 1
		res.CurrentItemAffected = at == q.current
		q.items = append(q.items[:at:at], q.items[at+1:]...)
	}

	added := make([]media.ResolvedItem, 0, len(items))
	for _, it := range items {
		it = it.Clone()
		it.ID = q.uniqueID(it.ID, added)
		added = append(added, it)
	}

	next := make([]media.ResolvedItem, 0, len(q.items)+len(added))
	next = append(next, q.items[:at]...)
	next = append(next, added...)
	next = append(next, q.items[at:]...)
	q.items = next

	for i := range added {
		res.Indexes = append(res.Indexes, at+i)
	}
	res.Added = len(added)

	switch {
	case q.current < 0:
	case replace && res.CurrentItemAffected:
		if len(added) == 0 {
			q.current = clampIndex(at, len(q.items))
		}
	case q.current >= at:
		q.current += len(added)
		if replace {
			q.current--
		}
	}
	return res
}

// Remove deletes every item pred matches. Indexes are the positions before
// removal. When the current item goes, the item now at its position becomes
// current, or none when the queue ran out.
func (q *Queue) Remove(pred func(media.ResolvedItem) bool) Result {
	var res Result
	kept := q.items[:0]
	shift := 0
	newCurrent := q.current
	for i, it := range q.items {
		if !pred(it) {
			kept = append(kept, it)
			continue
		}
		res.Indexes = append(res.Indexes, i)
		res.Removed++
		switch {
		case i == q.current:
			res.CurrentItemAffected = true
		case i < q.current:
			shift++
		}
	}
	clear(q.items[len(kept):])
	q.items = kept

	if q.current >= 0 {
		newCurrent = q.current - shift
		if res.CurrentItemAffected {
			newCurrent = clampIndex(newCurrent, len(q.items))
		}
		q.current = newCurrent
	}
	return res
}

// uniqueID returns id, or id-2, id-3 ... when it is already taken by a
// queued item or by pending.
func (q *Queue) uniqueID(id string, pending []media.ResolvedItem) string {
	taken := func(c string) bool {
		if q.Index(c) >= 0 {
			return true
		}
		for _, p := range pending {
			if p.ID == c {
				return true
			}
		}
		return false
	}
	if !taken(id) {
		return id
	}
	for n := 2; ; n++ {
		c := id + "-" + strconv.Itoa(n)
		if !taken(c) {
			return c
		}
	}
}

func clampIndex(i, n int) int {
	if n == 0 {
		return -1
	}
	return max(0, min(i, n-1))
}
