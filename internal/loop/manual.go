// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package loop

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ManuGH/playcore/internal/log"
)

// Manual is a deterministic Executor with a virtual clock. Nothing runs until
// RunPending or Advance is called, which makes it the executor of choice for
// tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	pending []func()
	timers  timerHeap
	seq     uint64
}

// NewManual returns a manual executor whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Post implements Executor.
func (m *Manual) Post(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// AfterFunc implements Executor.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, fn: fn, index: -1}
	heap.Push(&m.timers, t)
	return t
}

// Now implements Executor.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// RunPending runs posted functions, including those they post, until none
// are left. It returns the number of functions run.
func (m *Manual) RunPending() int {
	logger := log.WithComponent("loop")
	n := 0
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		runIsolated(logger, fn)
		n++
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and draining posted work after each one.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			m.RunPending()
			return
		}
		t := heap.Pop(&m.timers).(*manualTimer)
		if t.at.After(m.now) {
			m.now = t.at
		}
		t.fired = true
		fn := t.fn
		m.mu.Unlock()

		m.Post(fn)
		m.RunPending()
	}
}

// PendingTimers returns the number of scheduled timers that have not fired.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type manualTimer struct {
	m     *Manual
	at    time.Time
	seq   uint64
	fn    func()
	index int
	fired bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&t.m.timers, t.index)
	return true
}

type timerHeap []*manualTimer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
