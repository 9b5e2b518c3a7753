// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cmdqueue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/metrics"
)

type recorder struct {
	calls []string
	fail  map[string]error
}

func (r *recorder) dispatch(_ context.Context, name string, value any) error {
	r.calls = append(r.calls, fmt.Sprintf("%s:%v", name, value))
	return r.fail[name]
}

func newQueue(opts ...Option) (*Queue, *loop.Manual, *recorder) {
	exec := loop.NewManual(time.Unix(0, 0))
	rec := &recorder{}
	return New(exec, rec.dispatch, opts...), exec, rec
}

func TestQueue_DeliveryIsAsynchronous(t *testing.T) {
	q, exec, rec := newQueue()
	q.Enqueue(Command{Name: "play"})
	assert.Empty(t, rec.calls)
	assert.Equal(t, 1, q.Len())

	exec.RunPending()
	assert.Equal(t, []string{"play:<nil>"}, rec.calls)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ReentrantEnqueueAppendsAfterExisting(t *testing.T) {
	q, exec, _ := newQueue()
	var order []string
	q.Do(func() {
		order = append(order, "A")
		q.Do(func() { order = append(order, "D") })
	})
	q.Do(func() { order = append(order, "B") })
	q.Do(func() { order = append(order, "C") })

	exec.RunPending()
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
}

func TestQueue_PrimitivesAndThunksKeepSubmissionOrder(t *testing.T) {
	q, exec, rec := newQueue()
	var order []string
	q.Enqueue(Command{Name: "play"})
	q.Do(func() { order = append(order, fmt.Sprint(len(rec.calls))) })
	q.Enqueue(Command{Name: "seek", Value: 10.0})

	exec.RunPending()
	assert.Equal(t, []string{"play:<nil>", "seek:10"}, rec.calls)
	assert.Equal(t, []string{"1"}, order, "thunk ran between the two primitives")
}

func TestQueue_FailuresDoNotStopDrain(t *testing.T) {
	q, exec, rec := newQueue()
	rec.fail = map[string]error{"pause": errors.New("boom")}
	before := metrics.CounterValue(metrics.HandlerFailuresTotal, "thunk")

	ran := false
	q.Enqueue(Command{Name: "pause"})
	q.Do(func() { panic("handler exploded") })
	q.Do(func() { ran = true })
	q.Enqueue(Command{Name: "play"})

	exec.RunPending()
	assert.True(t, ran)
	assert.Equal(t, []string{"pause:<nil>", "play:<nil>"}, rec.calls)
	assert.Equal(t, before+1, metrics.CounterValue(metrics.HandlerFailuresTotal, "thunk"))
}

func TestQueue_DelayedDoesNotBlockLaterEntries(t *testing.T) {
	q, exec, rec := newQueue()
	q.Enqueue(Command{Name: "volume", Value: 0.5, Delay: 100 * time.Millisecond})
	q.Enqueue(Command{Name: "play"})

	exec.RunPending()
	assert.Equal(t, []string{"play:<nil>"}, rec.calls)
	assert.Equal(t, 1, q.Delayed())

	exec.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"play:<nil>", "volume:0.5"}, rec.calls)
	assert.Equal(t, 0, q.Delayed())
}

func TestQueue_FadeDispatchesInOrder(t *testing.T) {
	q, exec, rec := newQueue()
	for i := 1; i <= 4; i++ {
		q.Enqueue(Command{Name: "volume", Value: float64(i) / 4, Delay: time.Duration(i) * 50 * time.Millisecond})
	}
	exec.Advance(time.Second)
	assert.Equal(t, []string{"volume:0.25", "volume:0.5", "volume:0.75", "volume:1"}, rec.calls)
}

func TestQueue_GateHoldsPrimitivesAndBlocksThunksBehind(t *testing.T) {
	open := false
	q, exec, rec := newQueue(WithGate(func() bool { return open }))
	var order []string
	q.Do(func() { order = append(order, "before") })
	q.Enqueue(Command{Name: "play"})
	q.Do(func() { order = append(order, "after") })

	exec.RunPending()
	assert.Equal(t, []string{"before"}, order)
	assert.Empty(t, rec.calls)
	assert.True(t, q.Held())

	open = true
	q.Kick()
	exec.RunPending()
	assert.Equal(t, []string{"play:<nil>"}, rec.calls)
	assert.Equal(t, []string{"before", "after"}, order)
	assert.False(t, q.Held())
}

func TestQueue_FlushDropsPrimitivesKeepsThunks(t *testing.T) {
	open := false
	q, exec, rec := newQueue(WithGate(func() bool { return open }))
	var order []string
	q.Enqueue(Command{Name: "play"})
	q.Do(func() { order = append(order, "event") })
	q.Enqueue(Command{Name: "seek", Value: 3.0})
	q.Enqueue(Command{Name: "volume", Value: 0.1, Delay: time.Second})
	exec.RunPending()
	require.Equal(t, 4, q.Len())

	before := metrics.CounterValue(metrics.CommandsTotal, "play", "flushed")
	q.Flush()
	exec.RunPending()
	assert.Equal(t, []string{"event"}, order)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, before+1, metrics.CounterValue(metrics.CommandsTotal, "play", "flushed"))

	open = true
	exec.Advance(2 * time.Second)
	assert.Empty(t, rec.calls)
}

func TestQueue_FlushCancelsInFlightDelayed(t *testing.T) {
	q, exec, rec := newQueue()
	q.Enqueue(Command{Name: "volume", Value: 0.2, Delay: 50 * time.Millisecond})
	q.Enqueue(Command{Name: "volume", Value: 0.4, Delay: 100 * time.Millisecond})
	exec.RunPending()
	exec.Advance(60 * time.Millisecond)
	require.Equal(t, []string{"volume:0.2"}, rec.calls)

	q.Flush()
	assert.Equal(t, 0, q.Delayed())
	exec.Advance(time.Second)
	assert.Equal(t, []string{"volume:0.2"}, rec.calls)
	assert.Equal(t, 0, exec.PendingTimers())
}

func TestQueue_FlushFromThunkDuringDrain(t *testing.T) {
	q, exec, rec := newQueue()
	ran := false
	q.Do(func() { q.Flush() })
	q.Enqueue(Command{Name: "play"})
	q.Do(func() { ran = true })

	exec.RunPending()
	assert.Empty(t, rec.calls)
	assert.True(t, ran)
}

func TestQueue_IgnoresNamelessPrimitive(t *testing.T) {
	q, exec, rec := newQueue()
	q.Enqueue(Command{})
	q.Do(nil)
	exec.RunPending()
	assert.Empty(t, rec.calls)
	assert.Equal(t, 0, q.Len())
}
