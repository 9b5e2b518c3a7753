// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/media"
)

func items(ids ...string) []media.ResolvedItem {
	out := make([]media.ResolvedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, media.ResolvedItem{ID: id})
	}
	return out
}

func ids(q *Queue) []string {
	out := make([]string, 0, q.Len())
	for _, it := range q.Items() {
		out = append(out, it.ID)
	}
	return out
}

func TestQueue_Add(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		add         []string
		at          int
		replace     bool
		want        []string
		wantResult  Result
		wantCurrent int
	}{
		{
			name: "append", current: 0, add: []string{"d"}, at: -1,
			want:        []string{"a", "b", "c", "d"},
			wantResult:  Result{Added: 1, Indexes: []int{3}},
			wantCurrent: 0,
		},
		{
			name: "insert before current shifts it", current: 1, add: []string{"x", "y"}, at: 0,
			want:        []string{"x", "y", "a", "b", "c"},
			wantResult:  Result{Added: 2, Indexes: []int{0, 1}},
			wantCurrent: 3,
		},
		{
			name: "insert after current", current: 1, add: []string{"x"}, at: 2,
			want:        []string{"a", "b", "x", "c"},
			wantResult:  Result{Added: 1, Indexes: []int{2}},
			wantCurrent: 1,
		},
		{
			name: "replace current", current: 1, add: []string{"x", "y"}, at: 1, replace: true,
			want:        []string{"a", "x", "y", "c"},
			wantResult:  Result{Added: 2, Removed: 1, Indexes: []int{1, 2}, CurrentItemAffected: true},
			wantCurrent: 1,
		},
		{
			name: "replace before current", current: 2, add: []string{"x", "y"}, at: 0, replace: true,
			want:        []string{"x", "y", "b", "c"},
			wantResult:  Result{Added: 2, Removed: 1, Indexes: []int{0, 1}},
			wantCurrent: 3,
		},
		{
			name: "replace past the end appends", current: -1, add: []string{"x"}, at: 9, replace: true,
			want:        []string{"a", "b", "c", "x"},
			wantResult:  Result{Added: 1, Indexes: []int{3}},
			wantCurrent: -1,
		},
		{
			name: "duplicate ids get suffixes", current: 0, add: []string{"a", "a", "b"}, at: -1,
			want:        []string{"a", "b", "c", "a-2", "a-3", "b-2"},
			wantResult:  Result{Added: 3, Indexes: []int{3, 4, 5}},
			wantCurrent: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.Add(items("a", "b", "c"), -1, false)
			require.True(t, q.SetCurrent(tt.current))

			res := q.Add(items(tt.add...), tt.at, tt.replace)
			assert.Equal(t, tt.wantResult, res)
			assert.Equal(t, tt.want, ids(q))
			assert.Equal(t, tt.wantCurrent, q.CurrentIndex())
		})
	}
}

func TestQueue_Remove(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		remove      []string
		want        []string
		wantResult  Result
		wantCurrent int
	}{
		{
			name: "before current", current: 2, remove: []string{"a"},
			want:        []string{"b", "c", "d"},
			wantResult:  Result{Removed: 1, Indexes: []int{0}},
			wantCurrent: 1,
		},
		{
			name: "current takes the next item", current: 1, remove: []string{"b"},
			want:        []string{"a", "c", "d"},
			wantResult:  Result{Removed: 1, Indexes: []int{1}, CurrentItemAffected: true},
			wantCurrent: 1,
		},
		{
			name: "current at tail clamps", current: 3, remove: []string{"c", "d"},
			want:        []string{"a", "b"},
			wantResult:  Result{Removed: 2, Indexes: []int{2, 3}, CurrentItemAffected: true},
			wantCurrent: 1,
		},
		{
			name: "everything", current: 0, remove: []string{"a", "b", "c", "d"},
			want:        []string{},
			wantResult:  Result{Removed: 4, Indexes: []int{0, 1, 2, 3}, CurrentItemAffected: true},
			wantCurrent: -1,
		},
		{
			name: "nothing", current: 0, remove: []string{"z"},
			want:        []string{"a", "b", "c", "d"},
			wantResult:  Result{},
			wantCurrent: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.Add(items("a", "b", "c", "d"), -1, false)
			require.True(t, q.SetCurrent(tt.current))

			res := q.Remove(func(it media.ResolvedItem) bool {
				for _, id := range tt.remove {
					if it.ID == id {
						return true
					}
				}
				return false
			})
			assert.Equal(t, tt.wantResult, res)
			assert.Equal(t, tt.want, ids(q))
			assert.Equal(t, tt.wantCurrent, q.CurrentIndex())
		})
	}
}

func TestQueue_Resolve(t *testing.T) {
	q := New()
	q.Add(items("a", "b", "c"), -1, false)

	_, ok := q.Resolve(Current)
	assert.False(t, ok, "no current item yet")
	i, ok := q.Resolve(Next)
	require.True(t, ok)
	assert.Equal(t, 0, i, "next from nothing is the first item")
	_, ok = q.Resolve(Previous)
	assert.False(t, ok)

	require.True(t, q.SetCurrent(2))
	_, ok = q.Resolve(Next)
	assert.False(t, ok, "next does not wrap")
	i, _ = q.Resolve(Previous)
	assert.Equal(t, 1, i)
	i, _ = q.Resolve(First)
	assert.Equal(t, 0, i)
	i, _ = q.Resolve(Last)
	assert.Equal(t, 2, i)
	i, _ = q.Resolve(ByID("b"))
	assert.Equal(t, 1, i)
	_, ok = q.Resolve(At(7))
	assert.False(t, ok)
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in   string
		want Selector
	}{
		{"", Current},
		{"NEXT", Next},
		{"prev", Previous},
		{"first", First},
		{"last", Last},
		{"3", At(3)},
		{"-1", At(-1)},
		{"intro", ByID("intro")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSelector(tt.in), tt.in)
	}
	assert.Equal(t, "next", Next.String())
	assert.Equal(t, "intro", ByID("intro").String())
}

func TestQueue_UpdateKeepsID(t *testing.T) {
	q := New()
	q.Add(items("a"), -1, false)
	require.True(t, q.Update(0, func(it *media.ResolvedItem) {
		it.ViewCount++
		it.ID = "changed"
	}))
	it, ok := q.Get(0)
	require.True(t, ok)
	assert.Equal(t, "a", it.ID)
	assert.Equal(t, 1, it.ViewCount)
	assert.False(t, q.Update(5, func(*media.ResolvedItem) {}))
}
