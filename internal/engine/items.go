// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/playlist"
)

// AddItems resolves descriptors and inserts them at position at (negative
// appends). With replace set the item at at is replaced. The first item
// added to an empty queue becomes current; a replaced current item is
// re-activated and keeps playing if it was.
func (e *Engine) AddItems(ctx context.Context, descriptors []media.Descriptor, at int, replace bool) (playlist.Result, error) {
	if err := e.check(); err != nil {
		return playlist.Result{}, err
	}
	if len(descriptors) == 0 {
		return playlist.Result{}, nil
	}
	resolved := lo.Map(descriptors, func(d media.Descriptor, _ int) media.ResolvedItem {
		return e.res.Resolve(ctx, d)
	})

	var replacedID string
	if replace {
		if old, ok := e.items.Get(at); ok {
			replacedID = old.ID
		}
	}
	hadCurrent := e.items.CurrentIndex() >= 0
	wasActive := e.state != nil && e.state.Active()

	if replacedID != "" && replacedID == e.currentID() {
		e.teardown()
	}
	res := e.items.Add(resolved, at, replace)
	if replacedID != "" && e.items.Index(replacedID) < 0 {
		e.cues.RemoveItem(replacedID)
	}
	e.scheduleModified(res)

	switch {
	case res.CurrentItemAffected:
		return res, e.activate(e.items.CurrentIndex(), wasActive)
	case !hadCurrent:
		return res, e.activate(0, false)
	}
	return res, nil
}

// RemoveItems removes every item pred matches together with its cuepoints.
// When the current item goes, the item taking its place becomes current.
func (e *Engine) RemoveItems(pred func(media.ResolvedItem) bool) (playlist.Result, error) {
	if err := e.check(); err != nil {
		return playlist.Result{}, err
	}
	removed := lo.FilterMap(e.items.Items(), func(it media.ResolvedItem, _ int) (string, bool) {
		return it.ID, pred(it)
	})
	if len(removed) == 0 {
		return playlist.Result{}, nil
	}
	wasActive := e.state != nil && e.state.Active()
	if lo.Contains(removed, e.currentID()) {
		e.teardown()
	}
	res := e.items.Remove(pred)
	for _, id := range removed {
		e.cues.RemoveItem(id)
	}
	e.scheduleModified(res)

	if !res.CurrentItemAffected {
		return res, nil
	}
	if i := e.items.CurrentIndex(); i >= 0 {
		return res, e.activate(i, wasActive)
	}
	e.bus.Promote(events.KindItem, "", events.ItemChange{Index: -1})
	return res, nil
}

// RemoveItemByID is RemoveItems for a single id.
func (e *Engine) RemoveItemByID(id string) (playlist.Result, error) {
	if e.items.Index(id) < 0 {
		return playlist.Result{}, fmt.Errorf("%w: %q", ErrNoItem, id)
	}
	return e.RemoveItems(func(it media.ResolvedItem) bool { return it.ID == id })
}

func (e *Engine) scheduleModified(res playlist.Result) {
	metrics.SetQueueItems(e.items.Len())
	e.logger.Debug().
		Str(log.FieldEvent, "engine.schedule_modified").
		Int("added", res.Added).
		Int("removed", res.Removed).
		Bool("current_affected", res.CurrentItemAffected).
		Int("items", e.items.Len()).
		Msg("queue changed")
	e.bus.Promote(events.KindScheduleModified, e.currentID(), events.ScheduleChange{
		Added:               res.Added,
		Removed:             res.Removed,
		Indexes:             res.Indexes,
		CurrentItemAffected: res.CurrentItemAffected,
	})
}

// SetActiveItem makes the selected item current, tearing down the previous
// one, and plays it when autoplay is set.
func (e *Engine) SetActiveItem(sel playlist.Selector, autoplay bool) error {
	if err := e.check(); err != nil {
		return err
	}
	i, ok := e.items.Resolve(sel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoItem, sel)
	}
	return e.activate(i, autoplay)
}

// Item returns the selected item.
func (e *Engine) Item(sel playlist.Selector) (media.ResolvedItem, error) {
	i, ok := e.items.Resolve(sel)
	if !ok {
		return media.ResolvedItem{}, fmt.Errorf("%w: %s", ErrNoItem, sel)
	}
	it, _ := e.items.Get(i)
	return it, nil
}

// Items returns a copy of the queue.
func (e *Engine) Items() []media.ResolvedItem { return e.items.Items() }

// CurrentIndex returns the index of the current item, or -1.
func (e *Engine) CurrentIndex() int { return e.items.CurrentIndex() }
