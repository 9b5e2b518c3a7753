// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cuepoint fires time-window triggers against the playback position.
package cuepoint

import (
	"errors"
	"fmt"
	"math"

	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/loop"
)

// WildcardItem binds a cuepoint to every item.
const WildcardItem = "*"

// DefaultPrecision is the number of decimal digits positions are rounded to.
const DefaultPrecision = 1

// MaxPrecision caps the configurable precision.
const MaxPrecision = 3

// ErrInvalidWindow is returned for cuepoints with a negative or inverted window.
var ErrInvalidWindow = errors.New("invalid cuepoint window")

// Callback runs on the engine executor when a cuepoint turns ON or OFF.
type Callback func(events.Cuepoint)

// Descriptor describes a cuepoint to register.
//
// The window is [On, Off). Off == On makes a momentary pulse; Off == 0 with
// On > 0 is read as a pulse as well. ItemID "" means the current item and "*"
// every item. Precision is in decimal digits, 0 selects the scheduler
// default.
type Descriptor struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Group     string   `json:"group,omitempty" yaml:"group,omitempty"`
	ItemID    string   `json:"itemId,omitempty" yaml:"item_id,omitempty"`
	On        float64  `json:"on" yaml:"on"`
	Off       float64  `json:"off" yaml:"off"`
	Precision int      `json:"precision,omitempty" yaml:"precision,omitempty"`
	Once      bool     `json:"once,omitempty" yaml:"once,omitempty"`
	Callback  Callback `json:"-" yaml:"-"`
}

func (d Descriptor) validate() error {
	if d.On < 0 || math.IsNaN(d.On) || math.IsNaN(d.Off) {
		return fmt.Errorf("%w: on=%v off=%v", ErrInvalidWindow, d.On, d.Off)
	}
	if d.Off != 0 && d.Off < d.On {
		return fmt.Errorf("%w: off %v before on %v", ErrInvalidWindow, d.Off, d.On)
	}
	return nil
}

// point is a registered cuepoint plus its runtime state.
type point struct {
	id        string
	group     string
	itemID    string
	on, off   float64
	precision int
	once      bool
	callback  Callback

	unlocked bool
	active   bool
	hasLast  bool
	last     float64
	pulse    loop.Timer
}

func (p *point) degenerate() bool { return p.on == p.off }

func (p *point) unit() float64 { return math.Pow(10, -float64(p.precision)) }

func (p *point) round(v float64) float64 {
	scale := math.Pow(10, float64(p.precision))
	return math.Round(v*scale) / scale
}

func (p *point) contains(t float64) bool {
	return t >= p.on && t < p.off
}

func (p *point) reset() {
	if p.pulse != nil {
		p.pulse.Stop()
		p.pulse = nil
	}
	p.unlocked = false
	p.active = false
	p.hasLast = false
	p.last = 0
}

func (p *point) view() events.Cuepoint {
	return events.Cuepoint{
		ID:       p.id,
		Group:    p.group,
		ItemID:   p.itemID,
		On:       p.on,
		Off:      p.off,
		Once:     p.once,
		Active:   p.active,
		Unlocked: p.unlocked,
	}
}
