// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package backend defines the contract between the engine and the adapters
// that actually decode or render media.
package backend

import (
	"context"
	"errors"

	"github.com/ManuGH/playcore/internal/media"
)

// Primitive command names accepted by ApplyCommand.
const (
	CmdPlay    = "play"
	CmdPause   = "pause"
	CmdStop    = "stop"
	CmdSeek    = "seek"    // value: float64 absolute position in seconds
	CmdVolume  = "volume"  // value: float64 in [0, 1]
	CmdQuality = "quality" // value: string quality key
)

// ErrUnknownCommand is returned for command names an adapter does not handle.
var ErrUnknownCommand = errors.New("unknown backend command")

// State is what an adapter reports about itself.
type State string

const (
	StateIdle    State = "idle"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateSeeked  State = "seeked"
	StateStopped State = "stopped"
)

// InitParams carries everything an adapter needs to bind to a resolved item.
type InitParams struct {
	Item     media.ResolvedItem
	File     media.File
	Platform string
	Volume   float64
	Quality  string
	Start    float64
}

// Signals is the callback surface adapters report into. Implementations
// handed out by the engine are safe to call from any goroutine.
type Signals interface {
	Time(position float64)
	Progress(loaded float64)
	State(s State)
	Buffer(full bool)
	Error(code media.ErrorCode)
	QualityChange(key string)
}

// Backend drives playback of one resolved item. The engine calls every method
// from its executor.
type Backend interface {
	// Init starts binding to the item. Readiness is reported asynchronously
	// through Signals.State(StateReady).
	Init(ctx context.Context, params InitParams, signals Signals) error
	ApplyCommand(ctx context.Context, name string, value any) error
	State() State
	Position() float64
	Duration() float64
	Destroy() error
}

// NopSignals discards every signal.
type NopSignals struct{}

func (NopSignals) Time(float64) {}
func (NopSignals) Progress(float64) {}
func (NopSignals) State(State) {}
func (NopSignals) Buffer(bool) {}
func (NopSignals) Error(media.ErrorCode) {}
func (NopSignals) QualityChange(string) {}
