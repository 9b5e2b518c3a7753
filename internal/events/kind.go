// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package events

import "github.com/ManuGH/playcore/internal/media"

// Kind is the closed set of events the engine promotes.
type Kind string

const (
	KindReady            Kind = "ready"
	KindItem             Kind = "item"
	KindScheduleModified Kind = "scheduleModified"
	KindState            Kind = "state"
	KindBuffer           Kind = "buffer"
	KindSeek             Kind = "seek"
	KindTime             Kind = "time"
	KindProgress         Kind = "progress"
	KindVolume           Kind = "volume"
	KindQualityChange    Kind = "qualityChange"
	KindDurationChange   Kind = "durationChange"
	KindError            Kind = "error"
	KindDone             Kind = "done"
	KindCuepointAdded    Kind = "cuepointAdded"
	KindCuepointRemoved  Kind = "cuepointRemoved"
	KindCuepointUnlock   Kind = "cuepointUnlock"
	KindCuepoint         Kind = "cuepoint"
)

var allKinds = []Kind{
	KindReady, KindItem, KindScheduleModified, KindState, KindBuffer, KindSeek,
	KindTime, KindProgress, KindVolume, KindQualityChange, KindDurationChange,
	KindError, KindDone, KindCuepointAdded, KindCuepointRemoved,
	KindCuepointUnlock, KindCuepoint,
}

// Kinds returns every event kind.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Event is one promoted notification. Seq increases by one per promotion.
type Event struct {
	Kind    Kind   `json:"kind"`
	Seq     uint64 `json:"seq"`
	ItemID  string `json:"itemId,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Payloads. Handlers type-switch on Event.Payload.

// StateChange is carried by state, buffer and seek events.
type StateChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ItemChange is carried by item events.
type ItemChange struct {
	Index int                `json:"index"`
	Item  media.ResolvedItem `json:"item"`
}

// ScheduleChange is carried by scheduleModified events.
type ScheduleChange struct {
	Added               int   `json:"added"`
	Removed             int   `json:"removed"`
	Indexes             []int `json:"indexes"`
	CurrentItemAffected bool  `json:"currentItemAffected"`
}

// TimeUpdate is carried by time events.
type TimeUpdate struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// ProgressUpdate is carried by progress events; Loaded is in [0, 1].
type ProgressUpdate struct {
	Loaded float64 `json:"loaded"`
}

// VolumeChange is carried by volume events.
type VolumeChange struct {
	Level float64 `json:"level"`
}

// QualityChange is carried by qualityChange events.
type QualityChange struct {
	Key string `json:"key"`
}

// DurationChange is carried by durationChange events.
type DurationChange struct {
	Duration float64 `json:"duration"`
}

// Failure is carried by error events.
type Failure struct {
	Code    media.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Cuepoint is carried by the cuepoint* events. On cuepoint events Active is
// true for ON and false for OFF.
type Cuepoint struct {
	ID       string  `json:"id"`
	Group    string  `json:"group,omitempty"`
	ItemID   string  `json:"itemId"`
	On       float64 `json:"on"`
	Off      float64 `json:"off"`
	Once     bool    `json:"once,omitempty"`
	Active   bool    `json:"active"`
	Unlocked bool    `json:"unlocked"`
}
