// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package loop

import (
	"fmt"

	"github.com/rs/zerolog"
)

func runIsolated(logger zerolog.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("event", "loop.task_panic").
				Str("panic", fmt.Sprint(r)).
				Msg("posted task panicked")
		}
	}()
	fn()
}
