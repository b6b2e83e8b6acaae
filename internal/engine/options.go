package engine

import (
	"log/slog"
	"math/rand/v2"
)

// Option configures an Engine.
type Option func(*Engine)

// WithCycleDays sets the accounting window length in days. Values <= 0
// fall back to DefaultCycleDays.
func WithCycleDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.cycleDays = days
		}
	}
}

// WithRand sets the random source used by weighted draws. Tests pass a
// seeded source to make runs reproducible.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) {
		e.rnd = rnd
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}
