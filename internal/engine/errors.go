package engine

import "errors"

var (
	// ErrNoRoommates means a chore could not be resolved because the
	// roommate list is empty. The orchestrator downgrades it to a
	// per-chore warning; it never aborts a run.
	ErrNoRoommates = errors.New("no roommates to assign")

	// ErrInvalidState means persisted state or the catalog disagrees
	// with itself: a rotation cursor pointing at a deleted chore, or a
	// chore with an unrecognized policy. Runs log it and skip the
	// offending chore rather than abort.
	ErrInvalidState = errors.New("invalid assignment state")

	// ErrConflict means a run lost the write race twice: once on the
	// initial attempt and again on the retry. The caller may try again.
	ErrConflict = errors.New("assignment state changed during run")

	// ErrBusy means the write lock could not be acquired before the
	// caller's context expired.
	ErrBusy = errors.New("engine busy")
)
