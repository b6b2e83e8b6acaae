// Package engine decides which roommate owes which chore. It combines
// two assignment policies against shared persisted state: fixed-rotation
// chores cycle deterministically through roommates, weighted-random
// chores draw probabilistically in favor of whoever has done the least
// this cycle. Point balances reset at cycle boundaries.
//
// Each run is atomic: the engine loads a snapshot, builds an entirely
// new assignment state, and persists it conditioned on the snapshot's
// version token. Writers serialize through an in-process semaphore;
// losing the cross-process token race retries the whole run once against
// fresh state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"

	"github.com/jwhitfield/fairshare/internal/metrics"
	"github.com/jwhitfield/fairshare/internal/model"
	"github.com/jwhitfield/fairshare/internal/store"
)

type Engine struct {
	roommates *store.RoommateStore
	chores    *store.ChoreStore
	state     *store.StateStore

	// sem serializes the load-mutate-persist sequence in-process.
	// Acquisition honors the caller's context, so a caller with a
	// deadline gets ErrBusy instead of queueing forever.
	sem       *semaphore.Weighted
	cycleDays int
	rnd       *rand.Rand
	logger    *slog.Logger
}

func New(roommates *store.RoommateStore, chores *store.ChoreStore, state *store.StateStore, opts ...Option) *Engine {
	e := &Engine{
		roommates: roommates,
		chores:    chores,
		state:     state,
		sem:       semaphore.NewWeighted(1),
		cycleDays: DefaultCycleDays,
		rnd:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is what a run hands back: the full new assignment set, the
// warnings for anything skipped, and the state token after the write.
type Result struct {
	RunID       string             `json:"run_id"`
	Assignments []model.Assignment `json:"assignments"`
	Warnings    []string           `json:"warnings"`
	Token       int64              `json:"token"`
}

// Run regenerates the complete assignment set as of now. The previous
// set and its sub-task completion state are discarded; this is a full
// replacement, not a delta. Chores that cannot be resolved are skipped
// and reported in Warnings, never as an error.
func (e *Engine) Run(ctx context.Context, now time.Time) (*Result, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		metrics.BusyTotal.Inc()
		return nil, ErrBusy
	}
	defer e.sem.Release(1)

	runID := uuid.NewString()
	result, err := e.withConflictRetry(ctx, runID, func() (*Result, error) {
		return e.attempt(now, runID)
	})
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RunsTotal.WithLabelValues("ok").Inc()
	metrics.AssignmentsWritten.Add(float64(len(result.Assignments)))
	e.logger.Info("assignment run complete",
		"run_id", runID,
		"assignments", len(result.Assignments),
		"warnings", len(result.Warnings),
		"token", result.Token,
	)
	return result, nil
}

// ResetCycle zeroes every roommate's balance, clears the assignment set,
// and pins the cycle start to the current window, regardless of whether
// a boundary was crossed. Rotation cursors survive: rotation position is
// convention, not effort accounting. Calling it twice in the same window
// is harmless.
func (e *Engine) ResetCycle(ctx context.Context, now time.Time) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		metrics.BusyTotal.Inc()
		return ErrBusy
	}
	defer e.sem.Release(1)

	runID := uuid.NewString()
	_, err := e.withConflictRetry(ctx, runID, func() (*Result, error) {
		st, err := e.state.Load()
		if err != nil {
			return nil, err
		}
		members, err := e.roommates.List()
		if err != nil {
			return nil, err
		}

		next := &model.State{
			CycleStart: windowStart(now, e.cycleDays),
			Cursors:    st.Cursors,
			Balances:   make(map[int64]int, len(members)),
		}
		for _, m := range members {
			next.Balances[m.ID] = 0
		}

		token, err := e.state.Persist(next, st.Token)
		if err != nil {
			return nil, err
		}
		return &Result{RunID: runID, Token: token}, nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("cycle reset", "run_id", runID, "cycle_start", windowStart(now, e.cycleDays))
	return nil
}

// withConflictRetry runs fn, retrying exactly once when the persist step
// loses the version-token race. A second loss surfaces as ErrConflict.
func (e *Engine) withConflictRetry(ctx context.Context, runID string, fn func() (*Result, error)) (*Result, error) {
	var result *Result
	backoff := retry.WithMaxRetries(1, retry.NewConstant(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := fn()
		if errors.Is(err, store.ErrConflict) {
			metrics.ConflictsTotal.Inc()
			e.logger.Warn("lost write race, retrying against fresh state", "run_id", runID)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// attempt performs one full run against one loaded snapshot.
func (e *Engine) attempt(now time.Time, runID string) (*Result, error) {
	st, err := e.state.Load()
	if err != nil {
		return nil, err
	}
	members, err := e.roommates.List()
	if err != nil {
		return nil, err
	}
	catalog, err := e.chores.List()
	if err != nil {
		return nil, err
	}

	var warnings []string

	// Cycle boundary check happens before any chore is resolved so the
	// weighted draws below see post-reset balances.
	cycleStart := st.CycleStart
	balances := make(map[int64]int, len(members))
	for _, m := range members {
		balances[m.ID] = st.Balances[m.ID]
	}
	switch {
	case cycleStart.IsZero():
		cycleStart = windowStart(now, e.cycleDays)
	case shouldReset(now, cycleStart, e.cycleDays):
		for id := range balances {
			balances[id] = 0
		}
		cycleStart = windowStart(now, e.cycleDays)
		e.logger.Info("new cycle detected, balances reset", "run_id", runID, "cycle_start", cycleStart)
	}

	known := make(map[int64]bool, len(catalog))
	for _, c := range catalog {
		known[c.ID] = true
	}

	next := &model.State{
		CycleStart: cycleStart,
		Balances:   balances,
	}

	// Cursors for chores that have since been deleted are dropped, not
	// fatal.
	for _, cur := range st.Cursors {
		if !known[cur.ChoreID] {
			e.logger.Warn("dropping stale rotation cursor", "run_id", runID, "chore_id", cur.ChoreID, "error", ErrInvalidState)
			warnings = append(warnings, fmt.Sprintf("dropped rotation cursor for deleted chore %d", cur.ChoreID))
		}
	}

	var rotation, weighted []model.Chore
	for _, c := range catalog {
		if !c.Policy.Valid() {
			e.logger.Warn("skipping malformed chore", "run_id", runID, "chore_id", c.ID, "policy", c.Policy, "error", ErrInvalidState)
			warnings = append(warnings, fmt.Sprintf("skipped chore %q: unknown policy %q", c.Name, c.Policy))
			continue
		}
		if c.Policy == model.PolicyRotation {
			rotation = append(rotation, c)
		} else {
			weighted = append(weighted, c)
		}
	}

	// Rotation chores first, in catalog order. A skipped chore keeps its
	// old cursor so the rotation does not lose its place.
	for _, c := range rotation {
		cursor := st.Cursor(c.ID)
		assignee, err := resolveRotation(members, cursor)
		if errors.Is(err, ErrNoRoommates) {
			warnings = append(warnings, fmt.Sprintf("skipped chore %q: no roommates", c.Name))
			if cursor != nil {
				next.Cursors = append(next.Cursors, *cursor)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		next.Assignments = append(next.Assignments, newAssignment(c, assignee, now))
		id := assignee
		next.Cursors = append(next.Cursors, model.RotationCursor{ChoreID: c.ID, LastRoommateID: &id})
	}

	// Weighted chores second, also in catalog order. Each assignment
	// bumps the winner's balance before the next draw; resolving in a
	// different order would change the probabilities.
	for _, c := range weighted {
		assignee, err := resolveWeighted(members, balances, e.rnd)
		if errors.Is(err, ErrNoRoommates) {
			warnings = append(warnings, fmt.Sprintf("skipped chore %q: no roommates", c.Name))
			continue
		}
		if err != nil {
			return nil, err
		}
		balances[assignee] += c.Points
		next.Assignments = append(next.Assignments, newAssignment(c, assignee, now))
	}

	token, err := e.state.Persist(next, st.Token)
	if err != nil {
		return nil, err
	}

	if warnings == nil {
		warnings = []string{}
	}
	return &Result{
		RunID:       runID,
		Assignments: next.Assignments,
		Warnings:    warnings,
		Token:       token,
	}, nil
}

func newAssignment(c model.Chore, roommateID int64, now time.Time) model.Assignment {
	a := model.Assignment{
		ChoreID:    c.ID,
		ChoreName:  c.Name,
		RoommateID: roommateID,
		Policy:     c.Policy,
		Points:     c.Points,
		DueDate:    c.Frequency.DueFrom(now),
		AssignedAt: now,
	}
	if len(c.SubTasks) > 0 {
		a.SubTasks = make(map[int64]bool, len(c.SubTasks))
		for _, st := range c.SubTasks {
			a.SubTasks[st.ID] = false
		}
	}
	return a
}

// CurrentAssignments is the lock-free read path: the current set plus
// the token pollers compare to detect changes.
func (e *Engine) CurrentAssignments() ([]model.Assignment, int64, error) {
	return e.state.ListAssignments()
}

// Token returns the current state version without loading assignments.
func (e *Engine) Token() (int64, error) {
	return e.state.CurrentToken()
}
