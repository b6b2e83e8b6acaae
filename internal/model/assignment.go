package model

import "time"

// Assignment binds one chore to one roommate for the active cycle. The
// full set of assignments is replaced on every engine run; it represents
// what is owed right now, not history.
type Assignment struct {
	ID         int64     `json:"id"`
	ChoreID    int64     `json:"chore_id"`
	ChoreName  string    `json:"chore_name"`
	RoommateID int64     `json:"roommate_id"`
	Policy     Policy    `json:"policy"`
	Points     int       `json:"points"`
	DueDate    time.Time `json:"due_date"`
	AssignedAt time.Time `json:"assigned_at"`
	// SubTasks maps sub-task id to completion. All false when the
	// assignment is created; completion never carries over to the next
	// time the chore is handed out.
	SubTasks map[int64]bool `json:"sub_tasks,omitempty"`
}

// RotationCursor records the last roommate handed a fixed-rotation chore.
// A nil LastRoommateID means the chore has never been assigned.
type RotationCursor struct {
	ChoreID        int64  `json:"chore_id"`
	LastRoommateID *int64 `json:"last_roommate_id"`
}

// State is the persisted assignment state the engine reads and rewrites
// on every run. It is a value: runs construct a new State from the old
// one and persist the whole thing conditioned on Token, never mutating
// the stored copy in place.
type State struct {
	CycleStart  time.Time
	Assignments []Assignment
	Cursors     []RotationCursor
	// Balances snapshots each roommate's cycle points at load time and
	// carries the post-run balances back to the store.
	Balances map[int64]int
	// Token is the optimistic concurrency version. It increments on
	// every successful write; persisting against a stale token fails.
	Token int64
}

// Cursor returns the rotation cursor for a chore, or nil when none is
// recorded.
func (s *State) Cursor(choreID int64) *RotationCursor {
	for i := range s.Cursors {
		if s.Cursors[i].ChoreID == choreID {
			return &s.Cursors[i]
		}
	}
	return nil
}

// GroupByRoommate buckets assignments by assignee for display.
func GroupByRoommate(assignments []Assignment) map[int64][]Assignment {
	grouped := make(map[int64][]Assignment)
	for _, a := range assignments {
		grouped[a.RoommateID] = append(grouped[a.RoommateID], a)
	}
	return grouped
}
