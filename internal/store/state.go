package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jwhitfield/fairshare/internal/model"
)

// ErrConflict is returned when a conditional write loses the race: the
// persisted version token no longer matches the token the state was
// loaded with.
var ErrConflict = errors.New("assignment state version conflict")

// ErrNotFound is returned for lookups of assignments or sub-tasks that
// do not exist.
var ErrNotFound = errors.New("not found")

// StateStore persists the engine's assignment state: current
// assignments, rotation cursors, cycle start, roommate balances, and the
// version token guarding the whole blob.
type StateStore struct {
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// Load reads a consistent snapshot of the assignment state. The snapshot
// is a value; callers build a new state from it and hand the result to
// Persist.
func (s *StateStore) Load() (*model.State, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	st := &model.State{Balances: make(map[int64]int)}

	var cycleStart sql.NullTime
	err = tx.QueryRow(`SELECT cycle_start, version FROM engine_state WHERE id = 1`).Scan(&cycleStart, &st.Token)
	if err != nil {
		return nil, fmt.Errorf("load engine state: %w", err)
	}
	if cycleStart.Valid {
		st.CycleStart = cycleStart.Time
	}

	rows, err := tx.Query(`SELECT chore_id, last_roommate_id FROM rotation_cursors`)
	if err != nil {
		return nil, fmt.Errorf("load cursors: %w", err)
	}
	for rows.Next() {
		var c model.RotationCursor
		var last sql.NullInt64
		if err := rows.Scan(&c.ChoreID, &last); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cursor: %w", err)
		}
		if last.Valid {
			c.LastRoommateID = &last.Int64
		}
		st.Cursors = append(st.Cursors, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	st.Assignments, err = loadAssignments(tx)
	if err != nil {
		return nil, err
	}

	rows, err = tx.Query(`SELECT id, cycle_points FROM roommates`)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	for rows.Next() {
		var id int64
		var pts int
		if err := rows.Scan(&id, &pts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		st.Balances[id] = pts
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return st, tx.Commit()
}

func loadAssignments(q interface {
	Query(string, ...any) (*sql.Rows, error)
}) ([]model.Assignment, error) {
	rows, err := q.Query(
		`SELECT id, chore_id, chore_name, roommate_id, policy, points, due_date, assigned_at FROM assignments ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.ChoreID, &a.ChoreName, &a.RoommateID, &a.Policy, &a.Points, &a.DueDate, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range assignments {
		subs, err := q.Query(`SELECT subtask_id, done FROM assignment_subtasks WHERE assignment_id = ?`, assignments[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load assignment subtasks: %w", err)
		}
		status := make(map[int64]bool)
		for subs.Next() {
			var id int64
			var done bool
			if err := subs.Scan(&id, &done); err != nil {
				subs.Close()
				return nil, fmt.Errorf("scan assignment subtask: %w", err)
			}
			status[id] = done
		}
		subs.Close()
		if err := subs.Err(); err != nil {
			return nil, err
		}
		if len(status) > 0 {
			assignments[i].SubTasks = status
		}
	}
	return assignments, nil
}

// Persist writes the whole new state in one transaction, conditioned on
// expectedToken. The previous assignment set is replaced, not merged.
// Returns the new token, or ErrConflict if another writer got there
// first.
func (s *StateStore) Persist(st *model.State, expectedToken int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE engine_state SET cycle_start = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = 1 AND version = ?`,
		st.CycleStart, expectedToken,
	)
	if err != nil {
		return 0, fmt.Errorf("update engine state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrConflict
	}

	if _, err := tx.Exec(`DELETE FROM assignments`); err != nil {
		return 0, fmt.Errorf("clear assignments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rotation_cursors`); err != nil {
		return 0, fmt.Errorf("clear cursors: %w", err)
	}

	for i := range st.Assignments {
		a := &st.Assignments[i]
		res, err := tx.Exec(
			`INSERT INTO assignments (chore_id, chore_name, roommate_id, policy, points, due_date, assigned_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ChoreID, a.ChoreName, a.RoommateID, a.Policy, a.Points, a.DueDate, a.AssignedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert assignment: %w", err)
		}
		a.ID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}
		for subID, done := range a.SubTasks {
			if _, err := tx.Exec(
				`INSERT INTO assignment_subtasks (assignment_id, subtask_id, done) VALUES (?, ?, ?)`,
				a.ID, subID, done,
			); err != nil {
				return 0, fmt.Errorf("insert assignment subtask: %w", err)
			}
		}
	}

	for _, c := range st.Cursors {
		var last sql.NullInt64
		if c.LastRoommateID != nil {
			last = sql.NullInt64{Int64: *c.LastRoommateID, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO rotation_cursors (chore_id, last_roommate_id) VALUES (?, ?)`,
			c.ChoreID, last,
		); err != nil {
			return 0, fmt.Errorf("insert cursor: %w", err)
		}
	}

	for id, pts := range st.Balances {
		if _, err := tx.Exec(`UPDATE roommates SET cycle_points = ? WHERE id = ?`, pts, id); err != nil {
			return 0, fmt.Errorf("update balance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return expectedToken + 1, nil
}

// CurrentToken returns the version token without loading the rest of the
// state. Pollers compare it to decide whether to refresh.
func (s *StateStore) CurrentToken() (int64, error) {
	var v int64
	err := s.db.QueryRow(`SELECT version FROM engine_state WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("query token: %w", err)
	}
	return v, nil
}

// ListAssignments reads the current assignment set without taking the
// run lock. The persist transaction guarantees readers see either the
// old set or the new one, never a mix.
func (s *StateStore) ListAssignments() ([]model.Assignment, int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var v int64
	if err := tx.QueryRow(`SELECT version FROM engine_state WHERE id = 1`).Scan(&v); err != nil {
		return nil, 0, fmt.Errorf("query token: %w", err)
	}
	assignments, err := loadAssignments(tx)
	if err != nil {
		return nil, 0, err
	}
	return assignments, v, tx.Commit()
}

// GetAssignment returns one assignment with its sub-task status, or
// ErrNotFound.
func (s *StateStore) GetAssignment(id int64) (*model.Assignment, error) {
	var a model.Assignment
	err := s.db.QueryRow(
		`SELECT id, chore_id, chore_name, roommate_id, policy, points, due_date, assigned_at FROM assignments WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.ChoreID, &a.ChoreName, &a.RoommateID, &a.Policy, &a.Points, &a.DueDate, &a.AssignedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	rows, err := s.db.Query(`SELECT subtask_id, done FROM assignment_subtasks WHERE assignment_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load assignment subtasks: %w", err)
	}
	defer rows.Close()
	status := make(map[int64]bool)
	for rows.Next() {
		var subID int64
		var done bool
		if err := rows.Scan(&subID, &done); err != nil {
			return nil, fmt.Errorf("scan assignment subtask: %w", err)
		}
		status[subID] = done
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(status) > 0 {
		a.SubTasks = status
	}
	return &a, nil
}

// ToggleSubTask flips one sub-task's completion on one assignment and
// returns the new value. This is a fine-grained write: it touches a
// single row plus the version token, so toggles on different assignments
// never contend with each other or with a full run's critical section
// beyond the transaction itself.
func (s *StateStore) ToggleSubTask(assignmentID, subTaskID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var done bool
	err = tx.QueryRow(
		`SELECT done FROM assignment_subtasks WHERE assignment_id = ? AND subtask_id = ?`,
		assignmentID, subTaskID,
	).Scan(&done)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("query subtask: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE assignment_subtasks SET done = ? WHERE assignment_id = ? AND subtask_id = ?`,
		!done, assignmentID, subTaskID,
	); err != nil {
		return false, fmt.Errorf("update subtask: %w", err)
	}

	// Pollers watch the token, so toggles bump it too.
	if _, err := tx.Exec(
		`UPDATE engine_state SET version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
	); err != nil {
		return false, fmt.Errorf("bump token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return !done, nil
}
