package store

import (
	"database/sql"
	"fmt"

	"github.com/jwhitfield/fairshare/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, name, description, frequency, policy, points, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	err := scanner.Scan(&c.ID, &c.Name, &c.Description, &c.Frequency, &c.Policy, &c.Points, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the full catalog, sub-tasks included, ordered by id. The
// engine resolves chores in this order, which keeps runs reproducible.
func (s *ChoreStore) List() ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT ` + choreCols + ` FROM chores ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chores {
		subs, err := s.listSubTasks(chores[i].ID)
		if err != nil {
			return nil, err
		}
		chores[i].SubTasks = subs
	}
	return chores, nil
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	c.SubTasks, err = s.listSubTasks(c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChoreStore) listSubTasks(choreID int64) ([]model.SubTask, error) {
	rows, err := s.db.Query(
		`SELECT id, chore_id, title, position FROM chore_subtasks WHERE chore_id = ? ORDER BY position ASC, id ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()

	var subs []model.SubTask
	for rows.Next() {
		var st model.SubTask
		if err := rows.Scan(&st.ID, &st.ChoreID, &st.Title, &st.Position); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		subs = append(subs, st)
	}
	return subs, rows.Err()
}

func (s *ChoreStore) Create(name, description string, frequency model.Frequency, policy model.Policy, points int, subTaskTitles []string) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO chores (name, description, frequency, policy, points) VALUES (?, ?, ?, ?, ?)`,
		name, description, frequency, policy, points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertSubTasks(tx, id, subTaskTitles); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

// Update rewrites the chore row and replaces its sub-task definitions.
// Sub-task ids are not preserved across updates; per-assignment
// completion state lives on the assignment, not here.
func (s *ChoreStore) Update(id int64, name, description string, frequency model.Frequency, policy model.Policy, points int, subTaskTitles []string) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE chores SET name = ?, description = ?, frequency = ?, policy = ?, points = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, description, frequency, policy, points, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM chore_subtasks WHERE chore_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete subtasks: %w", err)
	}
	if err := insertSubTasks(tx, id, subTaskTitles); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func insertSubTasks(tx *sql.Tx, choreID int64, titles []string) error {
	for i, title := range titles {
		if _, err := tx.Exec(
			`INSERT INTO chore_subtasks (chore_id, title, position) VALUES (?, ?, ?)`,
			choreID, title, i,
		); err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}
	}
	return nil
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}
