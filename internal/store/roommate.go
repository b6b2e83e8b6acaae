package store

import (
	"database/sql"
	"fmt"

	"github.com/jwhitfield/fairshare/internal/model"
)

type RoommateStore struct {
	db *sql.DB
}

func NewRoommateStore(db *sql.DB) *RoommateStore {
	return &RoommateStore{db: db}
}

const roommateCols = `id, name, color, avatar_emoji, cycle_points, sort_order, created_at, updated_at`

func scanRoommate(scanner interface{ Scan(...any) error }) (*model.Roommate, error) {
	var m model.Roommate
	err := scanner.Scan(&m.ID, &m.Name, &m.Color, &m.AvatarEmoji, &m.CyclePoints, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all roommates in their stable display order. The rotation
// resolver depends on this ordering, so it must not vary between calls
// within a run.
func (s *RoommateStore) List() ([]model.Roommate, error) {
	rows, err := s.db.Query(`SELECT ` + roommateCols + ` FROM roommates ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list roommates: %w", err)
	}
	defer rows.Close()

	var members []model.Roommate
	for rows.Next() {
		m, err := scanRoommate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roommate: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *RoommateStore) GetByID(id int64) (*model.Roommate, error) {
	row := s.db.QueryRow(`SELECT `+roommateCols+` FROM roommates WHERE id = ?`, id)
	m, err := scanRoommate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get roommate: %w", err)
	}
	return m, nil
}

func (s *RoommateStore) Create(name, color, avatarEmoji string) (*model.Roommate, error) {
	var maxOrder int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM roommates`).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO roommates (name, color, avatar_emoji, sort_order) VALUES (?, ?, ?, ?)`,
		name, color, avatarEmoji, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert roommate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoommateStore) Update(id int64, name, color, avatarEmoji string) (*model.Roommate, error) {
	_, err := s.db.Exec(
		`UPDATE roommates SET name = ?, color = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update roommate: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoommateStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM roommates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete roommate: %w", err)
	}
	return nil
}

// UpdateSortOrder reorders roommates to match the given id sequence.
// Changing the order changes where every rotation cursor points next,
// which is the intended behavior.
func (s *RoommateStore) UpdateSortOrder(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE roommates SET sort_order = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(i, id); err != nil {
			return fmt.Errorf("update sort order for id %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func (s *RoommateStore) NameExists(name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM roommates WHERE name = ? AND id != ?`,
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
