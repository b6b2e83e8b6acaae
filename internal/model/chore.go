package model

import "time"

// Frequency describes how often a chore recurs. It is informational for
// scheduling and drives the due date stamped onto each assignment.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

// Valid reports whether f is a known frequency value.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly:
		return true
	}
	return false
}

// DueFrom derives an assignment due date from the run time: start of the
// run day plus one, seven, or fourteen days.
func (f Frequency) DueFrom(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch f {
	case FrequencyWeekly:
		return day.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return day.AddDate(0, 0, 14)
	default:
		return day.AddDate(0, 0, 1)
	}
}

// Policy selects how a chore is assigned to a roommate.
type Policy string

const (
	// PolicyRotation cycles deterministically through roommates in their
	// stored order, independent of points.
	PolicyRotation Policy = "fixed-rotation"
	// PolicyWeighted draws a roommate probabilistically, favoring lower
	// current point balances.
	PolicyWeighted Policy = "weighted-random"
)

// Valid reports whether p is a known assignment policy.
func (p Policy) Valid() bool {
	return p == PolicyRotation || p == PolicyWeighted
}

type Chore struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	Policy      Policy    `json:"policy"`
	// Points is the difficulty weight added to the assignee's cycle
	// balance when a weighted-random chore is handed out.
	Points    int       `json:"points"`
	SubTasks  []SubTask `json:"sub_tasks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SubTask struct {
	ID       int64  `json:"id"`
	ChoreID  int64  `json:"chore_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}
