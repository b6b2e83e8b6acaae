package model

import "time"

type Roommate struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	// Points accumulated in the current accounting cycle. Reset to 0 at
	// every cycle boundary; only the engine writes this.
	CyclePoints int       `json:"cycle_points"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
