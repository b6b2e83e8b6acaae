package engine

import "github.com/jwhitfield/fairshare/internal/model"

// resolveRotation picks the roommate immediately after the cursor in the
// stored roommate order, wrapping around. A nil cursor, a cursor with no
// recorded roommate, or a recorded roommate that has since been removed
// all start the rotation over at index 0.
//
// Round-robin is deliberate: every roommate gets the chore exactly once
// per n assignments no matter what their point balance looks like.
func resolveRotation(roommates []model.Roommate, cursor *model.RotationCursor) (int64, error) {
	if len(roommates) == 0 {
		return 0, ErrNoRoommates
	}

	idx := 0
	if cursor != nil && cursor.LastRoommateID != nil {
		for i := range roommates {
			if roommates[i].ID == *cursor.LastRoommateID {
				idx = (i + 1) % len(roommates)
				break
			}
		}
	}
	return roommates[idx].ID, nil
}
