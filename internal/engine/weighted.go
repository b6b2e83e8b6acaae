package engine

import (
	"math/rand/v2"

	"github.com/jwhitfield/fairshare/internal/model"
)

// resolveWeighted draws one roommate with probability proportional to
// 1/(1+points). The +1 keeps a zero-point roommate from deterministically
// winning every draw; they are strongly favored, not guaranteed.
//
// balances is the evolving in-run snapshot, not the stored one: each
// weighted assignment bumps the winner's balance before the next draw,
// so the order chores are resolved in matters and is fixed to catalog
// order by the orchestrator.
func resolveWeighted(roommates []model.Roommate, balances map[int64]int, rnd *rand.Rand) (int64, error) {
	if len(roommates) == 0 {
		return 0, ErrNoRoommates
	}
	if len(roommates) == 1 {
		return roommates[0].ID, nil
	}

	weights := make([]float64, len(roommates))
	total := 0.0
	for i := range roommates {
		w := 1.0 / float64(1+balances[roommates[i].ID])
		weights[i] = w
		total += w
	}

	target := rnd.Float64() * total
	cumulative := 0.0
	for i := range roommates {
		cumulative += weights[i]
		if target < cumulative {
			return roommates[i].ID, nil
		}
	}
	// Float rounding can leave target just past the last boundary.
	return roommates[len(roommates)-1].ID, nil
}
