package store

import (
	"testing"

	"github.com/jwhitfield/fairshare/internal/database"
	"github.com/jwhitfield/fairshare/internal/model"
)

func setupChoreTestDB(t *testing.T) *ChoreStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChoreStore(db)
}

func TestChoreCRUD(t *testing.T) {
	cs := setupChoreTestDB(t)

	chore, err := cs.Create("Dishes", "Wash and dry everything", model.FrequencyDaily, model.PolicyRotation, 3, nil)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if chore.Name != "Dishes" {
		t.Errorf("name = %q, want %q", chore.Name, "Dishes")
	}
	if chore.Points != 3 {
		t.Errorf("points = %d, want 3", chore.Points)
	}
	if chore.Policy != model.PolicyRotation {
		t.Errorf("policy = %q, want %q", chore.Policy, model.PolicyRotation)
	}

	updated, err := cs.Update(chore.ID, "Dishes", "", model.FrequencyWeekly, model.PolicyWeighted, 5, nil)
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.Points != 5 {
		t.Errorf("updated points = %d, want 5", updated.Points)
	}
	if updated.Frequency != model.FrequencyWeekly {
		t.Errorf("updated frequency = %q, want %q", updated.Frequency, model.FrequencyWeekly)
	}

	if err := cs.Delete(chore.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	got, err := cs.GetByID(chore.ID)
	if err != nil {
		t.Fatalf("get deleted chore: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted chore")
	}
}

func TestChoreSubTasks(t *testing.T) {
	cs := setupChoreTestDB(t)

	chore, err := cs.Create("Deep clean bathroom", "", model.FrequencyWeekly, model.PolicyWeighted, 8,
		[]string{"Scrub shower", "Clean toilet", "Mop floor"})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if len(chore.SubTasks) != 3 {
		t.Fatalf("expected 3 sub-tasks, got %d", len(chore.SubTasks))
	}
	for i, want := range []string{"Scrub shower", "Clean toilet", "Mop floor"} {
		if chore.SubTasks[i].Title != want {
			t.Errorf("subtask[%d].Title = %q, want %q", i, chore.SubTasks[i].Title, want)
		}
		if chore.SubTasks[i].Position != i {
			t.Errorf("subtask[%d].Position = %d, want %d", i, chore.SubTasks[i].Position, i)
		}
	}

	// Update replaces the sub-task definitions wholesale
	updated, err := cs.Update(chore.ID, chore.Name, "", chore.Frequency, chore.Policy, chore.Points,
		[]string{"Scrub shower", "Wipe mirror"})
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if len(updated.SubTasks) != 2 {
		t.Fatalf("expected 2 sub-tasks after update, got %d", len(updated.SubTasks))
	}
	if updated.SubTasks[1].Title != "Wipe mirror" {
		t.Errorf("subtask[1].Title = %q, want %q", updated.SubTasks[1].Title, "Wipe mirror")
	}
}

func TestChoreListOrder(t *testing.T) {
	cs := setupChoreTestDB(t)

	first, _ := cs.Create("Trash", "", model.FrequencyWeekly, model.PolicyRotation, 2, nil)
	second, _ := cs.Create("Vacuum", "", model.FrequencyWeekly, model.PolicyWeighted, 4, nil)

	chores, err := cs.List()
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(chores) != 2 {
		t.Fatalf("expected 2 chores, got %d", len(chores))
	}
	if chores[0].ID != first.ID || chores[1].ID != second.ID {
		t.Error("chores not in id order")
	}
}
