package engine

import (
	"context"
	"testing"

	"github.com/jwhitfield/fairshare/internal/model"
)

func TestSubTaskProgress(t *testing.T) {
	e, rs, cs, _ := setupEngineTest(t)

	rs.Create("Alice", "#FF0000", "")
	chore, err := cs.Create("Bathroom", "", model.FrequencyWeekly, model.PolicyWeighted, 8,
		[]string{"Shower", "Sink", "Floor", "Mirror"})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	result, err := e.Run(context.Background(), midWeek)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assignmentID := result.Assignments[0].ID

	p, err := e.SubTaskProgress(assignmentID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Completed != 0 || p.Total != 4 || p.Percent != 0 {
		t.Errorf("fresh progress = %+v, want 0/4", p)
	}

	if _, err := e.ToggleSubTask(assignmentID, chore.SubTasks[0].ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := e.ToggleSubTask(assignmentID, chore.SubTasks[1].ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	p, err = e.SubTaskProgress(assignmentID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Completed != 2 || p.Total != 4 {
		t.Errorf("progress = %d/%d, want 2/4", p.Completed, p.Total)
	}
	if p.Percent != 50 {
		t.Errorf("percent = %v, want 50", p.Percent)
	}
}

func TestSubTaskProgressNoSubTasks(t *testing.T) {
	e, rs, cs, _ := setupEngineTest(t)

	rs.Create("Alice", "#FF0000", "")
	cs.Create("Trash", "", model.FrequencyWeekly, model.PolicyRotation, 2, nil)

	result, err := e.Run(context.Background(), midWeek)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	p, err := e.SubTaskProgress(result.Assignments[0].ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p != nil {
		t.Errorf("progress = %+v, want nil (nothing to show)", p)
	}
}

func TestSubTaskIsolationBetweenAssignments(t *testing.T) {
	e, rs, cs, _ := setupEngineTest(t)

	rs.Create("Alice", "#FF0000", "")
	rs.Create("Bob", "#00FF00", "")
	a, _ := cs.Create("Bathroom", "", model.FrequencyWeekly, model.PolicyWeighted, 8, []string{"Shower", "Sink"})
	b, _ := cs.Create("Kitchen", "", model.FrequencyWeekly, model.PolicyWeighted, 6, []string{"Counters", "Stove"})

	result, err := e.Run(context.Background(), midWeek)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var bathroomID, kitchenID int64
	for _, asn := range result.Assignments {
		switch asn.ChoreID {
		case a.ID:
			bathroomID = asn.ID
		case b.ID:
			kitchenID = asn.ID
		}
	}

	if _, err := e.ToggleSubTask(bathroomID, a.SubTasks[0].ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	p, err := e.SubTaskProgress(kitchenID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Completed != 0 {
		t.Errorf("kitchen completed = %d, want 0; toggles must not leak across assignments", p.Completed)
	}
}
