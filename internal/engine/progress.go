package engine

// Progress summarizes sub-task completion for one assignment.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ToggleSubTask flips one sub-task on one assignment and returns the new
// value. Completion lives on the assignment, not the chore definition:
// the same chore's sub-tasks start over as incomplete every time it is
// reassigned. Toggles do not take the run lock; they are single-row
// writes in their own transaction.
func (e *Engine) ToggleSubTask(assignmentID, subTaskID int64) (bool, error) {
	return e.state.ToggleSubTask(assignmentID, subTaskID)
}

// SubTaskProgress reports completion for an assignment. A nil Progress
// with a nil error means the chore has no sub-tasks, which is "nothing
// to show", not zero percent.
func (e *Engine) SubTaskProgress(assignmentID int64) (*Progress, error) {
	a, err := e.state.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if len(a.SubTasks) == 0 {
		return nil, nil
	}

	p := &Progress{Total: len(a.SubTasks)}
	for _, done := range a.SubTasks {
		if done {
			p.Completed++
		}
	}
	p.Percent = float64(p.Completed) / float64(p.Total) * 100
	return p, nil
}
