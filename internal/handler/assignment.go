package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jwhitfield/fairshare/internal/engine"
	"github.com/jwhitfield/fairshare/internal/model"
	"github.com/jwhitfield/fairshare/internal/store"
	"github.com/jwhitfield/fairshare/internal/websocket"
)

// runLockTimeout bounds how long a request waits for the engine's write
// lock before reporting busy.
const runLockTimeout = 5 * time.Second

type AssignmentHandler struct {
	engine *engine.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewAssignmentHandler(e *engine.Engine, hub *websocket.Hub, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{engine: e, hub: hub, logger: logger}
}

func (h *AssignmentHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// Run triggers a full assignment run. The body may carry an explicit
// "now" timestamp, which tests and backfills use for determinism.
func (h *AssignmentHandler) Run(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if r.Body != nil && r.ContentLength != 0 {
		var req struct {
			Now *time.Time `json:"now"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.Now != nil {
			now = *req.Now
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), runLockTimeout)
	defer cancel()

	result, err := h.engine.Run(ctx, now)
	switch {
	case errors.Is(err, engine.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "engine busy, try again")
		return
	case errors.Is(err, engine.ErrConflict):
		writeError(w, http.StatusConflict, "assignment state changed during run, try again")
		return
	case err != nil:
		h.logger.Error("assignment run", "error", err)
		writeError(w, http.StatusInternalServerError, "assignment run failed")
		return
	}

	h.broadcast(websocket.StateChanged("assignments", "replaced", 0, result.Token))
	writeJSON(w, http.StatusOK, result)
}

// Reset zeroes all balances and clears the assignment set.
func (h *AssignmentHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), runLockTimeout)
	defer cancel()

	err := h.engine.ResetCycle(ctx, time.Now())
	switch {
	case errors.Is(err, engine.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "engine busy, try again")
		return
	case errors.Is(err, engine.ErrConflict):
		writeError(w, http.StatusConflict, "assignment state changed during reset, try again")
		return
	case err != nil:
		h.logger.Error("cycle reset", "error", err)
		writeError(w, http.StatusInternalServerError, "cycle reset failed")
		return
	}

	token, err := h.engine.Token()
	if err != nil {
		h.logger.Error("read token after reset", "error", err)
	}
	h.broadcast(websocket.StateChanged("assignments", "reset", 0, token))
	w.WriteHeader(http.StatusNoContent)
}

// List returns the current assignment set and its token. Pollers pass
// ?since=<token>; an unchanged token short-circuits to 304.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if since := r.URL.Query().Get("since"); since != "" {
		sinceToken, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since token")
			return
		}
		token, err := h.engine.Token()
		if err != nil {
			h.logger.Error("read token", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read state token")
			return
		}
		if token == sinceToken {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	assignments, token, err := h.engine.CurrentAssignments()
	if err != nil {
		h.logger.Error("list assignments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}

	resp := struct {
		Assignments []model.Assignment           `json:"assignments"`
		ByRoommate  map[int64][]model.Assignment `json:"by_roommate"`
		Token       int64                        `json:"token"`
	}{
		Assignments: assignments,
		ByRoommate:  model.GroupByRoommate(assignments),
		Token:       token,
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToggleSubTask flips one sub-task on one assignment.
func (h *AssignmentHandler) ToggleSubTask(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}
	subTaskID, err := parseIDParam(r, "subtask_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subtask id")
		return
	}

	done, err := h.engine.ToggleSubTask(assignmentID, subTaskID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assignment or sub-task not found")
		return
	}
	if err != nil {
		h.logger.Error("toggle subtask", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle sub-task")
		return
	}

	token, err := h.engine.Token()
	if err != nil {
		h.logger.Error("read token after toggle", "error", err)
	}
	h.broadcast(websocket.StateChanged("assignment", "subtask_toggled", assignmentID, token))
	writeJSON(w, http.StatusOK, map[string]bool{"done": done})
}

// Progress reports sub-task completion for one assignment. Chores with
// no sub-tasks return 204: there is no progress to show, which is not
// the same as zero percent.
func (h *AssignmentHandler) Progress(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	progress, err := h.engine.SubTaskProgress(assignmentID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	if err != nil {
		h.logger.Error("assignment progress", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}
	if progress == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
