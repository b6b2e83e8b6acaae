package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwhitfield/fairshare/internal/model"
	"github.com/jwhitfield/fairshare/internal/store"
	"github.com/jwhitfield/fairshare/internal/websocket"
)

type ChoreHandler struct {
	store  *store.ChoreStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChoreHandler(s *store.ChoreStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{store: s, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Frequency   model.Frequency `json:"frequency"`
	Policy      model.Policy    `json:"policy"`
	Points      int             `json:"points"`
	SubTasks    []string        `json:"sub_tasks"`
}

func (r *choreRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name is required"
	}
	if r.Frequency == "" {
		r.Frequency = model.FrequencyWeekly
	}
	if !r.Frequency.Valid() {
		return "frequency must be daily, weekly, or biweekly"
	}
	if r.Policy == "" {
		r.Policy = model.PolicyWeighted
	}
	if !r.Policy.Valid() {
		return "policy must be fixed-rotation or weighted-random"
	}
	if r.Points <= 0 {
		return "points must be positive"
	}
	for i, st := range r.SubTasks {
		r.SubTasks[i] = strings.TrimSpace(st)
		if r.SubTasks[i] == "" {
			return "sub-task titles must not be empty"
		}
	}
	return ""
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.store.List()
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	chore, err := h.store.Create(req.Name, req.Description, req.Frequency, req.Policy, req.Points, req.SubTasks)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "created", chore.ID))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	chore, err := h.store.Update(id, req.Name, req.Description, req.Frequency, req.Policy, req.Points, req.SubTasks)
	if err != nil {
		h.logger.Error("update chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "updated", chore.ID))
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.broadcast(websocket.NewMessage("chore", "deleted", id))
	w.WriteHeader(http.StatusNoContent)
}
