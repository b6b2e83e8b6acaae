package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/jwhitfield/fairshare/internal/model"
	"github.com/jwhitfield/fairshare/internal/store"
	"github.com/jwhitfield/fairshare/internal/websocket"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type RoommateHandler struct {
	store  *store.RoommateStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewRoommateHandler(s *store.RoommateStore, hub *websocket.Hub, logger *slog.Logger) *RoommateHandler {
	return &RoommateHandler{store: s, hub: hub, logger: logger}
}

func (h *RoommateHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type roommateRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
}

func (h *RoommateHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List()
	if err != nil {
		h.logger.Error("list roommates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list roommates")
		return
	}
	if members == nil {
		members = []model.Roommate{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *RoommateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roommateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Color == "" {
		req.Color = "#3B82F6"
	}
	if !hexColorRegexp.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}

	exists, err := h.store.NameExists(req.Name, 0)
	if err != nil {
		h.logger.Error("check roommate name", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check roommate name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a roommate with that name already exists")
		return
	}

	member, err := h.store.Create(req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("create roommate", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create roommate")
		return
	}

	h.broadcast(websocket.NewMessage("roommate", "created", member.ID))
	writeJSON(w, http.StatusCreated, member)
}

func (h *RoommateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get roommate", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get roommate")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "roommate not found")
		return
	}

	var req roommateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Color == "" {
		req.Color = existing.Color
	}
	if !hexColorRegexp.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}

	member, err := h.store.Update(id, req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("update roommate", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update roommate")
		return
	}

	h.broadcast(websocket.NewMessage("roommate", "updated", member.ID))
	writeJSON(w, http.StatusOK, member)
}

func (h *RoommateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete roommate", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete roommate")
		return
	}

	h.broadcast(websocket.NewMessage("roommate", "deleted", id))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSortOrder reorders roommates. This is where the rotation order
// lives: the next run's fixed-rotation assignments follow the new order.
func (h *RoommateHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := h.store.UpdateSortOrder(req.IDs); err != nil {
		h.logger.Error("update roommate sort order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update sort order")
		return
	}

	h.broadcast(websocket.NewMessage("roommate", "reordered", 0))
	w.WriteHeader(http.StatusNoContent)
}
