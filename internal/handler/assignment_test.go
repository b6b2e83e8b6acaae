package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jwhitfield/fairshare/internal/database"
	"github.com/jwhitfield/fairshare/internal/model"
	"github.com/jwhitfield/fairshare/internal/server"
)

func setupTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return server.New(db, server.Config{}, logger).Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAssignmentFlow(t *testing.T) {
	router := setupTestRouter(t)

	// Seed two roommates and two chores through the API
	for _, name := range []string{"Alice", "Bob"} {
		rec := doJSON(t, router, "POST", "/api/roommates", map[string]string{"name": name})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create roommate %s: status %d: %s", name, rec.Code, rec.Body)
		}
	}
	rec := doJSON(t, router, "POST", "/api/chores", map[string]any{
		"name": "Trash", "frequency": "weekly", "policy": "fixed-rotation", "points": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chore: status %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, router, "POST", "/api/chores", map[string]any{
		"name": "Bathroom", "frequency": "weekly", "policy": "weighted-random", "points": 8,
		"sub_tasks": []string{"Shower", "Sink"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chore: status %d: %s", rec.Code, rec.Body)
	}

	// Run
	rec = doJSON(t, router, "POST", "/api/assignments/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run: status %d: %s", rec.Code, rec.Body)
	}
	var runResp struct {
		Assignments []model.Assignment `json:"assignments"`
		Warnings    []string           `json:"warnings"`
		Token       int64              `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	if len(runResp.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(runResp.Assignments))
	}
	if len(runResp.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", runResp.Warnings)
	}

	// List, then poll with the current token
	rec = doJSON(t, router, "GET", "/api/assignments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var listResp struct {
		Assignments []model.Assignment `json:"assignments"`
		Token       int64              `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if listResp.Token != runResp.Token {
		t.Errorf("list token = %d, want %d", listResp.Token, runResp.Token)
	}

	rec = doJSON(t, router, "GET", fmt.Sprintf("/api/assignments?since=%d", listResp.Token), nil)
	if rec.Code != http.StatusNotModified {
		t.Errorf("poll with current token: status %d, want 304", rec.Code)
	}

	// Toggle a sub-task on the bathroom assignment; the token moves
	var bathroom *model.Assignment
	for i := range listResp.Assignments {
		if listResp.Assignments[i].ChoreName == "Bathroom" {
			bathroom = &listResp.Assignments[i]
		}
	}
	if bathroom == nil {
		t.Fatal("bathroom assignment missing")
	}
	var subTaskID int64
	for id := range bathroom.SubTasks {
		subTaskID = id
		break
	}
	rec = doJSON(t, router, "POST", fmt.Sprintf("/api/assignments/%d/subtasks/%d/toggle", bathroom.ID, subTaskID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: status %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, "GET", fmt.Sprintf("/api/assignments?since=%d", listResp.Token), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("poll after toggle: status %d, want 200", rec.Code)
	}

	// Progress on the bathroom assignment
	rec = doJSON(t, router, "GET", fmt.Sprintf("/api/assignments/%d/progress", bathroom.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: status %d", rec.Code)
	}
	var progress struct {
		Completed int `json:"completed"`
		Total     int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.Completed != 1 || progress.Total != 2 {
		t.Errorf("progress = %d/%d, want 1/2", progress.Completed, progress.Total)
	}

	// Reset clears everything
	rec = doJSON(t, router, "POST", "/api/assignments/reset", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset: status %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, router, "GET", "/api/assignments", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list after reset: %v", err)
	}
	if len(listResp.Assignments) != 0 {
		t.Errorf("assignments after reset = %d, want 0", len(listResp.Assignments))
	}
}

func TestProgressNoSubTasksReturns204(t *testing.T) {
	router := setupTestRouter(t)

	doJSON(t, router, "POST", "/api/roommates", map[string]string{"name": "Alice"})
	doJSON(t, router, "POST", "/api/chores", map[string]any{
		"name": "Trash", "policy": "fixed-rotation", "points": 2,
	})

	rec := doJSON(t, router, "POST", "/api/assignments/run", nil)
	var runResp struct {
		Assignments []model.Assignment `json:"assignments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	if len(runResp.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(runResp.Assignments))
	}

	rec = doJSON(t, router, "GET", fmt.Sprintf("/api/assignments/%d/progress", runResp.Assignments[0].ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("progress: status %d, want 204", rec.Code)
	}
}

func TestRunWithExplicitNow(t *testing.T) {
	router := setupTestRouter(t)

	doJSON(t, router, "POST", "/api/roommates", map[string]string{"name": "Alice"})
	doJSON(t, router, "POST", "/api/chores", map[string]any{
		"name": "Dishes", "frequency": "daily", "policy": "weighted-random", "points": 3,
	})

	rec := doJSON(t, router, "POST", "/api/assignments/run", map[string]string{"now": "2026-08-27T10:00:00Z"})
	if rec.Code != http.StatusOK {
		t.Fatalf("run: status %d: %s", rec.Code, rec.Body)
	}
	var runResp struct {
		Assignments []model.Assignment `json:"assignments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &runResp); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	wantDue := "2026-08-28"
	if got := runResp.Assignments[0].DueDate.Format("2006-01-02"); got != wantDue {
		t.Errorf("due date = %s, want %s", got, wantDue)
	}
}

func TestChoreValidation(t *testing.T) {
	router := setupTestRouter(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"policy": "fixed-rotation", "points": 2}},
		{"bad policy", map[string]any{"name": "X", "policy": "coin-flip", "points": 2}},
		{"bad frequency", map[string]any{"name": "X", "frequency": "hourly", "points": 2}},
		{"zero points", map[string]any{"name": "X", "points": 0}},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, "POST", "/api/chores", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}
