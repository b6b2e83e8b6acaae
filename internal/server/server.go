package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwhitfield/fairshare/internal/engine"
	"github.com/jwhitfield/fairshare/internal/handler"
	"github.com/jwhitfield/fairshare/internal/metrics"
	"github.com/jwhitfield/fairshare/internal/middleware"
	"github.com/jwhitfield/fairshare/internal/store"
	ws "github.com/jwhitfield/fairshare/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	roommateH   *handler.RoommateHandler
	choreH      *handler.ChoreHandler
	assignmentH *handler.AssignmentHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// Config carries the engine knobs main reads from the environment.
type Config struct {
	CycleDays int
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	roommateStore := store.NewRoommateStore(db)
	choreStore := store.NewChoreStore(db)
	stateStore := store.NewStateStore(db)

	eng := engine.New(roommateStore, choreStore, stateStore,
		engine.WithCycleDays(cfg.CycleDays),
		engine.WithLogger(logger.With("component", "engine")),
	)

	return &Server{
		db:          db,
		hub:         hub,
		roommateH:   handler.NewRoommateHandler(roommateStore, hub, logger.With("component", "roommate")),
		choreH:      handler.NewChoreHandler(choreStore, hub, logger.With("component", "chore")),
		assignmentH: handler.NewAssignmentHandler(eng, hub, logger.With("component", "assignment")),
		rateLimiter: middleware.NewRateLimiter(10, time.Minute),
		logger:      logger,
	}
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Roommates
	mux.HandleFunc("GET /api/roommates", s.roommateH.List)
	mux.HandleFunc("POST /api/roommates", s.roommateH.Create)
	mux.HandleFunc("PUT /api/roommates/{id}", s.roommateH.Update)
	mux.HandleFunc("DELETE /api/roommates/{id}", s.roommateH.Delete)
	mux.HandleFunc("PUT /api/roommates/sort", s.roommateH.UpdateSortOrder)

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Assignments
	mux.HandleFunc("GET /api/assignments", s.assignmentH.List)
	mux.HandleFunc("POST /api/assignments/run", s.rateLimitedHandler(s.assignmentH.Run))
	mux.HandleFunc("POST /api/assignments/reset", s.rateLimitedHandler(s.assignmentH.Reset))
	mux.HandleFunc("POST /api/assignments/{id}/subtasks/{subtask_id}/toggle", s.assignmentH.ToggleSubTask)
	mux.HandleFunc("GET /api/assignments/{id}/progress", s.assignmentH.Progress)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return metrics.Instrument(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	limited := s.rateLimiter.Limit(middleware.RealIP)(http.HandlerFunc(h))
	return limited.ServeHTTP
}
