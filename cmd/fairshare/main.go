package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jwhitfield/fairshare/internal/database"
	"github.com/jwhitfield/fairshare/internal/logging"
	"github.com/jwhitfield/fairshare/internal/metrics"
	"github.com/jwhitfield/fairshare/internal/server"
)

func main() {
	port := os.Getenv("FAIRSHARE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("FAIRSHARE_DB_PATH")
	if dbPath == "" {
		dbPath = "fairshare.db"
	}

	logger := logging.Setup(os.Getenv("FAIRSHARE_LOG_LEVEL"))
	metrics.Init()

	cfg := server.Config{}
	if v := os.Getenv("FAIRSHARE_CYCLE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			log.Fatalf("invalid FAIRSHARE_CYCLE_DAYS: %q", v)
		}
		cfg.CycleDays = days
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("fairshare running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
