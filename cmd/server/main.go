package main

import (
	"context"
	"errors"
	"log"
	netHttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"admissions-crm/app"
	"admissions-crm/config"
	"admissions-crm/db"
	"admissions-crm/http"
	"admissions-crm/logger"
)

func main() {
	// Determine project root by searching upward for go.mod
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal("Error getting current working directory:", err)
	}

	if absProjectRoot := findProjectRoot(cwd); absProjectRoot != "" {
		if err := os.Chdir(absProjectRoot); err != nil {
			log.Fatal("Error changing to project root:", err)
		}
		logger.Info("Working directory set to project root: %s", absProjectRoot)
	}

	// Load configuration
	config.LoadConfig()
	logger.Default().SetLevel(logger.ParseLevel(config.AppConfig.LogLevel))

	// Initialize database
	if err := db.InitDB(); err != nil {
		logger.Fatal("Error initializing database: %v", err)
	}

	a := app.New(config.AppConfig, db.Default)
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	server := &netHttp.Server{
		Addr: config.AppConfig.HTTPAddr,
		Handler: http.SetupRoutes(http.Deps{
			Repos:       a.Repos,
			Engine:      a.Engine,
			Tracker:     a.Tracker,
			Coordinator: a.Coordinator,
			Courses:     a.Courses,
			DLQ:         a.DLQ,
			Auth:        a.Auth,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, netHttp.ErrServerClosed) {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received, draining requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server: %v", err)
	}

	cancel()
	a.Close()
	logger.Info("Server shutdown complete")
}

// findProjectRoot walks up from start and returns the first directory containing go.mod
func findProjectRoot(start string) string {
	dir := start
	for {
		// check for go.mod
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		// move up
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
