package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OmarCodes2/Slop-Block/app/api"
	"github.com/OmarCodes2/Slop-Block/app/cfg"
	"github.com/OmarCodes2/Slop-Block/app/database"
	"github.com/OmarCodes2/Slop-Block/app/engine"
	"github.com/OmarCodes2/Slop-Block/app/feed"
	"github.com/OmarCodes2/Slop-Block/app/llm"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Slop Block server", "version", c.Version)

	settingsLoader := feed.NewSettingsLoader(c.SettingsFile)
	if err := settingsLoader.Run(); err != nil {
		slog.Error("Failed to load settings file", "path", c.SettingsFile, "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", c.DBPath, "migration_version", version, "dirty", dirty)

	settingsRepo := database.NewSettingsRepository(db)

	settings := settingsLoader.Get()
	stored, err := settingsRepo.GetSettings()
	if err != nil {
		slog.Error("Failed to load stored settings", "error", err)
		os.Exit(1)
	}
	if len(stored) > 0 {
		settings = feed.SettingsFromRecord(stored, settings)
		slog.Info("Stored settings loaded", "keys", len(stored))
	}

	var backend llm.Backend = llm.Disabled{}
	if c.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(context.Background(), llm.GeminiConfig{
			APIKey:        c.GeminiAPIKey,
			Model:         c.GeminiModel,
			RatePerMinute: c.AIRatePerMinute,
			Timeout:       time.Duration(c.AITimeout) * time.Second,
			UserAgent:     c.UserAgent,
		})
		if err != nil {
			slog.Error("Failed to create Gemini backend", "error", err)
			os.Exit(1)
		}
		backend = gemini
		slog.Info("AI escalation enabled", "model", c.GeminiModel, "concurrency", c.AIConcurrency)
	} else {
		slog.Warn("AI escalation disabled (GEMINI_API_KEY not set)")
	}

	sessions := api.NewSessionManager(settings, backend, engine.Options{
		IdleTimeout: time.Duration(c.IdleTimeout) * time.Millisecond,
		Concurrency: c.AIConcurrency,
	})
	defer sessions.CloseAll()

	handler := api.NewHandler(sessions, settingsRepo)
	server := api.NewServer(handler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Slop Block server shutdown complete", "sessions", sessions.Count())
}
