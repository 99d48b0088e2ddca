package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jengzang/trajectory-prep/internal/api"
	"github.com/jengzang/trajectory-prep/internal/config"
	"github.com/jengzang/trajectory-prep/internal/database"
	"github.com/jengzang/trajectory-prep/internal/middleware"
	"github.com/jengzang/trajectory-prep/internal/repository"
	"github.com/jengzang/trajectory-prep/internal/service"
)

func main() {
	cfg := config.Load()

	// server token <subject> prints a bearer token for the mutating endpoints
	if len(os.Args) == 3 && os.Args[1] == "token" {
		token, err := middleware.IssueToken(cfg.JWTSecret, os.Args[2], 30*24*time.Hour)
		if err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		fmt.Println(token)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	if cfg.UsesDefaultSecret() {
		log.Printf("[Config] Warning: JWT_SECRET is not set, mutating endpoints accept tokens signed with the built-in default secret")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal("Failed to create database directory:", err)
	}
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()
	datasets := service.NewDatasetService(repository.NewDatasetRepository(db), cfg)
	runs := service.NewRunService(repository.NewRunRepository(db), datasets)
	if err := runs.RecoverInterrupted(); err != nil {
		log.Fatal("Failed to recover runs:", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	router := api.SetupRouter(cfg, api.Services{
		Datasets: datasets,
		Runs:     runs,
		Limiter:  limiter,
	})

	srv := &http.Server{Addr: cfg.Port, Handler: router}
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	runs.Close()
}
