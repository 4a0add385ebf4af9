package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"straintrack-data/internal/config"
	"straintrack-data/internal/database"
	httpapi "straintrack-data/internal/http"
	"straintrack-data/internal/logger"
	"straintrack-data/internal/repository"
	"straintrack-data/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "straintrack-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store := repository.NewPostgresStore(db)

	handler := httpapi.NewAPIHandler(store, log)
	router := httpapi.NewRouter(cfg.HTTP.CORSOrigins, log)
	router.RegisterAPIRoutes(handler)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server", zap.Error(err))
	}
}
