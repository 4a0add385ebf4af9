package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"straintrack-data/internal/config"
	"straintrack-data/internal/database"
	"straintrack-data/internal/logger"
	"straintrack-data/internal/repository"
	"straintrack-data/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	source := flag.String("source", "metrics_derivation", "source label recorded on the pipeline run")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "compute-metrics")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var notifier *service.RunNotifier
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		notifier = service.NewRunNotifier(redisClient, cfg.Ingest.RunsStream, log)
	}

	store := repository.NewPostgresStore(db)
	metrics := service.NewMetricsService(store, notifier, log)

	result, err := metrics.ComputeMetrics(context.Background(), *source)
	if err != nil {
		var runErr *service.RunError
		if errors.As(err, &runErr) {
			log.Error("metrics run failed",
				zap.String("run_id", runErr.RunID),
				zap.Error(runErr.Err))
		} else {
			log.Error("metrics derivation failed", zap.Error(err))
		}
		os.Exit(1)
	}

	log.Info("metrics derivation completed",
		zap.String("run_id", result.RunID),
		zap.Int("rows_in", result.RowsIn),
		zap.Int("rows_loaded", result.RowsLoaded))
}
