package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
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
	bucket := flag.String("bucket", "", "S3 bucket holding the capacity file")
	key := flag.String("key", "", "object key of the capacity file")
	source := flag.String("source", "", "source label recorded on the pipeline run (default SOURCE_NAME)")
	flag.Parse()

	if *bucket == "" || *key == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s --bucket <bucket> --key <key> [--source <label>]\n", os.Args[0])
		os.Exit(2)
	}

	cfg := config.Load()
	if *source == "" {
		*source = cfg.Ingest.SourceName
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "ingest-capacity-s3")
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

	ctx := context.Background()

	fetcher, err := service.NewS3Fetcher(ctx, cfg.S3.Region, cfg.S3.Endpoint, log)
	if err != nil {
		log.Fatal("failed to initialize S3 client", zap.Error(err))
	}

	store := repository.NewPostgresStore(db)
	ingest := service.NewIngestService(store, cfg.Ingest.RejectsDir, notifier, log)

	result, err := ingest.IngestFromS3(ctx, fetcher, *bucket, *key, *source)
	if err != nil {
		var runErr *service.RunError
		if errors.As(err, &runErr) {
			log.Error("ingestion run failed",
				zap.String("run_id", runErr.RunID),
				zap.Error(runErr.Err))
		} else {
			log.Error("ingestion failed", zap.Error(err))
		}
		os.Exit(1)
	}

	log.Info("ingestion completed",
		zap.String("run_id", result.RunID),
		zap.Int("rows_in", result.RowsIn),
		zap.Int("rows_loaded", result.RowsLoaded),
		zap.Int("rows_rejected", result.RowsRejected),
		zap.String("rejects_path", result.RejectsPath))
}
