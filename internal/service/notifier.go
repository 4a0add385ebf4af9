package service

import (
	"context"
	"encoding/json"
	"time"

	"straintrack-data/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RunNotifier publishes finalized run summaries to a Redis Stream so
// downstream consumers (dashboards, alerting) can react without polling
// pipeline_runs. Publishing is best-effort.
type RunNotifier struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

func NewRunNotifier(client *redis.Client, stream string, logger *zap.Logger) *RunNotifier {
	return &RunNotifier{client: client, stream: stream, logger: logger}
}

// PublishRunSummary XADDs the run summary as a JSON payload plus a timestamp.
func (n *RunNotifier) PublishRunSummary(ctx context.Context, run *domain.PipelineRun) {
	payload, err := json.Marshal(run)
	if err != nil {
		n.logger.Warn("failed to marshal run summary", zap.String("run_id", run.RunID), zap.Error(err))
		return
	}
	id, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"data":      string(payload),
			"timestamp": time.Now().Unix(),
		},
	}).Result()
	if err != nil {
		n.logger.Warn("failed to publish run summary",
			zap.String("run_id", run.RunID),
			zap.String("stream", n.stream),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("published run summary",
		zap.String("run_id", run.RunID),
		zap.String("stream", n.stream),
		zap.String("message_id", id),
	)
}
