package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/provider"
	"github.com/bullion-next/internal/queue"
	"github.com/bullion-next/internal/service"
	"github.com/bullion-next/internal/storage"

	"github.com/hibiken/asynq"
)

// ProductTasks 消费者依赖的商品操作（*service.ProductService 实现）
type ProductTasks interface {
	RegenerateBatch(ctx context.Context, batchID uint) (int, error)
	PurgeArtifact(ctx context.Context, code, existingURL string) error
}

// Consumer 异步任务消费者
type Consumer struct {
	Products ProductTasks
	Storage  *storage.Manager
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return &Consumer{
		Products: c.ProductService,
		Storage:  c.Storage,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskBatchQRRegenerate, c.handleBatchQRRegenerate)
	mux.HandleFunc(queue.TaskArtifactPurge, c.handleArtifactPurge)
}

func (c *Consumer) handleBatchQRRegenerate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_batch_qr_regenerate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BatchQRRegeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_batch_qr_regenerate_unmarshal_failed", "error", err)
		return err
	}
	if payload.BatchID == 0 {
		logger.Debugw("worker_batch_qr_regenerate_skip_invalid_payload", "batch_id", payload.BatchID)
		return nil
	}
	if c.Products == nil {
		logger.Warnw("worker_batch_qr_regenerate_skip_service_nil", "batch_id", payload.BatchID)
		return nil
	}
	count, err := c.Products.RegenerateBatch(ctx, payload.BatchID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchNotFound):
			logger.Debugw("worker_batch_qr_regenerate_skip_batch_not_found", "batch_id", payload.BatchID)
			return nil
		default:
			logger.Warnw("worker_batch_qr_regenerate_failed",
				"batch_id", payload.BatchID,
				"done", count,
				"error", err,
			)
			return err
		}
	}
	logger.Infow("worker_batch_qr_regenerated", "batch_id", payload.BatchID, "count", count)
	return nil
}

func (c *Consumer) handleArtifactPurge(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_artifact_purge_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ArtifactPurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_artifact_purge_unmarshal_failed", "error", err)
		return err
	}
	code := strings.TrimSpace(payload.SerialCode)
	if code == "" {
		logger.Debugw("worker_artifact_purge_skip_invalid_payload")
		return nil
	}
	if c.Products == nil {
		logger.Warnw("worker_artifact_purge_skip_service_nil", "serial_code", code)
		return nil
	}
	if err := c.Products.PurgeArtifact(ctx, code, payload.ExistingURL); err != nil {
		if errors.Is(err, storage.ErrInvalidObjectCode) {
			logger.Warnw("worker_artifact_purge_skip_invalid_code", "serial_code", code)
			return nil
		}
		logger.ForSerial(code).Warnw("worker_artifact_purge_failed", "existing_url", payload.ExistingURL, "error", err)
		return err
	}
	logger.ForSerial(code).Infow("worker_artifact_purged", "existing_url", payload.ExistingURL)
	return nil
}
