package worker

import (
	"context"
	"errors"
	"time"

	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/queue"

	"github.com/hibiken/asynq"
)

const tempFileMaxAge = time.Hour

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, storageCfg config.StorageConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: time.Duration(storageCfg.OrphanSweepMinutes) * time.Minute,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费者并阻塞到 ctx 结束
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.sweepInterval > 0 && s.consumer != nil && s.consumer.Storage != nil && s.consumer.Storage.Local() != nil {
		go s.runTempSweepLoop(ctx)
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runTempSweepLoop 清理写入中断遗留的本地临时文件
func (s *Service) runTempSweepLoop(ctx context.Context) {
	local := s.consumer.Storage.Local()
	runOnce := func() {
		removed, err := local.CleanupTempFiles(tempFileMaxAge)
		if err != nil {
			logger.Warnw("worker_qr_temp_sweep_failed", "dir", local.Dir(), "error", err)
			return
		}
		if removed > 0 {
			logger.Infow("worker_qr_temp_swept", "dir", local.Dir(), "removed", removed)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
