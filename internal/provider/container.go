package provider

import (
	"time"

	"github.com/bullion-next/internal/cache"
	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/models"
	"github.com/bullion-next/internal/qrcode"
	"github.com/bullion-next/internal/queue"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/serial"
	"github.com/bullion-next/internal/service"
	"github.com/bullion-next/internal/storage"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo      repository.ProductRepository
	ProductBatchRepo repository.ProductBatchRepository

	// Infrastructure
	Storage  *storage.Manager
	Renderer *qrcode.Renderer
	Locker   cache.Locker

	// Services
	SerialAllocator   *service.SerialAllocator
	QRArtifactService *service.QRArtifactService
	ProductService    *service.ProductService
}

// NewContainer 初始化容器。存储后端创建失败直接返回错误。
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	return NewContainerWithDB(cfg, models.DB, queueClient)
}

// NewContainerWithDB 使用指定数据库与队列客户端装配容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) (*Container, error) {
	manager, err := storage.NewManager(cfg.Storage)
	if err != nil {
		logger.Errorw("provider_init_storage_failed", "error", err)
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Storage:     manager,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.ProductRepo = repository.NewProductRepository(db)
	c.ProductBatchRepo = repository.NewProductBatchRepository(db)
}

func (c *Container) initServices() {
	qr := c.Config.QR
	c.Renderer = qrcode.NewRenderer(qrcode.Options{
		QRSize:          qr.Size,
		Padding:         qr.Padding,
		TitleBandHeight: qr.TitleBandHeight,
		CodeBandHeight:  qr.CodeBandHeight,
		TitleFontSize:   qr.TitleFontSize,
		CodeFontSize:    qr.CodeFontSize,
		FontPath:        qr.FontPath,
	})

	serialCfg := c.Config.Serial
	c.Locker = cache.NewLocker(time.Duration(serialCfg.LockTTLSeconds) * time.Second)
	c.SerialAllocator = service.NewSerialAllocator(c.ProductRepo, c.Locker, service.AllocatorOptions{
		Lines:       serial.BuildLines(serialCfg.Lines),
		MaxQuantity: serialCfg.MaxQuantity,
		Retries:     serialCfg.AllocateRetries,
	})

	c.QRArtifactService = service.NewQRArtifactService(c.Renderer, c.Storage, c.ProductRepo, service.QRArtifactOptions{
		VerifyBaseURL: qr.VerifyBaseURL,
		CacheSize:     qr.CacheSize,
		CacheTTL:      time.Duration(qr.CacheTTLSeconds) * time.Second,
	})

	c.ProductService = service.NewProductService(c.ProductRepo, c.ProductBatchRepo, c.SerialAllocator, c.QRArtifactService, c.QueueClient)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
