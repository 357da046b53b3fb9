package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bullion-next/internal/cache"
	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/models"
	"github.com/bullion-next/internal/qrcode"
	"github.com/bullion-next/internal/queue"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/serial"
	"github.com/bullion-next/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

var (
	sharedRendererOnce sync.Once
	sharedRenderer     *qrcode.Renderer
)

// 字体解析较慢，测试间共用一个渲染器
func testRenderer() *qrcode.Renderer {
	sharedRendererOnce.Do(func() {
		sharedRenderer = qrcode.NewRenderer(qrcode.Options{QRSize: 240, Padding: 12})
	})
	return sharedRenderer
}

type fakeEnqueuer struct {
	mu          sync.Mutex
	enabled     bool
	regenerates []queue.BatchQRRegeneratePayload
	purges      []queue.ArtifactPurgePayload
}

func (f *fakeEnqueuer) Enabled() bool {
	return f != nil && f.enabled
}

func (f *fakeEnqueuer) EnqueueBatchQRRegenerate(payload queue.BatchQRRegeneratePayload, _ ...asynq.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regenerates = append(f.regenerates, payload)
	return fmt.Sprintf("task-%d", len(f.regenerates)), nil
}

func (f *fakeEnqueuer) EnqueueArtifactPurge(payload queue.ArtifactPurgePayload, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purges = append(f.purges, payload)
	return nil
}

// flakyObjectClient 可切换 PUT 失败的对象存储客户端
type flakyObjectClient struct {
	mu      sync.Mutex
	failPut bool
	objects map[string]int
}

func (f *flakyObjectClient) PutObject(_ context.Context, _, key string, _ io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return minio.UploadInfo{}, errors.New("connection reset by peer")
	}
	if f.objects == nil {
		f.objects = make(map[string]int)
	}
	f.objects[key] = int(size)
	return minio.UploadInfo{Key: key, Size: size}, nil
}

func (f *flakyObjectClient) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *flakyObjectClient) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: key}, nil
}

func objectStoreTestConfig() config.StorageConfig {
	return config.StorageConfig{
		RegenerateBaseURL: "https://shop.example.com",
		ObjectStore: config.ObjectStoreConfig{
			Endpoint:      "https://acct.r2.example.com",
			Bucket:        "bullion-qr",
			AccessKey:     "ak",
			SecretKey:     "sk",
			PublicBaseURL: "https://cdn.example.com",
		},
	}
}

type testEnv struct {
	db        *gorm.DB
	products  *repository.GormProductRepository
	batches   *repository.GormProductBatchRepository
	allocator *SerialAllocator
	artifacts *QRArtifactService
	service   *ProductService
	manager   *storage.Manager
	queue     *fakeEnqueuer
	qrDir     string
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	qrDir := t.TempDir()
	env := newTestEnvWithStorage(t, config.StorageConfig{
		RegenerateBaseURL: "http://localhost:8080",
		Local:             config.LocalStoreConfig{Dir: qrDir, PublicPrefix: "/qr"},
	})
	env.qrDir = qrDir
	return env
}

func newTestEnvWithStorage(t *testing.T, storageCfg config.StorageConfig, opts ...storage.Option) *testEnv {
	t.Helper()
	db := openServiceTestDB(t)
	manager, err := storage.NewManager(storageCfg, opts...)
	if err != nil {
		t.Fatalf("new storage manager failed: %v", err)
	}

	productRepo := repository.NewProductRepository(db)
	batchRepo := repository.NewProductBatchRepository(db)
	allocator := NewSerialAllocator(productRepo, cache.NewLocalLocker(), AllocatorOptions{
		Lines:       serial.DefaultLines(),
		MaxQuantity: 100,
	})
	artifacts := NewQRArtifactService(testRenderer(), manager, productRepo, QRArtifactOptions{
		VerifyBaseURL: "https://verify.example.com/",
		CacheSize:     16,
		CacheTTL:      time.Minute,
	})
	tasks := &fakeEnqueuer{}
	return &testEnv{
		db:        db,
		products:  productRepo,
		batches:   batchRepo,
		allocator: allocator,
		artifacts: artifacts,
		service:   NewProductService(productRepo, batchRepo, allocator, artifacts, tasks),
		manager:   manager,
		queue:     tasks,
	}
}
