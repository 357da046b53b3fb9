package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bullion-next/internal/cache"
	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/models"
	"github.com/bullion-next/internal/queue"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/serial"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	verifyCacheTTL   = 5 * time.Minute
	purgeRetryDelay  = 5 * time.Minute
	maxListPageSize  = 200
	defaultListLimit = 50
)

// TaskEnqueuer 异步任务投递（*queue.Client 实现）
type TaskEnqueuer interface {
	Enabled() bool
	EnqueueBatchQRRegenerate(payload queue.BatchQRRegeneratePayload, opts ...asynq.Option) (string, error)
	EnqueueArtifactPurge(payload queue.ArtifactPurgePayload, delay time.Duration) error
}

// ProductService 实物商品与批次建档
type ProductService struct {
	productRepo repository.ProductRepository
	batchRepo   repository.ProductBatchRepository
	allocator   *SerialAllocator
	artifacts   *QRArtifactService
	queue       TaskEnqueuer
}

// NewProductService 创建商品服务
func NewProductService(
	productRepo repository.ProductRepository,
	batchRepo repository.ProductBatchRepository,
	allocator *SerialAllocator,
	artifacts *QRArtifactService,
	tasks TaskEnqueuer,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		allocator:   allocator,
		artifacts:   artifacts,
		queue:       tasks,
	}
}

// CreateProductInput 单品建档输入，Code 与 Prefix 二选一
type CreateProductInput struct {
	Name        string
	ProductLine string
	Prefix      string
	Code        string
	WeightGrams decimal.Decimal
}

// CreateBatchInput 批次建档输入
type CreateBatchInput struct {
	ProductName string
	ProductLine string
	Prefix      string
	Quantity    int
	UnitWeight  decimal.Decimal
}

// ProductResult 单品建档结果
type ProductResult struct {
	Product  *models.Product `json:"product"`
	Artifact *ArtifactResult `json:"artifact,omitempty"`
}

// BatchResult 批次建档结果
type BatchResult struct {
	Batch     *models.ProductBatch `json:"batch"`
	Products  []models.Product     `json:"products"`
	Artifacts []ArtifactResult     `json:"artifacts"`
}

// VerifyResult 验真结果
type VerifyResult struct {
	SerialCode  string        `json:"serial_code"`
	Name        string        `json:"name"`
	ProductLine string        `json:"product_line"`
	WeightGrams models.Weight `json:"weight_grams"`
	UnitCount   int           `json:"unit_count"`
	BatchNo     string        `json:"batch_no,omitempty"`
	QRMode      string        `json:"qr_mode,omitempty"`
	QRImageURL  string        `json:"qr_image_url"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CreateProduct 单品建档：分配序列号、写入记录，提交后生成二维码
func (s *ProductService) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	if input.WeightGrams.IsNegative() {
		return nil, ErrInvalidWeight
	}

	var product *models.Product
	_, err := s.allocator.AllocateWithin(ctx, AllocateInput{
		ProductName: name,
		Prefix:      input.Prefix,
		Code:        input.Code,
		Quantity:    1,
		ProductLine: input.ProductLine,
	}, func(tx *gorm.DB, alloc *Allocation) error {
		rows := s.buildProducts(name, alloc, input.WeightGrams, 1, nil)
		if err := s.productRepo.WithTx(tx).Create(&rows[0]); err != nil {
			return err
		}
		product = &rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	artifact, err := s.generateFor(ctx, product)
	if err != nil {
		return &ProductResult{Product: product}, err
	}
	return &ProductResult{Product: product, Artifact: artifact}, nil
}

// CreateBatch 批次建档。二维码模式在此处按单位重量确定一次并写入批次。
func (s *ProductService) CreateBatch(ctx context.Context, input CreateBatchInput) (*BatchResult, error) {
	name := strings.TrimSpace(input.ProductName)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	if !input.UnitWeight.IsPositive() {
		return nil, ErrInvalidWeight
	}
	if err := serial.ValidateQuantity(input.Quantity, s.allocator.MaxQuantity()); err != nil {
		logger.Warnw("batch_quantity_rejected", "prefix", input.Prefix, "quantity", input.Quantity, "reason", err.Error())
		return nil, err
	}

	mode := serial.ResolveQRMode(input.UnitWeight)
	codesNeeded, unitCount := input.Quantity, 1
	if mode == serial.QRModeSingle {
		codesNeeded, unitCount = 1, input.Quantity
	}

	var (
		batch    *models.ProductBatch
		products []models.Product
	)
	_, err := s.allocator.AllocateWithin(ctx, AllocateInput{
		ProductName: name,
		Prefix:      input.Prefix,
		Quantity:    codesNeeded,
		ProductLine: input.ProductLine,
	}, func(tx *gorm.DB, alloc *Allocation) error {
		row := &models.ProductBatch{
			BatchNo:     newBatchNo(),
			ProductName: name,
			ProductLine: alloc.Line.Name,
			Prefix:      alloc.Prefix,
			Quantity:    input.Quantity,
			UnitWeight:  models.NewWeight(input.UnitWeight),
			QRMode:      string(mode),
			FirstSerial: alloc.Codes[0],
			LastSerial:  alloc.Codes[len(alloc.Codes)-1],
		}
		if err := s.batchRepo.WithTx(tx).Create(row); err != nil {
			return err
		}
		rows := s.buildProducts(name, alloc, input.UnitWeight, unitCount, &row.ID)
		if err := s.productRepo.WithTx(tx).CreateInBatches(rows); err != nil {
			return err
		}
		batch, products = row, rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("product_batch_created",
		"batch_no", batch.BatchNo,
		"qr_mode", batch.QRMode,
		"quantity", batch.Quantity,
		"serials", len(products),
	)

	result := &BatchResult{Batch: batch, Products: products, Artifacts: make([]ArtifactResult, 0, len(products))}
	for i := range products {
		artifact, err := s.generateFor(ctx, &products[i])
		if err != nil {
			return result, err
		}
		result.Artifacts = append(result.Artifacts, *artifact)
	}
	return result, nil
}

// GetBySerial 根据序列号获取商品
func (s *ProductService) GetBySerial(code string) (*models.Product, error) {
	product, err := s.productRepo.GetBySerial(strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Verify 公开验真，Redis 启用时缓存结果
func (s *ProductService) Verify(ctx context.Context, code string) (*VerifyResult, error) {
	code = strings.TrimSpace(code)
	var cached VerifyResult
	if hit, err := cache.GetJSON(ctx, cache.VerifyKey(code), &cached); err == nil && hit {
		return &cached, nil
	}

	product, err := s.GetBySerial(code)
	if err != nil {
		return nil, err
	}
	result := &VerifyResult{
		SerialCode:  product.SerialCode,
		Name:        product.Name,
		ProductLine: product.ProductLine,
		WeightGrams: product.WeightGrams,
		UnitCount:   product.UnitCount,
		QRImageURL:  product.QRImageURL,
		CreatedAt:   product.CreatedAt,
	}
	if product.BatchID != nil {
		batch, err := s.batchRepo.GetByID(*product.BatchID)
		if err != nil {
			return nil, err
		}
		if batch != nil {
			result.BatchNo = batch.BatchNo
			result.QRMode = batch.QRMode
		}
	}
	if err := cache.SetJSON(ctx, cache.VerifyKey(code), result, verifyCacheTTL); err != nil {
		logger.ForSerial(code).Warnw("verify_cache_set_failed", "error", err)
	}
	return result, nil
}

// ListBatchProducts 批次商品分页
func (s *ProductService) ListBatchProducts(batchID uint, page, pageSize int) (*models.ProductBatch, []models.Product, int64, error) {
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, nil, 0, err
	}
	if batch == nil {
		return nil, nil, 0, ErrBatchNotFound
	}
	products, total, err := s.productRepo.List(repository.ProductListFilter{
		BatchID:  batchID,
		Page:     page,
		PageSize: clampPageSize(pageSize),
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return batch, products, total, nil
}

// ListProducts 商品分页，可按前缀与产品线筛选
func (s *ProductService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	filter.PageSize = clampPageSize(filter.PageSize)
	filter.Prefix = strings.ToUpper(strings.TrimSpace(filter.Prefix))
	filter.ProductLine = strings.ToLower(strings.TrimSpace(filter.ProductLine))
	return s.productRepo.List(filter)
}

// ListBatches 批次分页
func (s *ProductService) ListBatches(filter repository.BatchListFilter) ([]models.ProductBatch, int64, error) {
	filter.PageSize = clampPageSize(filter.PageSize)
	filter.Prefix = strings.ToUpper(strings.TrimSpace(filter.Prefix))
	return s.batchRepo.List(filter)
}

func clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultListLimit
	}
	if pageSize > maxListPageSize {
		return maxListPageSize
	}
	return pageSize
}

// RegenerateQR 重新生成单个商品的二维码
func (s *ProductService) RegenerateQR(ctx context.Context, code string) (*ArtifactResult, error) {
	product, err := s.GetBySerial(code)
	if err != nil {
		return nil, err
	}
	return s.generateFor(ctx, product)
}

// RegenerateBatch 重新生成批次下全部二维码，返回成功数量
func (s *ProductService) RegenerateBatch(ctx context.Context, batchID uint) (int, error) {
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return 0, err
	}
	if batch == nil {
		return 0, ErrBatchNotFound
	}
	products, err := s.productRepo.ListByBatch(batchID)
	if err != nil {
		return 0, err
	}
	done := 0
	for i := range products {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.generateFor(ctx, &products[i]); err != nil {
			return done, err
		}
		done++
	}
	logger.Infow("product_batch_qr_regenerated", "batch_no", batch.BatchNo, "count", done)
	return done, nil
}

// EnqueueBatchRegenerate 投递批次重新生成任务
func (s *ProductService) EnqueueBatchRegenerate(ctx context.Context, batchID uint) (string, error) {
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return "", err
	}
	if batch == nil {
		return "", ErrBatchNotFound
	}
	if s.queue == nil || !s.queue.Enabled() {
		return "", ErrQueueUnavailable
	}
	return s.queue.EnqueueBatchQRRegenerate(queue.BatchQRRegeneratePayload{BatchID: batchID})
}

// DeleteProduct 硬删除商品并删除二维码；存储删除失败时投递延迟清理任务
func (s *ProductService) DeleteProduct(ctx context.Context, code string) error {
	product, err := s.GetBySerial(code)
	if err != nil {
		return err
	}
	if _, err := s.productRepo.DeleteBySerial(product.SerialCode); err != nil {
		return err
	}
	_ = cache.Del(ctx, cache.VerifyKey(product.SerialCode))

	if err := s.artifacts.DeleteArtifact(ctx, product.SerialCode, product.QRImageURL); err != nil {
		log := logger.ForSerial(product.SerialCode)
		if s.queue == nil || !s.queue.Enabled() {
			log.Errorw("qr_artifact_delete_failed", "existing_url", product.QRImageURL, "error", err)
			return nil
		}
		payload := queue.ArtifactPurgePayload{SerialCode: product.SerialCode, ExistingURL: product.QRImageURL}
		if qerr := s.queue.EnqueueArtifactPurge(payload, purgeRetryDelay); qerr != nil {
			log.Errorw("qr_artifact_purge_enqueue_failed", "error", qerr, "delete_error", err)
			return nil
		}
		log.Warnw("qr_artifact_purge_deferred", "existing_url", product.QRImageURL, "error", err)
	}
	logger.ForSerial(product.SerialCode).Infow("product_deleted", "product_id", product.ID)
	return nil
}

// PurgeArtifact 执行延迟清理
func (s *ProductService) PurgeArtifact(ctx context.Context, code, existingURL string) error {
	return s.artifacts.DeleteArtifact(ctx, code, existingURL)
}

func (s *ProductService) buildProducts(name string, alloc *Allocation, weight decimal.Decimal, unitCount int, batchID *uint) []models.Product {
	// 生成前先写入按需生成地址，存储成功前 qr_storage_mode 留空
	rows := make([]models.Product, 0, len(alloc.Codes))
	for i, code := range alloc.Codes {
		number := alloc.FirstNumber + i
		rows = append(rows, models.Product{
			Name:          name,
			ProductLine:   alloc.Line.Name,
			SerialCode:    code,
			Prefix:        alloc.Prefix,
			SerialNumber:  number,
			WeightGrams:   models.NewWeight(weight),
			UnitCount:     unitCount,
			BatchID:       batchID,
			VerifyURL:     s.artifacts.VerifyURL(code),
			QRImageURL:    s.artifacts.Storage().OnDemandURL(code),
			QRStorageMode: constants.StorageModePending,
		})
	}
	return rows
}

func (s *ProductService) generateFor(ctx context.Context, product *models.Product) (*ArtifactResult, error) {
	result, err := s.artifacts.GenerateAndStore(ctx, product.SerialCode, product.VerifyURL, product.Name)
	if err != nil {
		return nil, fmt.Errorf("generate qr for %s: %w", product.SerialCode, err)
	}
	if err := s.productRepo.UpdateQR(product.ID, result.URL, string(result.Mode)); err != nil {
		return nil, err
	}
	product.QRImageURL = result.URL
	product.QRStorageMode = string(result.Mode)
	_ = cache.Del(ctx, cache.VerifyKey(product.SerialCode))
	return result, nil
}

func newBatchNo() string {
	return fmt.Sprintf("B%s-%s", time.Now().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
