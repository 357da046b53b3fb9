package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bullion-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetBySerial(code string) (*models.Product, error)
	ListByBatch(batchID uint) ([]models.Product, error)
	ScanSerialPrefix(prefix string) (SerialPrefixScan, error)
	ExistsSerial(code string) (bool, error)
	Create(product *models.Product) error
	CreateInBatches(products []models.Product) error
	UpdateQR(id uint, imageURL, storageMode string) error
	DeleteBySerial(code string) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

const createBatchSize = 500

// SerialPrefixScan 续号扫描结果。
// MaxNumber/Count 由 prefix 列与 serial_number 聚合得出；
// Candidates 为其余以该前缀开头且紧跟数字的序列号（显式序列号、更长的前缀），需按字符串解析。
type SerialPrefixScan struct {
	MaxNumber  int
	Count      int
	Candidates []string
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction 执行事务
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	var products []models.Product

	query := r.db.Model(&models.Product{})
	if filter.BatchID > 0 {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if prefix := strings.TrimSpace(filter.Prefix); prefix != "" {
		query = query.Where("prefix = ?", prefix)
	}
	if line := strings.TrimSpace(filter.ProductLine); line != "" {
		query = query.Where("product_line = ?", line)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("serial_code ASC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetBySerial 根据序列号获取商品
func (r *GormProductRepository) GetBySerial(code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Where("serial_code = ?", code).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByBatch 批次下的全部商品
func (r *GormProductRepository) ListByBatch(batchID uint) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Where("batch_id = ?", batchID).Order("serial_code ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ScanSerialPrefix 计算前缀的续号依据，空前缀匹配纯数字序列号
func (r *GormProductRepository) ScanSerialPrefix(prefix string) (SerialPrefixScan, error) {
	var agg struct {
		MaxNumber int
		Total     int
	}
	err := r.db.Model(&models.Product{}).
		Select("COALESCE(MAX(serial_number), 0) AS max_number, COUNT(*) AS total").
		Where("prefix = ? AND serial_number > 0", prefix).
		Scan(&agg).Error
	if err != nil {
		return SerialPrefixScan{}, err
	}

	var candidates []string
	query := r.db.Model(&models.Product{}).
		Where("NOT (COALESCE(prefix, '') = ? AND serial_number > 0)", prefix).
		Where(fmt.Sprintf("substr(serial_code, %d, 1) BETWEEN '0' AND '9'", len(prefix)+1))
	if prefix != "" {
		condition, arg := prefixMatchCondition(r.db, "serial_code", prefix)
		query = query.Where(condition, arg)
	}
	if err := query.Pluck("serial_code", &candidates).Error; err != nil {
		return SerialPrefixScan{}, err
	}
	return SerialPrefixScan{MaxNumber: agg.MaxNumber, Count: agg.Total, Candidates: candidates}, nil
}

// ExistsSerial 序列号是否已被占用
func (r *GormProductRepository) ExistsSerial(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Product{}).Where("serial_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// CreateInBatches 批量创建商品
func (r *GormProductRepository) CreateInBatches(products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&products, createBatchSize).Error
}

// UpdateQR 回写二维码地址与存储模式
func (r *GormProductRepository) UpdateQR(id uint, imageURL, storageMode string) error {
	return r.db.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"qr_image_url":    imageURL,
		"qr_storage_mode": storageMode,
	}).Error
}

// DeleteBySerial 硬删除商品
func (r *GormProductRepository) DeleteBySerial(code string) (int64, error) {
	result := r.db.Where("serial_code = ?", code).Delete(&models.Product{})
	return result.RowsAffected, result.Error
}
