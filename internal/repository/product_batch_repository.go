package repository

import (
	"errors"
	"strings"

	"github.com/bullion-next/internal/models"

	"gorm.io/gorm"
)

// ProductBatchRepository 批次数据访问接口
type ProductBatchRepository interface {
	Create(batch *models.ProductBatch) error
	GetByID(id uint) (*models.ProductBatch, error)
	List(filter BatchListFilter) ([]models.ProductBatch, int64, error)
	WithTx(tx *gorm.DB) ProductBatchRepository
}

// GormProductBatchRepository GORM 实现
type GormProductBatchRepository struct {
	db *gorm.DB
}

// NewProductBatchRepository 创建批次仓库
func NewProductBatchRepository(db *gorm.DB) *GormProductBatchRepository {
	return &GormProductBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductBatchRepository) WithTx(tx *gorm.DB) ProductBatchRepository {
	if tx == nil {
		return r
	}
	return &GormProductBatchRepository{db: tx}
}

// Create 创建批次
func (r *GormProductBatchRepository) Create(batch *models.ProductBatch) error {
	return r.db.Create(batch).Error
}

// GetByID 根据 ID 获取批次
func (r *GormProductBatchRepository) GetByID(id uint) (*models.ProductBatch, error) {
	var batch models.ProductBatch
	if err := r.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// List 批次列表
func (r *GormProductBatchRepository) List(filter BatchListFilter) ([]models.ProductBatch, int64, error) {
	var batches []models.ProductBatch
	query := r.db.Model(&models.ProductBatch{})
	if prefix := strings.TrimSpace(filter.Prefix); prefix != "" {
		query = query.Where("prefix = ?", prefix)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("created_at DESC, id DESC").Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}
