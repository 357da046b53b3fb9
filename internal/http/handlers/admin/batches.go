package admin

import (
	"strconv"

	handlershared "github.com/bullion-next/internal/http/handlers/shared"
	"github.com/bullion-next/internal/http/response"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateBatchRequest 批次建档请求
type CreateBatchRequest struct {
	ProductName string          `json:"product_name"`
	ProductLine string          `json:"product_line"`
	Prefix      string          `json:"prefix"`
	Quantity    int             `json:"quantity"`
	UnitWeight  decimal.Decimal `json:"unit_weight"`
}

// CreateBatch 批次建档
func (h *Handler) CreateBatch(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	result, err := h.ProductService.CreateBatch(c.Request.Context(), service.CreateBatchInput{
		ProductName: req.ProductName,
		ProductLine: req.ProductLine,
		Prefix:      req.Prefix,
		Quantity:    req.Quantity,
		UnitWeight:  req.UnitWeight,
	})
	if err != nil {
		if result != nil {
			requestLog(c).Warnw("admin_batch_artifact_failed",
				"batch_no", result.Batch.BatchNo,
				"generated", len(result.Artifacts),
				"error", err,
			)
			response.ErrorWithData(c, response.CodeInternal, "批次已建档，部分二维码生成失败", result)
			return
		}
		respondWithMappedError(c, err, createErrorRules, response.CodeInternal, "批次建档失败")
		return
	}
	response.Success(c, result)
}

// ListBatches 批次列表
func (h *Handler) ListBatches(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)
	batches, total, err := h.ProductService.ListBatches(repository.BatchListFilter{
		Page:     page,
		PageSize: pageSize,
		Prefix:   c.Query("prefix"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "批次列表查询失败", err)
		return
	}
	response.SuccessWithPage(c, batches, response.NewPagination(page, pageSize, total))
}

// ListBatchProducts 批次商品分页
func (h *Handler) ListBatchProducts(c *gin.Context) {
	batchID, ok := parseBatchID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	batch, products, total, err := h.ProductService.ListBatchProducts(batchID, page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, handlershared.ProductErrorRules, response.CodeInternal, "批次商品查询失败")
		return
	}
	response.SuccessWithPage(c, gin.H{"batch": batch, "items": products}, response.NewPagination(page, pageSize, total))
}

// RegenerateBatchQR 投递批次二维码重新生成任务
func (h *Handler) RegenerateBatchQR(c *gin.Context) {
	batchID, ok := parseBatchID(c)
	if !ok {
		return
	}
	taskID, err := h.ProductService.EnqueueBatchRegenerate(c.Request.Context(), batchID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.ProductErrorRules, response.CodeInternal, "任务投递失败")
		return
	}
	response.Success(c, gin.H{"batch_id": batchID, "task_id": taskID})
}

func parseBatchID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "批次 ID 无效", nil)
		return 0, false
	}
	return uint(id), true
}
