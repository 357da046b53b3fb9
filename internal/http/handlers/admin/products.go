package admin

import (
	"strings"

	handlershared "github.com/bullion-next/internal/http/handlers/shared"
	"github.com/bullion-next/internal/http/response"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateProductRequest 单品建档请求
type CreateProductRequest struct {
	Name        string          `json:"name"`
	ProductLine string          `json:"product_line"`
	Prefix      string          `json:"prefix"`
	Code        string          `json:"code"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
}

// CreateProduct 单品建档
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	result, err := h.ProductService.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Name:        req.Name,
		ProductLine: req.ProductLine,
		Prefix:      req.Prefix,
		Code:        req.Code,
		WeightGrams: req.WeightGrams,
	})
	if err != nil {
		if result != nil {
			// 记录已提交，二维码可通过重新生成补齐
			requestLog(c).Warnw("admin_product_artifact_failed", "serial_code", result.Product.SerialCode, "error", err)
			response.ErrorWithData(c, response.CodeInternal, "商品已建档，二维码生成失败", result)
			return
		}
		respondWithMappedError(c, err, createErrorRules, response.CodeInternal, "商品建档失败")
		return
	}
	response.Success(c, result)
}

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)
	products, total, err := h.ProductService.ListProducts(repository.ProductListFilter{
		Page:        page,
		PageSize:    pageSize,
		Prefix:      c.Query("prefix"),
		ProductLine: c.Query("product_line"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "商品列表查询失败", err)
		return
	}
	response.SuccessWithPage(c, products, response.NewPagination(page, pageSize, total))
}

// GetProduct 按序列号获取商品
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.ProductService.GetBySerial(c.Param("serial"))
	if err != nil {
		respondWithMappedError(c, err, artifactErrorRules, response.CodeInternal, "商品查询失败")
		return
	}
	response.Success(c, product)
}

// RegenerateProductQR 重新生成单个二维码
func (h *Handler) RegenerateProductQR(c *gin.Context) {
	code := strings.TrimSpace(c.Param("serial"))
	artifact, err := h.ProductService.RegenerateQR(c.Request.Context(), code)
	if err != nil {
		respondWithMappedError(c, err, artifactErrorRules, response.CodeInternal, "二维码重新生成失败")
		return
	}
	response.Success(c, artifact)
}

// DeleteProduct 删除商品及二维码
func (h *Handler) DeleteProduct(c *gin.Context) {
	code := strings.TrimSpace(c.Param("serial"))
	if err := h.ProductService.DeleteProduct(c.Request.Context(), code); err != nil {
		respondWithMappedError(c, err, artifactErrorRules, response.CodeInternal, "商品删除失败")
		return
	}
	response.SuccessWithMsg(c, "deleted", gin.H{"serial_code": code})
}
