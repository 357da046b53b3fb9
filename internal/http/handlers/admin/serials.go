package admin

import (
	"strings"

	"github.com/bullion-next/internal/http/response"
	"github.com/bullion-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AllocateSerialsRequest 序列号预分配请求（不落库）
type AllocateSerialsRequest struct {
	ProductName string `json:"product_name"`
	ProductLine string `json:"product_line"`
	Prefix      string `json:"prefix"`
	Code        string `json:"code"`
	Quantity    int    `json:"quantity"`
}

// AllocateSerials 预分配序列号
func (h *Handler) AllocateSerials(c *gin.Context) {
	var req AllocateSerialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}
	if req.Quantity == 0 && strings.TrimSpace(req.Code) != "" {
		req.Quantity = 1
	}
	alloc, err := h.SerialAllocator.Allocate(c.Request.Context(), service.AllocateInput{
		ProductName: req.ProductName,
		ProductLine: req.ProductLine,
		Prefix:      req.Prefix,
		Code:        req.Code,
		Quantity:    req.Quantity,
	})
	if err != nil {
		respondWithMappedError(c, err, allocateErrorRules, response.CodeInternal, "序列号分配失败")
		return
	}
	response.Success(c, alloc)
}

// GetSerialState 查询前缀分配状态
func (h *Handler) GetSerialState(c *gin.Context) {
	state, err := h.SerialAllocator.State(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		respondWithMappedError(c, err, allocateErrorRules, response.CodeInternal, "查询分配状态失败")
		return
	}
	response.Success(c, state)
}
