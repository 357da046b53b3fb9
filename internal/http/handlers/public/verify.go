package public

import (
	"strings"

	handlershared "github.com/bullion-next/internal/http/handlers/shared"
	"github.com/bullion-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Verify 公开验真
func (h *Handler) Verify(c *gin.Context) {
	code := strings.TrimSpace(c.Param("serial"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "序列号不能为空", nil)
		return
	}
	result, err := h.ProductService.Verify(c.Request.Context(), code)
	if err != nil {
		respondWithMappedError(c, err, handlershared.ProductErrorRules, response.CodeInternal, "验真查询失败")
		return
	}
	response.Success(c, result)
}
