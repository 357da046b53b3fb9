package admin

import (
	"github.com/bullion-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetStorage 当前二维码存储后端
func (h *Handler) GetStorage(c *gin.Context) {
	response.Success(c, h.Storage.Describe())
}
