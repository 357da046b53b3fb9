package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/bullion-next/internal/storage"

	"github.com/gin-gonic/gin"
)

// LocalQRFileHandler 托管本地二维码目录，只返回已写入完成的 PNG
func LocalQRFileHandler(local *storage.LocalBackend) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimPrefix(c.Param("filepath"), "/")
		fullPath, ok := local.ServablePath(name)
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(fullPath)
	}
}
