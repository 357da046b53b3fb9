package public

import (
	"net/http"
	"strings"

	"github.com/bullion-next/internal/constants"
	handlershared "github.com/bullion-next/internal/http/handlers/shared"
	"github.com/bullion-next/internal/http/response"
	"github.com/bullion-next/internal/storage"

	"github.com/gin-gonic/gin"
)

var qrServeErrorRules = handlershared.ConcatMappedErrors(
	handlershared.ProductErrorRules,
	handlershared.ArtifactErrorRules,
)

// ServeQR 按需生成二维码 PNG；对象存储已有副本时 302 到公开地址
func (h *Handler) ServeQR(c *gin.Context) {
	code := strings.TrimSuffix(strings.TrimSpace(c.Param("serial")), constants.QRObjectExt)
	if code == "" {
		respondError(c, response.CodeBadRequest, "序列号不能为空", nil)
		return
	}
	ctx := c.Request.Context()

	if h.Storage.Kind() == storage.KindObjectStore {
		if target, ok := h.QRArtifactService.DurableURL(ctx, code); ok {
			c.Redirect(http.StatusFound, target)
			return
		}
	}

	artifact, err := h.QRArtifactService.RenderForServe(ctx, code)
	if err != nil {
		respondWithMappedError(c, err, qrServeErrorRules, response.CodeInternal, "二维码生成失败")
		return
	}
	response.PNG(c, h.Storage.CacheControl(), artifact.PNG)
}
