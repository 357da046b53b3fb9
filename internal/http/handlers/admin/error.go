package admin

import (
	handlershared "github.com/bullion-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	allocateErrorRules = handlershared.SerialErrorRules
	createErrorRules   = handlershared.ConcatMappedErrors(
		handlershared.ProductErrorRules,
		handlershared.SerialErrorRules,
		handlershared.ArtifactErrorRules,
	)
	artifactErrorRules = handlershared.ConcatMappedErrors(
		handlershared.ProductErrorRules,
		handlershared.ArtifactErrorRules,
	)
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackMsg string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackMsg)
}
