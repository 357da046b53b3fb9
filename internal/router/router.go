package router

import (
	"fmt"
	"strings"

	"github.com/bullion-next/internal/cache"
	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/constants"
	adminhandlers "github.com/bullion-next/internal/http/handlers/admin"
	publichandlers "github.com/bullion-next/internal/http/handlers/public"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bn"
	}
	qrRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:qr", redisPrefix),
		WindowSeconds: cfg.RateLimit.WindowSeconds,
		MaxRequests:   cfg.RateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	// 本地存储模式下直接托管二维码目录
	if local := c.Storage.Local(); local != nil {
		serveLocal := LocalQRFileHandler(local)
		r.GET(local.PublicPrefix()+"/*filepath", serveLocal)
		r.HEAD(local.PublicPrefix()+"/*filepath", serveLocal)
	}

	// 按需生成
	r.GET(constants.QRRegenerateRoute+":serial", RateLimitMiddleware(cache.Client(), qrRule, KeyByIP), publicHandler.ServeQR)

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/verify/:serial", publicHandler.Verify)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 序列号
			admin.POST("/serials/allocate", adminHandler.AllocateSerials)
			admin.GET("/serials/state", adminHandler.GetSerialState)

			// 商品
			admin.GET("/products", adminHandler.ListProducts)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.GET("/products/:serial", adminHandler.GetProduct)
			admin.POST("/products/:serial/qr", adminHandler.RegenerateProductQR)
			admin.DELETE("/products/:serial", adminHandler.DeleteProduct)

			// 批次
			admin.GET("/batches", adminHandler.ListBatches)
			admin.POST("/batches", adminHandler.CreateBatch)
			admin.GET("/batches/:id/products", adminHandler.ListBatchProducts)
			admin.POST("/batches/:id/qr/regenerate", adminHandler.RegenerateBatchQR)

			// 存储
			admin.GET("/storage", adminHandler.GetStorage)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
