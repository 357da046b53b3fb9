package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/bullion-next/internal/app"
	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if isLocalVerifyURL(cfg.QR.VerifyBaseURL) {
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("qr.verify_base_url 仍指向本机地址，生产环境打印的二维码将无法验真")
		}
		stdLog.Printf("警告: qr.verify_base_url 指向本机地址 %q，仅适用于本地调试", cfg.QR.VerifyBaseURL)
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiYellow + "╔══════════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiYellow + "║               Bullion-Next 序列号与二维码服务              ║" + ansiReset)
	fmt.Println(ansiYellow + "╚══════════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "██████╗ ██╗   ██╗██╗     ██╗     ██╗ ██████╗ ███╗   ██╗" + ansiReset)
	fmt.Println(ansiCyan + "██╔══██╗██║   ██║██║     ██║     ██║██╔═══██╗████╗  ██║" + ansiReset)
	fmt.Println(ansiCyan + "██████╔╝██║   ██║██║     ██║     ██║██║   ██║██╔██╗ ██║" + ansiReset)
	fmt.Println(ansiCyan + "██╔══██╗██║   ██║██║     ██║     ██║██║   ██║██║╚██╗██║" + ansiReset)
	fmt.Println(ansiCyan + "██████╔╝╚██████╔╝███████╗███████╗██║╚██████╔╝██║ ╚████║" + ansiReset)
	fmt.Println(ansiCyan + "╚═════╝  ╚═════╝ ╚══════╝╚══════╝╚═╝ ╚═════╝ ╚═╝  ╚═══╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Modes" + ansiReset)
	fmt.Println(ansiGreen + "• all:     HTTP + Worker" + ansiReset)
	fmt.Println(ansiGreen + "• api:     HTTP only" + ansiReset)
	fmt.Println(ansiGreen + "• worker:  asynq consumer only" + ansiReset)
	fmt.Println(ansiDim + "----------------------------------------------------------" + ansiReset)
}

func isLocalVerifyURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "" || host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0"
}
