package config

import (
	"fmt"
	"strings"

	"github.com/bullion-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Storage   StorageConfig   `mapstructure:"storage"`
	QR        QRConfig        `mapstructure:"qr"`
	Serial    SerialConfig    `mapstructure:"serial"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
	// 读取请求头超时，0 表示不限制
	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds"`
	// 优雅退出等待时间
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置（序列号分配锁、限流）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// StorageConfig 二维码存储配置
type StorageConfig struct {
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Local       LocalStoreConfig  `mapstructure:"local"`
	// Production 为 true 时视为只读文件系统（部署环境）
	Production bool `mapstructure:"production"`
	// RegenerateBaseURL 按需生成地址前缀，为空时返回相对路径
	RegenerateBaseURL string `mapstructure:"regenerate_base_url"`
	// OrphanSweepMinutes 本地孤儿文件清理周期，0 表示关闭
	OrphanSweepMinutes int `mapstructure:"orphan_sweep_minutes"`
}

// ObjectStoreConfig S3 兼容对象存储配置，五项必须同时配置
type ObjectStoreConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	Region        string `mapstructure:"region"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	CacheMaxAge   int    `mapstructure:"cache_max_age"`
}

// LocalStoreConfig 本地文件存储配置
type LocalStoreConfig struct {
	Dir          string `mapstructure:"dir"`
	PublicPrefix string `mapstructure:"public_prefix"`
}

// QRConfig 二维码渲染配置
type QRConfig struct {
	Size            int    `mapstructure:"size"`
	Padding         int    `mapstructure:"padding"`
	TitleBandHeight int    `mapstructure:"title_band_height"`
	CodeBandHeight  int    `mapstructure:"code_band_height"`
	TitleFontSize   int    `mapstructure:"title_font_size"`
	CodeFontSize    int    `mapstructure:"code_font_size"`
	FontPath        string `mapstructure:"font_path"`
	VerifyBaseURL   string `mapstructure:"verify_base_url"`
	CacheSize       int    `mapstructure:"cache_size"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// SerialConfig 序列号分配配置
type SerialConfig struct {
	MaxQuantity     int            `mapstructure:"max_quantity"`
	AllocateRetries int            `mapstructure:"allocate_retries"`
	LockTTLSeconds  int            `mapstructure:"lock_ttl_seconds"`
	Lines           map[string]int `mapstructure:"lines"` // 产品线 -> 序号位数
}

// RateLimitConfig 按需生成接口限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// envBindings 兼容部署平台使用的扁平环境变量名
var envBindings = map[string]string{
	"storage.object_store.endpoint":        "OBJECT_STORE_ENDPOINT",
	"storage.object_store.bucket":          "OBJECT_STORE_BUCKET",
	"storage.object_store.access_key":      "OBJECT_STORE_ACCESS_KEY",
	"storage.object_store.secret_key":      "OBJECT_STORE_SECRET_KEY",
	"storage.object_store.public_base_url": "OBJECT_STORE_PUBLIC_BASE_URL",
	"storage.production":                   "APP_PRODUCTION",
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT
	for key, env := range envBindings {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return cfg
}

// Decode 将 viper 实例解析为配置结构
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults 设置默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout_seconds", 10)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "bullion.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/bullion.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "bn")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("storage.object_store.endpoint", "")
	v.SetDefault("storage.object_store.bucket", "")
	v.SetDefault("storage.object_store.access_key", "")
	v.SetDefault("storage.object_store.secret_key", "")
	v.SetDefault("storage.object_store.public_base_url", "")
	v.SetDefault("storage.object_store.region", "auto")
	v.SetDefault("storage.object_store.use_ssl", true)
	v.SetDefault("storage.object_store.cache_max_age", 300)
	v.SetDefault("storage.local.dir", "./public/qr")
	v.SetDefault("storage.local.public_prefix", "/qr")
	v.SetDefault("storage.production", false)
	v.SetDefault("storage.regenerate_base_url", "")
	v.SetDefault("storage.orphan_sweep_minutes", 0)
	v.SetDefault("qr.size", 600)
	v.SetDefault("qr.padding", 24)
	v.SetDefault("qr.title_band_height", 56)
	v.SetDefault("qr.code_band_height", 64)
	v.SetDefault("qr.title_font_size", 30)
	v.SetDefault("qr.code_font_size", 40)
	v.SetDefault("qr.font_path", "")
	v.SetDefault("qr.verify_base_url", "http://localhost:8080")
	v.SetDefault("qr.cache_size", 512)
	v.SetDefault("qr.cache_ttl_seconds", 300)
	v.SetDefault("serial.max_quantity", 10000)
	v.SetDefault("serial.allocate_retries", 3)
	v.SetDefault("serial.lock_ttl_seconds", 15)
	v.SetDefault("serial.lines", map[string]int{
		"standard": 6,
		"gram":     5,
	})
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.max_requests", 120)
}
