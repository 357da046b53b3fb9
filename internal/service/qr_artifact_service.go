package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/qrcode"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/storage"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultServeCacheSize = 512
	defaultServeCacheTTL  = 5 * time.Minute
)

// ArtifactResult 生成并存储后的结果
type ArtifactResult struct {
	URL      string         `json:"url"`
	Mode     storage.Mode   `json:"mode"`
	Outcome  qrcode.Outcome `json:"outcome"`
	Fallback bool           `json:"fallback,omitempty"`
	// DegradedReason 标签被省略的原因
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// QRArtifactOptions 二维码服务配置
type QRArtifactOptions struct {
	VerifyBaseURL string
	CacheSize     int
	CacheTTL      time.Duration
}

// QRArtifactService 渲染 + 存储流水线，以及按需生成接口的缓存
type QRArtifactService struct {
	renderer   *qrcode.Renderer
	storage    *storage.Manager
	products   repository.ProductRepository
	verifyBase string
	cache      *expirable.LRU[string, *qrcode.Artifact]
	group      singleflight.Group
}

// NewQRArtifactService 创建二维码服务
func NewQRArtifactService(renderer *qrcode.Renderer, manager *storage.Manager, products repository.ProductRepository, opts QRArtifactOptions) *QRArtifactService {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultServeCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultServeCacheTTL
	}
	return &QRArtifactService{
		renderer:   renderer,
		storage:    manager,
		products:   products,
		verifyBase: strings.TrimRight(strings.TrimSpace(opts.VerifyBaseURL), "/"),
		cache:      expirable.NewLRU[string, *qrcode.Artifact](size, nil, ttl),
	}
}

// Storage 存储管理器
func (s *QRArtifactService) Storage() *storage.Manager {
	return s.storage
}

// VerifyURL 二维码内容：验真页地址
func (s *QRArtifactService) VerifyURL(code string) string {
	return s.verifyBase + constants.QRVerifyRoute + url.PathEscape(strings.TrimSpace(code))
}

// GenerateAndStore 渲染并写入选定的后端
func (s *QRArtifactService) GenerateAndStore(ctx context.Context, code, targetURL, productName string) (*ArtifactResult, error) {
	if strings.TrimSpace(targetURL) == "" {
		targetURL = s.VerifyURL(code)
	}
	artifact, err := s.render(targetURL, code, productName)
	if err != nil {
		return nil, err
	}

	record, err := s.storage.Store(ctx, code, artifact.PNG)
	if err != nil {
		qrStorageErrorsTotal.WithLabelValues(string(s.storage.Kind()), "store").Inc()
		logger.ForSerial(code).Errorw("qr_artifact_store_failed",
			"backend", s.storage.Kind(),
			"error", err,
		)
		return nil, err
	}
	qrArtifactsStoredTotal.WithLabelValues(string(s.storage.Kind()), string(record.Mode), strconv.FormatBool(record.Fallback)).Inc()
	s.InvalidateCache(code)

	return &ArtifactResult{
		URL:            record.URL,
		Mode:           record.Mode,
		Outcome:        artifact.Outcome,
		Fallback:       record.Fallback,
		DegradedReason: artifact.DegradedReason,
	}, nil
}

// DeleteArtifact 幂等删除存储副本
func (s *QRArtifactService) DeleteArtifact(ctx context.Context, code, existingURL string) error {
	s.InvalidateCache(code)
	if err := s.storage.Delete(ctx, code, existingURL); err != nil {
		qrStorageErrorsTotal.WithLabelValues(string(s.storage.Kind()), "delete").Inc()
		return err
	}
	return nil
}

// RenderForServe 按需生成：根据商品记录重新渲染，结果写入 LRU
func (s *QRArtifactService) RenderForServe(ctx context.Context, code string) (*qrcode.Artifact, error) {
	code = strings.TrimSpace(code)
	if artifact, ok := s.cache.Get(code); ok {
		qrServeCacheHitsTotal.Inc()
		return artifact, nil
	}
	qrServeCacheMissesTotal.Inc()

	value, err, _ := s.group.Do(code, func() (interface{}, error) {
		product, err := s.products.GetBySerial(code)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		target := product.VerifyURL
		if strings.TrimSpace(target) == "" {
			target = s.VerifyURL(product.SerialCode)
		}
		artifact, err := s.render(target, product.SerialCode, product.Name)
		if err != nil {
			return nil, err
		}
		s.cache.Add(code, artifact)
		return artifact, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*qrcode.Artifact), nil
}

// DurableURL 存在持久化副本时返回其地址
func (s *QRArtifactService) DurableURL(ctx context.Context, code string) (string, bool) {
	if s.storage.Kind() == storage.KindOnDemand {
		return "", false
	}
	exists, err := s.storage.Exists(ctx, code)
	if err != nil {
		if !errors.Is(err, storage.ErrInvalidObjectCode) {
			logger.ForSerial(code).Warnw("qr_artifact_exists_check_failed", "error", err)
		}
		return "", false
	}
	if !exists {
		return "", false
	}
	return s.storage.DurableURL(code), true
}

// InvalidateCache 清除按需生成缓存
func (s *QRArtifactService) InvalidateCache(code string) {
	s.cache.Remove(strings.TrimSpace(code))
}

func (s *QRArtifactService) render(targetURL, code, productName string) (*qrcode.Artifact, error) {
	artifact, err := s.renderer.Render(targetURL, code, productName)
	if err != nil {
		logger.ForSerial(code).Errorw("qr_render_failed", "error", err)
		return nil, err
	}
	qrArtifactsRenderedTotal.WithLabelValues(string(artifact.Outcome)).Inc()
	return artifact, nil
}
