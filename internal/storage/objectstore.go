package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultCacheMaxAge = 300

// ObjectClient 对象存储客户端所需的最小接口（*minio.Client 实现）
type ObjectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// ObjectStoreBackend S3 兼容对象存储后端
type ObjectStoreBackend struct {
	client       ObjectClient
	bucket       string
	publicBase   string
	cacheControl string
}

// NewObjectClient 根据配置创建 minio 客户端，endpoint 可带 http/https 协议
func NewObjectClient(cfg config.ObjectStoreConfig) (*minio.Client, error) {
	host, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := strings.TrimSpace(cfg.Region)
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client failed: %w", err)
	}
	return client, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	endpoint := strings.TrimSpace(raw)
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL, nil
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return "", false, fmt.Errorf("invalid object store endpoint %q", raw)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "https":
		return parsed.Host, true, nil
	case "http":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported object store endpoint scheme %q", parsed.Scheme)
	}
}

// NewObjectStoreBackend 创建对象存储后端
func NewObjectStoreBackend(client ObjectClient, cfg config.ObjectStoreConfig) *ObjectStoreBackend {
	maxAge := cfg.CacheMaxAge
	if maxAge <= 0 {
		maxAge = defaultCacheMaxAge
	}
	return &ObjectStoreBackend{
		client:       client,
		bucket:       strings.TrimSpace(cfg.Bucket),
		publicBase:   trimBase(cfg.PublicBaseURL),
		cacheControl: fmt.Sprintf("public, max-age=%d, must-revalidate", maxAge),
	}
}

func (b *ObjectStoreBackend) Kind() Kind {
	return KindObjectStore
}

// Bucket 桶名
func (b *ObjectStoreBackend) Bucket() string {
	return b.bucket
}

// URL 公开访问地址
func (b *ObjectStoreBackend) URL(code string) string {
	return b.publicBase + "/" + ObjectKey(code)
}

// CacheControl 上传时设置的缓存策略
func (b *ObjectStoreBackend) CacheControl() string {
	return b.cacheControl
}

func (b *ObjectStoreBackend) Store(ctx context.Context, code string, data []byte) (Record, error) {
	code, err := validateCode(code)
	if err != nil {
		return Record{}, err
	}
	key := ObjectKey(code)
	_, err = b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  constants.QRContentType,
		CacheControl: b.cacheControl,
	})
	if err != nil {
		logger.ForSerial(code).Errorw("qr_object_store_put_failed",
			"bucket", b.bucket,
			"key", key,
			"error", err,
		)
		return Record{}, fmt.Errorf("%w: put %s: %v", ErrStorageUnavailable, key, err)
	}
	return Record{URL: b.URL(code), Mode: ModeObjectStore}, nil
}

// Delete 删除规范键，以及 existingURL 指向的其他二维码键（历史地址）。
// qr/ 命名空间之外的地址一律忽略。
func (b *ObjectStoreBackend) Delete(ctx context.Context, code, existingURL string) error {
	code, err := validateCode(code)
	if err != nil {
		return err
	}
	keys := []string{ObjectKey(code)}
	if key, ok := keyBelow(b.publicBase, existingURL); ok && key != keys[0] {
		if isQRObjectKey(key) {
			keys = append(keys, key)
		} else {
			logger.ForSerial(code).Warnw("qr_object_store_foreign_key_skipped",
				"bucket", b.bucket,
				"key", key,
			)
		}
	}
	for _, key := range keys {
		if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
			return fmt.Errorf("%w: remove %s: %v", ErrStorageUnavailable, key, err)
		}
	}
	return nil
}

func (b *ObjectStoreBackend) Exists(ctx context.Context, code string) (bool, error) {
	code, err := validateCode(code)
	if err != nil {
		return false, err
	}
	if _, err := b.client.StatObject(ctx, b.bucket, ObjectKey(code), minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %v", ErrStorageUnavailable, ObjectKey(code), err)
	}
	return true, nil
}

// isQRObjectKey 仅接受 qr/ 前缀且以 .png 结尾的键
func isQRObjectKey(key string) bool {
	name := strings.TrimPrefix(key, constants.QRObjectKeyPrefix)
	return name != key && name != constants.QRObjectExt && strings.HasSuffix(name, constants.QRObjectExt)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
