// Package storage 二维码图片的分层存储。
// 启动时按环境选择一次后端：对象存储 > 按需生成（生产只读环境）> 本地文件。
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/logger"
)

var (
	// ErrStorageUnavailable 对象存储写入失败，不降级到其他后端
	ErrStorageUnavailable = errors.New("qr storage unavailable")
	// ErrInvalidObjectCode 序列号不能作为对象名
	ErrInvalidObjectCode = errors.New("invalid qr object code")
)

// Mode 写入商品记录的存储模式
type Mode string

const (
	ModeLocal       Mode = constants.StorageModeLocal
	ModeObjectStore Mode = constants.StorageModeObjectStore
)

// Kind 存储后端类型（封闭集合）
type Kind string

const (
	KindObjectStore Kind = constants.StorageBackendObjectStore
	KindOnDemand    Kind = constants.StorageBackendOnDemand
	KindLocal       Kind = constants.StorageBackendLocal
)

// Record 存储结果
type Record struct {
	URL  string `json:"url"`
	Mode Mode   `json:"mode"`
	// Fallback 本地写入失败后改用按需生成地址
	Fallback bool `json:"fallback,omitempty"`
}

// Backend 存储后端
type Backend interface {
	Kind() Kind
	Store(ctx context.Context, code string, data []byte) (Record, error)
	Delete(ctx context.Context, code, existingURL string) error
	Exists(ctx context.Context, code string) (bool, error)
}

// Capabilities 启动时的环境快照
type Capabilities struct {
	ObjectStoreConfigured bool
	// ObjectStoreMissing 部分配置时缺失的配置项
	ObjectStoreMissing []string
	Production         bool
}

// DetectCapabilities 检测环境。对象存储五项配置必须全部非空，部分配置视为不可用。
func DetectCapabilities(cfg config.StorageConfig) Capabilities {
	store := cfg.ObjectStore
	fields := []struct {
		name  string
		value string
	}{
		{"endpoint", store.Endpoint},
		{"bucket", store.Bucket},
		{"access_key", store.AccessKey},
		{"secret_key", store.SecretKey},
		{"public_base_url", store.PublicBaseURL},
	}
	missing := make([]string, 0, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	caps := Capabilities{
		ObjectStoreConfigured: len(missing) == 0,
		Production:            cfg.Production,
	}
	if len(missing) > 0 && len(missing) < len(fields) {
		caps.ObjectStoreMissing = missing
	}
	return caps
}

// SelectKind 纯函数：按优先级选择后端
func SelectKind(caps Capabilities) Kind {
	switch {
	case caps.ObjectStoreConfigured:
		return KindObjectStore
	case caps.Production:
		return KindOnDemand
	default:
		return KindLocal
	}
}

// ModeOf 后端对应的记录模式
func ModeOf(kind Kind) Mode {
	if kind == KindObjectStore {
		return ModeObjectStore
	}
	return ModeLocal
}

// ObjectKey 对象存储键
func ObjectKey(code string) string {
	return constants.QRObjectKeyPrefix + code + constants.QRObjectExt
}

// FileName 本地文件名
func FileName(code string) string {
	return code + constants.QRObjectExt
}

func validateCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.ContainsAny(trimmed, `/\`) || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectCode, code)
	}
	return trimmed, nil
}

func trimBase(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// stripQuery 去掉地址中的查询串与片段
func stripQuery(raw string) string {
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		return raw[:idx]
	}
	return raw
}

// keyBelow 当地址位于 base 之下时返回相对部分
func keyBelow(base, rawURL string) (string, bool) {
	base = trimBase(base)
	target := stripQuery(strings.TrimSpace(rawURL))
	if base == "" || target == "" || !strings.HasPrefix(target, base+"/") {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(target, base+"/"))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}

func logPartialObjectStore(caps Capabilities) {
	if len(caps.ObjectStoreMissing) == 0 {
		return
	}
	logger.Warnw("qr_object_store_partial_config",
		"missing", strings.Join(caps.ObjectStoreMissing, ","),
	)
}
