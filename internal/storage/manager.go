package storage

import (
	"context"
	"fmt"

	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/logger"
)

// Manager 持有启动时选定的唯一后端，生命周期内不再切换
type Manager struct {
	backend  Backend
	kind     Kind
	caps     Capabilities
	onDemand *OnDemandBackend
	local    *LocalBackend
	object   *ObjectStoreBackend
}

// Option 管理器可选项
type Option func(*managerOptions)

type managerOptions struct {
	objectClient ObjectClient
}

// WithObjectClient 注入对象存储客户端（测试或自定义传输）
func WithObjectClient(client ObjectClient) Option {
	return func(o *managerOptions) {
		o.objectClient = client
	}
}

// Description 后端信息
type Description struct {
	Kind                  Kind   `json:"kind"`
	Mode                  Mode   `json:"mode"`
	Production            bool   `json:"production"`
	ObjectStoreConfigured bool   `json:"object_store_configured"`
	Bucket                string `json:"bucket,omitempty"`
	PublicBaseURL         string `json:"public_base_url,omitempty"`
	LocalDir              string `json:"local_dir,omitempty"`
	LocalPublicPrefix     string `json:"local_public_prefix,omitempty"`
	RegenerateBaseURL     string `json:"regenerate_base_url"`
}

// NewManager 检测环境并创建后端。对象存储客户端创建失败时返回错误，不静默降级。
func NewManager(cfg config.StorageConfig, opts ...Option) (*Manager, error) {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	caps := DetectCapabilities(cfg)
	logPartialObjectStore(caps)

	m := &Manager{
		kind:     SelectKind(caps),
		caps:     caps,
		onDemand: NewOnDemandBackend(cfg.RegenerateBaseURL),
	}

	switch m.kind {
	case KindObjectStore:
		client := options.objectClient
		if client == nil {
			minioClient, err := NewObjectClient(cfg.ObjectStore)
			if err != nil {
				return nil, err
			}
			client = minioClient
		}
		m.object = NewObjectStoreBackend(client, cfg.ObjectStore)
		m.backend = m.object
	case KindOnDemand:
		m.backend = m.onDemand
	case KindLocal:
		m.local = NewLocalBackend(cfg.Local.Dir, cfg.Local.PublicPrefix, m.onDemand)
		m.backend = m.local
	default:
		return nil, fmt.Errorf("unknown storage backend %q", m.kind)
	}

	desc := m.Describe()
	logger.Infow("qr_storage_backend_selected",
		"backend", desc.Kind,
		"mode", desc.Mode,
		"production", desc.Production,
		"bucket", desc.Bucket,
		"local_dir", desc.LocalDir,
	)
	return m, nil
}

// Kind 当前后端类型
func (m *Manager) Kind() Kind {
	return m.kind
}

// Mode 当前后端写入的记录模式
func (m *Manager) Mode() Mode {
	return ModeOf(m.kind)
}

// Capabilities 启动时的环境快照
func (m *Manager) Capabilities() Capabilities {
	return m.caps
}

// Store 写入二维码图片
func (m *Manager) Store(ctx context.Context, code string, data []byte) (Record, error) {
	return m.backend.Store(ctx, code, data)
}

// Delete 幂等删除
func (m *Manager) Delete(ctx context.Context, code, existingURL string) error {
	return m.backend.Delete(ctx, code, existingURL)
}

// Exists 是否存在持久化副本
func (m *Manager) Exists(ctx context.Context, code string) (bool, error) {
	return m.backend.Exists(ctx, code)
}

// DurableURL 持久化副本地址，按需生成模式返回空字符串
func (m *Manager) DurableURL(code string) string {
	switch {
	case m.object != nil:
		return m.object.URL(code)
	case m.local != nil:
		return m.local.URL(code)
	}
	return ""
}

// OnDemandURL 按需生成地址
func (m *Manager) OnDemandURL(code string) string {
	return m.onDemand.URL(code)
}

// Local 本地后端，其他模式返回 nil
func (m *Manager) Local() *LocalBackend {
	return m.local
}

// CacheControl 图片缓存策略
func (m *Manager) CacheControl() string {
	if m.object != nil {
		return m.object.CacheControl()
	}
	return fmt.Sprintf("public, max-age=%d, must-revalidate", defaultCacheMaxAge)
}

// Describe 返回后端信息
func (m *Manager) Describe() Description {
	desc := Description{
		Kind:                  m.kind,
		Mode:                  m.Mode(),
		Production:            m.caps.Production,
		ObjectStoreConfigured: m.caps.ObjectStoreConfigured,
		RegenerateBaseURL:     m.onDemand.baseURL,
	}
	if m.object != nil {
		desc.Bucket = m.object.Bucket()
		desc.PublicBaseURL = m.object.publicBase
	}
	if m.local != nil {
		desc.LocalDir = m.local.Dir()
		desc.LocalPublicPrefix = m.local.PublicPrefix()
	}
	return desc
}
