package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/logger"

	"github.com/google/uuid"
)

const (
	defaultLocalDir    = "./public/qr"
	defaultLocalPrefix = "/qr"
	tempFileSuffix     = ".tmp"
)

// LocalBackend 写入本地目录，写入失败时退回按需生成地址
type LocalBackend struct {
	dir      string
	prefix   string
	fallback *OnDemandBackend
}

// NewLocalBackend 创建本地后端
func NewLocalBackend(dir, publicPrefix string, fallback *OnDemandBackend) *LocalBackend {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultLocalDir
	}
	prefix := trimBase(publicPrefix)
	if prefix == "" {
		prefix = defaultLocalPrefix
	}
	if fallback == nil {
		fallback = NewOnDemandBackend("")
	}
	return &LocalBackend{dir: dir, prefix: prefix, fallback: fallback}
}

func (b *LocalBackend) Kind() Kind {
	return KindLocal
}

// Dir 本地目录
func (b *LocalBackend) Dir() string {
	return b.dir
}

// PublicPrefix 静态访问前缀
func (b *LocalBackend) PublicPrefix() string {
	return b.prefix
}

// Path 文件完整路径
func (b *LocalBackend) Path(code string) string {
	return filepath.Join(b.dir, FileName(code))
}

// ServablePath 静态访问时将文件名映射为本地路径。
// 只放行已完成写入的二维码文件，隐藏文件与临时文件不可访问。
func (b *LocalBackend) ServablePath(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, tempFileSuffix) {
		return "", false
	}
	code, ok := strings.CutSuffix(name, constants.QRObjectExt)
	if !ok {
		return "", false
	}
	if _, err := validateCode(code); err != nil {
		return "", false
	}
	return b.Path(code), true
}

// URL 本地静态地址
func (b *LocalBackend) URL(code string) string {
	return b.prefix + "/" + FileName(code)
}

// Store 临时文件写入后原子重命名
func (b *LocalBackend) Store(ctx context.Context, code string, data []byte) (Record, error) {
	code, err := validateCode(code)
	if err != nil {
		return Record{}, err
	}
	if err := b.write(code, data); err != nil {
		logger.ForSerial(code).Warnw("qr_local_write_fallback",
			"dir", b.dir,
			"error", err,
		)
		record, fbErr := b.fallback.Store(ctx, code, data)
		if fbErr != nil {
			return Record{}, fbErr
		}
		record.Fallback = true
		return record, nil
	}
	return Record{URL: b.URL(code), Mode: ModeLocal}, nil
}

func (b *LocalBackend) write(code string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create qr dir failed: %w", err)
	}
	fullPath := b.Path(code)
	tmpPath := filepath.Join(b.dir, "."+code+"-"+uuid.NewString()[:8]+tempFileSuffix)

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file failed: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file failed: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file failed: %w", err)
	}
	return nil
}

// Delete 删除本地文件，文件不存在视为成功
func (b *LocalBackend) Delete(_ context.Context, code, existingURL string) error {
	code, err := validateCode(code)
	if err != nil {
		return err
	}
	targets := []string{b.Path(code)}
	if rel, ok := keyBelow(b.prefix, existingURL); ok && !strings.Contains(rel, "/") && rel != FileName(code) {
		targets = append(targets, filepath.Join(b.dir, rel))
	}
	for _, target := range targets {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove qr file %s failed: %w", target, err)
		}
	}
	return nil
}

func (b *LocalBackend) Exists(_ context.Context, code string) (bool, error) {
	code, err := validateCode(code)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(b.Path(code))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// CleanupTempFiles 清理中断写入遗留的临时文件
func (b *LocalBackend) CleanupTempFiles(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), tempFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
