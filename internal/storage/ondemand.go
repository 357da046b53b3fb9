package storage

import (
	"context"
	"net/url"

	"github.com/bullion-next/internal/constants"
)

// OnDemandBackend 不写入任何内容，返回按需生成地址
type OnDemandBackend struct {
	baseURL string
}

// NewOnDemandBackend 创建按需生成后端，baseURL 为空时返回相对地址
func NewOnDemandBackend(baseURL string) *OnDemandBackend {
	return &OnDemandBackend{baseURL: trimBase(baseURL)}
}

func (b *OnDemandBackend) Kind() Kind {
	return KindOnDemand
}

// URL 按需生成地址
func (b *OnDemandBackend) URL(code string) string {
	return b.baseURL + constants.QRRegenerateRoute + url.PathEscape(code)
}

func (b *OnDemandBackend) Store(_ context.Context, code string, _ []byte) (Record, error) {
	code, err := validateCode(code)
	if err != nil {
		return Record{}, err
	}
	return Record{URL: b.URL(code), Mode: ModeLocal}, nil
}

func (b *OnDemandBackend) Delete(context.Context, string, string) error {
	return nil
}

func (b *OnDemandBackend) Exists(context.Context, string) (bool, error) {
	return false, nil
}
