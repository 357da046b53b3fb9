package qrcode

import (
	"os"
	"strings"

	"github.com/bullion-next/internal/logger"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

const (
	fontSourceCustom = "custom"
	fontSourceGoMono = "gomono"
	fontSourceGoBold = "gobold"
	fontSourceBasic  = "basic"
)

// typeface 已解析的字体；parsed 为 nil 时使用 basicfont 位图字体
type typeface struct {
	parsed *opentype.Font
	source string
}

// newFace 按字号创建 face。opentype face 非并发安全，每次渲染单独创建。
func (t typeface) newFace(size float64) font.Face {
	if t.parsed == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(t.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logger.Warnw("qr_font_face_failed", "source", t.source, "size", size, "error", err)
		return basicfont.Face7x13
	}
	return face
}

// scalable 位图字体无法缩放
func (t typeface) scalable() bool {
	return t.parsed != nil
}

// loadSerialTypeface 序列号字体：自定义字体 -> Go Mono -> basicfont
func loadSerialTypeface(fontPath string) typeface {
	path := strings.TrimSpace(fontPath)
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			var parsed *opentype.Font
			parsed, err = opentype.Parse(data)
			if err == nil {
				return typeface{parsed: parsed, source: fontSourceCustom}
			}
		}
		logger.Warnw("qr_font_register_failed",
			"font_path", path,
			"error", err,
			"fallback", fontSourceGoMono,
		)
	}
	return parseBuiltin(gomono.TTF, fontSourceGoMono)
}

// loadTitleTypeface 商品名字体
func loadTitleTypeface() typeface {
	return parseBuiltin(gobold.TTF, fontSourceGoBold)
}

func parseBuiltin(data []byte, source string) typeface {
	parsed, err := opentype.Parse(data)
	if err != nil {
		logger.Warnw("qr_font_register_failed",
			"font", source,
			"error", err,
			"fallback", fontSourceBasic,
		)
		return typeface{source: fontSourceBasic}
	}
	return typeface{parsed: parsed, source: source}
}
