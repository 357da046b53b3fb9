// Package qrcode 生成带标签的防伪二维码图片。
// 输出由二维码矩阵与下方文字区域组成：可选的商品名称区域与序列号区域。
package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/serial"

	goqrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	defaultQRSize          = 600
	defaultPadding         = 24
	defaultTitleBandHeight = 56
	defaultCodeBandHeight  = 64
	defaultTitleFontSize   = 30
	defaultCodeFontSize    = 40
	minCodeFontSize        = 12

	ellipsis = "..."
)

var ErrEmptyTargetURL = errors.New("qr target url is empty")

// Outcome 渲染结果类型
type Outcome string

const (
	// OutcomeRendered 完整输出（二维码 + 标签）
	OutcomeRendered Outcome = "rendered"
	// OutcomeRenderedWithoutLabel 标签无效，仅输出二维码
	OutcomeRenderedWithoutLabel Outcome = "rendered_without_label"
)

// Options 渲染参数
type Options struct {
	QRSize          int
	Padding         int
	TitleBandHeight int
	CodeBandHeight  int
	TitleFontSize   int
	CodeFontSize    int
	FontPath        string
}

// Artifact 渲染产物及布局元数据
type Artifact struct {
	PNG            []byte
	Width          int
	Height         int
	Outcome        Outcome
	TargetURL      string
	Title          string
	TitleTruncated bool
	SerialText     string
	DegradedReason string
}

// Labeled 是否包含文字标签
func (a *Artifact) Labeled() bool {
	return a != nil && a.Outcome == OutcomeRendered
}

// Renderer 二维码渲染器，字体在创建时加载一次
type Renderer struct {
	opts       Options
	serialFont typeface
	titleFont  typeface
}

// NewRenderer 创建渲染器
func NewRenderer(opts Options) *Renderer {
	opts = normalizeOptions(opts)
	r := &Renderer{
		opts:       opts,
		serialFont: loadSerialTypeface(opts.FontPath),
		titleFont:  loadTitleTypeface(),
	}
	logger.Debugw("qr_renderer_ready",
		"qr_size", opts.QRSize,
		"serial_font", r.serialFont.source,
		"title_font", r.titleFont.source,
	)
	return r
}

func normalizeOptions(opts Options) Options {
	if opts.QRSize <= 0 {
		opts.QRSize = defaultQRSize
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	} else if opts.Padding == 0 {
		opts.Padding = defaultPadding
	}
	if opts.TitleBandHeight <= 0 {
		opts.TitleBandHeight = defaultTitleBandHeight
	}
	if opts.CodeBandHeight <= 0 {
		opts.CodeBandHeight = defaultCodeBandHeight
	}
	if opts.TitleFontSize <= 0 {
		opts.TitleFontSize = defaultTitleFontSize
	}
	if opts.CodeFontSize <= 0 {
		opts.CodeFontSize = defaultCodeFontSize
	}
	return opts
}

// Options 返回生效的渲染参数
func (r *Renderer) Options() Options {
	return r.opts
}

// Render 渲染二维码图片。
// 序列号无效时不返回错误，而是输出不带标签的二维码并记录审计日志。
func (r *Renderer) Render(targetURL, serialCode, productName string) (*Artifact, error) {
	target := strings.TrimSpace(targetURL)
	if target == "" {
		return nil, ErrEmptyTargetURL
	}
	code := strings.TrimSpace(serialCode)
	title := strings.TrimSpace(productName)

	matrix, err := encodeMatrix(target, r.opts.QRSize)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{TargetURL: target}
	var canvas *image.RGBA

	if reason := serial.LabelProblem(code); reason != "" {
		logger.ForSerial(code).Warnw("qr_label_degraded",
			"reason", reason,
			"target_url", target,
		)
		canvas = r.composeBare(matrix)
		artifact.Outcome = OutcomeRenderedWithoutLabel
		artifact.DegradedReason = reason
	} else {
		canvas = r.composeLabeled(matrix, code, title, artifact)
		artifact.Outcome = OutcomeRendered
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode qr png failed: %w", err)
	}
	bounds := canvas.Bounds()
	artifact.PNG = buf.Bytes()
	artifact.Width = bounds.Dx()
	artifact.Height = bounds.Dy()
	return artifact, nil
}

// encodeMatrix 以最高纠错等级编码，深色前景浅色背景，保留标准静区
func encodeMatrix(content string, size int) (image.Image, error) {
	q, err := goqrcode.New(content, goqrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("encode qr matrix failed: %w", err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	return q.Image(size), nil
}

func (r *Renderer) composeBare(matrix image.Image) *image.RGBA {
	width := r.opts.QRSize + 2*r.opts.Padding
	height := r.opts.QRSize + 2*r.opts.Padding
	canvas := newCanvas(width, height)
	r.drawMatrix(canvas, matrix)
	return canvas
}

func (r *Renderer) composeLabeled(matrix image.Image, code, title string, artifact *Artifact) *image.RGBA {
	width := r.opts.QRSize + 2*r.opts.Padding
	height := r.opts.Padding + r.opts.QRSize + r.opts.CodeBandHeight + r.opts.Padding
	if title != "" {
		height += r.opts.TitleBandHeight
	}
	canvas := newCanvas(width, height)
	r.drawMatrix(canvas, matrix)

	bandTop := r.opts.Padding + r.opts.QRSize
	maxTextWidth := width - 2*r.opts.Padding

	if title != "" {
		face := r.titleFont.newFace(float64(r.opts.TitleFontSize))
		fitted, truncated := fitText(face, title, maxTextWidth)
		if truncated {
			logger.ForSerial(code).Infow("qr_title_truncated",
				"product_name", title,
				"rendered", fitted,
			)
		}
		drawCentered(canvas, face, fitted, bandTop, r.opts.TitleBandHeight)
		closeFace(face)
		artifact.Title = fitted
		artifact.TitleTruncated = truncated
		bandTop += r.opts.TitleBandHeight
	}

	face := r.serialFace(code, maxTextWidth)
	drawCentered(canvas, face, code, bandTop, r.opts.CodeBandHeight)
	closeFace(face)
	artifact.SerialText = code
	return canvas
}

// serialFace 序列号不允许截断，过宽时逐级缩小字号
func (r *Renderer) serialFace(code string, maxWidth int) font.Face {
	size := r.opts.CodeFontSize
	face := r.serialFont.newFace(float64(size))
	if !r.serialFont.scalable() {
		return face
	}
	for size > minCodeFontSize && measure(face, code) > maxWidth {
		closeFace(face)
		size -= 2
		face = r.serialFont.newFace(float64(size))
	}
	return face
}

func (r *Renderer) drawMatrix(canvas *image.RGBA, matrix image.Image) {
	offset := image.Pt(r.opts.Padding, r.opts.Padding)
	rect := image.Rectangle{Min: offset, Max: offset.Add(matrix.Bounds().Size())}
	draw.Draw(canvas, rect, matrix, matrix.Bounds().Min, draw.Src)
}

func newCanvas(width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	return canvas
}

// fitText 按实际字体度量逐字截断并追加省略号
func fitText(face font.Face, text string, maxWidth int) (string, bool) {
	if measure(face, text) <= maxWidth {
		return text, false
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimRight(string(runes), " ") + ellipsis
		if measure(face, candidate) <= maxWidth {
			return candidate, true
		}
	}
	return ellipsis, true
}

func measure(face font.Face, text string) int {
	return font.MeasureString(face, text).Ceil()
}

func drawCentered(canvas *image.RGBA, face font.Face, text string, bandTop, bandHeight int) {
	width := canvas.Bounds().Dx()
	textWidth := measure(face, text)
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	x := (width - textWidth) / 2
	if x < 0 {
		x = 0
	}
	baseline := bandTop + (bandHeight+ascent-descent)/2

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

func closeFace(face font.Face) {
	if face == nil {
		return
	}
	_ = face.Close()
}
