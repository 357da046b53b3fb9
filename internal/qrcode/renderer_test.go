package qrcode

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png failed: %v", err)
	}
	return img
}

func scanQR(t *testing.T, img image.Image) string {
	t.Helper()
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		t.Fatalf("build bitmap failed: %v", err)
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		t.Fatalf("scan qr failed: %v", err)
	}
	return result.GetText()
}

func TestRenderLabeledRoundTrip(t *testing.T) {
	r := NewRenderer(Options{})
	target := "https://verify.example.com/verify/SKA000001"
	artifact, err := r.Render(target, "SKA000001", "1oz Gold Bar")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if artifact.Outcome != OutcomeRendered {
		t.Fatalf("want outcome %s got %s", OutcomeRendered, artifact.Outcome)
	}
	if artifact.SerialText != "SKA000001" || artifact.Title != "1oz Gold Bar" {
		t.Fatalf("unexpected labels: %+v", artifact)
	}

	img := decodePNG(t, artifact.PNG)
	wantWidth := defaultQRSize + 2*defaultPadding
	wantHeight := defaultPadding + defaultQRSize + defaultTitleBandHeight + defaultCodeBandHeight + defaultPadding
	if img.Bounds().Dx() != wantWidth || img.Bounds().Dy() != wantHeight {
		t.Fatalf("want %dx%d got %dx%d", wantWidth, wantHeight, img.Bounds().Dx(), img.Bounds().Dy())
	}
	if artifact.Width != wantWidth || artifact.Height != wantHeight {
		t.Fatalf("artifact size mismatch: %dx%d", artifact.Width, artifact.Height)
	}
	if got := scanQR(t, img); got != target {
		t.Fatalf("want decoded %q got %q", target, got)
	}
}

func TestRenderWithoutTitleOmitsTitleBand(t *testing.T) {
	r := NewRenderer(Options{})
	artifact, err := r.Render("https://verify.example.com/verify/GB00001", "GB00001", "  ")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	wantHeight := defaultPadding + defaultQRSize + defaultCodeBandHeight + defaultPadding
	if artifact.Height != wantHeight {
		t.Fatalf("want height %d got %d", wantHeight, artifact.Height)
	}
	if artifact.Title != "" {
		t.Fatalf("title should be empty, got %q", artifact.Title)
	}
}

func TestRenderDegradesInvalidSerial(t *testing.T) {
	r := NewRenderer(Options{})
	target := "https://verify.example.com/verify/x"
	cases := map[string]string{
		"":       "empty",
		"000000": "all_zero",
		"AB":     "too_short",
	}
	for code, reason := range cases {
		artifact, err := r.Render(target, code, "Gold")
		if err != nil {
			t.Fatalf("serial %q should not fail: %v", code, err)
		}
		if artifact.Outcome != OutcomeRenderedWithoutLabel {
			t.Fatalf("serial %q want degraded outcome got %s", code, artifact.Outcome)
		}
		if artifact.DegradedReason != reason {
			t.Fatalf("serial %q want reason %s got %s", code, reason, artifact.DegradedReason)
		}
		bare := defaultQRSize + 2*defaultPadding
		if artifact.Width != bare || artifact.Height != bare {
			t.Fatalf("degraded image should be square %d, got %dx%d", bare, artifact.Width, artifact.Height)
		}
		if artifact.Labeled() {
			t.Fatalf("degraded artifact should not report labels")
		}
		if got := scanQR(t, decodePNG(t, artifact.PNG)); got != target {
			t.Fatalf("degraded qr should still scan, got %q", got)
		}
	}
}

func TestRenderRejectsEmptyTarget(t *testing.T) {
	r := NewRenderer(Options{})
	if _, err := r.Render("   ", "SKA000001", "Gold"); !errors.Is(err, ErrEmptyTargetURL) {
		t.Fatalf("want ErrEmptyTargetURL got %v", err)
	}
}

func TestRenderTruncatesLongTitle(t *testing.T) {
	r := NewRenderer(Options{})
	long := strings.Repeat("Perth Mint Kangaroo Fine Gold ", 8)
	artifact, err := r.Render("https://verify.example.com/verify/SKA000002", "SKA000002", long)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !artifact.TitleTruncated {
		t.Fatalf("long title should be truncated")
	}
	if !strings.HasSuffix(artifact.Title, ellipsis) {
		t.Fatalf("truncated title should end with ellipsis, got %q", artifact.Title)
	}
	if artifact.SerialText != "SKA000002" {
		t.Fatalf("serial text must never be truncated, got %q", artifact.SerialText)
	}
}

func TestFitTextKeepsShortText(t *testing.T) {
	r := NewRenderer(Options{})
	face := r.titleFont.newFace(defaultTitleFontSize)
	defer closeFace(face)
	got, truncated := fitText(face, "Gold", 600)
	if truncated || got != "Gold" {
		t.Fatalf("short text should be unchanged, got %q truncated=%v", got, truncated)
	}
	got, truncated = fitText(face, "Gold Bar", 1)
	if !truncated || got != ellipsis {
		t.Fatalf("text wider than any prefix should collapse to ellipsis, got %q", got)
	}
}

func TestNewRendererFallsBackOnBadFont(t *testing.T) {
	r := NewRenderer(Options{FontPath: "/nonexistent/font.ttf"})
	if r.serialFont.source != fontSourceGoMono {
		t.Fatalf("want fallback font %s got %s", fontSourceGoMono, r.serialFont.source)
	}
	if _, err := r.Render("https://verify.example.com/verify/SKA000003", "SKA000003", ""); err != nil {
		t.Fatalf("render with fallback font failed: %v", err)
	}
}

func TestSerialFaceShrinksForWideCode(t *testing.T) {
	r := NewRenderer(Options{QRSize: 120, Padding: 4})
	code := "SKAB123456"
	face := r.serialFace(code, 120)
	defer closeFace(face)
	if width := measure(face, code); width > 120 {
		t.Fatalf("serial should shrink to fit 120px, got %d", width)
	}
}
