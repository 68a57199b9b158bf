package annotate

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"snapocr/internal/ocr"
)

func white(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestAnnotateDrawsOutlines(t *testing.T) {
	a := New(t.TempDir())
	src := white(30, 20)
	out := a.Annotate(src, []ocr.Word{
		{Text: "語", Confidence: 90, Left: 5, Top: 4, Width: 10, Height: 8},
		{Text: " ", Confidence: 99, Left: 20, Top: 2, Width: 6, Height: 6},
	})

	blue := color.NRGBA{B: 255, A: 255}
	for _, p := range []image.Point{{5, 4}, {14, 4}, {5, 11}, {14, 11}, {10, 4}} {
		if got := out.NRGBAAt(p.X, p.Y); got != blue {
			t.Fatalf("pixel %v = %v, want outline", p, got)
		}
	}
	if got := out.NRGBAAt(10, 8); got == blue {
		t.Fatalf("box interior was filled")
	}
	if got := out.NRGBAAt(22, 3); got == blue {
		t.Fatalf("blank word was outlined")
	}
	if src.NRGBAAt(5, 4) == blue {
		t.Fatalf("source image was modified")
	}
}

func TestAnnotateClipsToImage(t *testing.T) {
	a := New(t.TempDir())
	out := a.Annotate(white(10, 10), []ocr.Word{{Text: "x", Left: 8, Top: 8, Width: 10, Height: 10}})
	if out.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static", "uploads")
	a := New(dir)
	p1, err := a.Save("tesseract", white(4, 4))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	p2, err := a.Save("tesseract", white(4, 4))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if p1 == p2 {
		t.Fatalf("Save() reused the file name %s", p1)
	}
	base := filepath.Base(p1)
	if filepath.Dir(p1) != dir || !strings.HasPrefix(base, "tesseract_") || !strings.HasSuffix(base, ".png") {
		t.Fatalf("unexpected path %s", p1)
	}
	if len(strings.TrimSuffix(strings.TrimPrefix(base, "tesseract_"), ".png")) != 32 {
		t.Fatalf("expected a 32 character hex id in %s", base)
	}
	img, err := imaging.Open(p1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("reopened bounds = %v", img.Bounds())
	}
}
