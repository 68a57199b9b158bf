// Package annotate draws recognized word boxes onto images and stores the
// result in an upload folder.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"snapocr/internal/ocr"
)

// Annotator draws word outlines of Color, Thickness pixels wide, and saves
// the results under Dir.
type Annotator struct {
	Dir       string
	Color     color.Color
	Thickness int
}

// New returns an annotator drawing 2px blue outlines into dir.
func New(dir string) *Annotator {
	return &Annotator{Dir: dir, Color: color.NRGBA{B: 255, A: 255}, Thickness: 2}
}

// Annotate returns a copy of img with an outline around every word that has
// non-blank text.
func (a *Annotator) Annotate(img image.Image, words []ocr.Word) *image.NRGBA {
	dst := imaging.Clone(img)
	src := image.NewUniform(a.Color)
	t := a.Thickness
	if t < 1 {
		t = 1
	}
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		r := w.Rect()
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
			image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
			image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(dst, e.Intersect(dst.Rect), src, image.Point{}, draw.Src)
		}
	}
	return dst
}

// Save writes img as <Dir>/<prefix>_<random hex>.png and returns the path.
func (a *Annotator) Save(prefix string, img image.Image) (string, error) {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload folder: %w", err)
	}
	id := uuid.New()
	name := fmt.Sprintf("%s_%x.png", prefix, id[:])
	path := filepath.Join(a.Dir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("save annotated image: %w", err)
	}
	return path, nil
}
