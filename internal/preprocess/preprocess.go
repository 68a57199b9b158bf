// Package preprocess prepares decoded images for OCR: grayscale, blur,
// histogram equalization, CLAHE, gamma, Otsu binarization, inversion and a
// morphological opening, in that order.
package preprocess

import (
	"fmt"
	"image"
)

const (
	NameStandard = "standard"
	NameOpenCV   = "opencv"
)

// Preprocessor turns a color raster into the single-channel image handed to
// the OCR engine.
type Preprocessor interface {
	Name() string
	Preprocess(img image.Image) (*image.Gray, error)
}

// Params holds the constants of the pipeline.
type Params struct {
	ClipLimit  float64
	TileGrid   int
	Gamma      float64
	OpenKernel int
}

// DefaultParams are the values the OCR endpoint runs with.
var DefaultParams = Params{
	ClipLimit:  3.0,
	TileGrid:   8,
	Gamma:      1.5,
	OpenKernel: 1,
}

// New returns the preprocessor registered under name.
func New(name string, p Params) (Preprocessor, error) {
	switch name {
	case "", NameStandard:
		return &Standard{Params: p}, nil
	case NameOpenCV:
		return NewOpenCV(p)
	default:
		return nil, fmt.Errorf("unknown preprocessor %q", name)
	}
}

// Standard runs the pipeline in pure Go.
type Standard struct {
	Params Params
}

func (s *Standard) Name() string { return NameStandard }

// Preprocess runs the stages in order and never fails.
func (s *Standard) Preprocess(img image.Image) (*image.Gray, error) {
	gray := Grayscale(img)
	gray = GaussianBlur(gray)
	gray = EqualizeHist(gray)
	gray = CLAHE(gray, s.Params.ClipLimit, s.Params.TileGrid, s.Params.TileGrid)
	gray = Gamma(gray, s.Params.Gamma)
	gray = Threshold(gray, Otsu(gray))
	gray = Invert(gray)
	return Open(gray, s.Params.OpenKernel), nil
}
