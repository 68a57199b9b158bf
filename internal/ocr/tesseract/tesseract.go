// Package tesseract recognizes words through libtesseract via gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/tiff"

	"snapocr/internal/ocr"
)

// Name is the registry key of the engine.
const Name = "tesseract"

// defaultEngineMode is OEM_DEFAULT, the only mode gosseract initializes with.
const defaultEngineMode = 3

func init() {
	ocr.Register(Name, func(opts ocr.Options) (ocr.Engine, error) {
		return New(opts)
	})
}

// Engine implements ocr.Engine with one gosseract client per call; clients
// are not safe for concurrent use.
type Engine struct {
	opts          ocr.Options
	clientFactory func() *gosseract.Client
}

// New checks that the requested language data is installed and returns the
// engine. The binding always initializes Tesseract with the default engine
// mode, so other modes are refused.
func New(opts ocr.Options) (*Engine, error) {
	if opts.EngineMode != defaultEngineMode {
		return nil, fmt.Errorf("engine mode %d is not supported by the library binding", opts.EngineMode)
	}
	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	for _, lang := range opts.Languages {
		if !contains(available, lang) {
			return nil, fmt.Errorf("language data %q not installed", lang)
		}
	}
	return &Engine{opts: opts, clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) Name() string { return Name }

// Recognize returns the word-level boxes Tesseract finds in img.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{}); err != nil {
		return nil, fmt.Errorf("encode tiff: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.opts.Languages) > 0 {
		if err := c.SetLanguage(e.opts.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(e.opts.PageSegMode)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{
			Text:       b.Word,
			Confidence: int(b.Confidence),
			Left:       b.Box.Min.X,
			Top:        b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
		})
	}
	return words, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
