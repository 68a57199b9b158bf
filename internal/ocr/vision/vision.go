// Package vision recognizes words with the Google Cloud Vision document text
// detection API.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"github.com/disintegration/imaging"
	pb "google.golang.org/genproto/googleapis/cloud/vision/v1"

	"snapocr/internal/ocr"
)

const Name = "vision"

func init() {
	ocr.Register(Name, func(opts ocr.Options) (ocr.Engine, error) {
		return New(context.Background(), opts)
	})
}

// Engine implements ocr.Engine on top of an ImageAnnotatorClient. The
// client is safe for concurrent use and shared across requests.
type Engine struct {
	client *vision.ImageAnnotatorClient
}

// New dials the Vision API with the application default credentials.
func New(ctx context.Context, opts ocr.Options) (*Engine, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &Engine{client: client}, nil
}

func (e *Engine) Name() string { return Name }

// Close releases the API connection.
func (e *Engine) Close() error { return e.client.Close() }

// Recognize sends img as PNG to DetectDocumentText.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Word, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	vimg, err := vision.NewImageFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("vision image: %w", err)
	}
	ann, err := e.client.DetectDocumentText(ctx, vimg, nil)
	if err != nil {
		return nil, fmt.Errorf("detect document text: %w", err)
	}
	return wordsFrom(ann), nil
}

// wordsFrom flattens the page/block/paragraph/word hierarchy. Word text is
// the concatenation of its symbols and the box is the axis-aligned bounds of
// the word polygon.
func wordsFrom(ann *pb.TextAnnotation) []ocr.Word {
	var words []ocr.Word
	for _, page := range ann.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				for _, w := range para.GetWords() {
					var sb strings.Builder
					for _, s := range w.GetSymbols() {
						sb.WriteString(s.GetText())
					}
					r := bounds(w.GetBoundingBox().GetVertices())
					words = append(words, ocr.Word{
						Text:       sb.String(),
						Confidence: int(w.GetConfidence() * 100),
						Left:       r.Min.X,
						Top:        r.Min.Y,
						Width:      r.Dx(),
						Height:     r.Dy(),
					})
				}
			}
		}
	}
	return words
}

func bounds(vs []*pb.Vertex) image.Rectangle {
	if len(vs) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(int(vs[0].GetX()), int(vs[0].GetY()), int(vs[0].GetX()), int(vs[0].GetY()))
	for _, v := range vs[1:] {
		x, y := int(v.GetX()), int(v.GetY())
		if x < r.Min.X {
			r.Min.X = x
		}
		if y < r.Min.Y {
			r.Min.Y = y
		}
		if x > r.Max.X {
			r.Max.X = x
		}
		if y > r.Max.Y {
			r.Max.Y = y
		}
	}
	return r
}
