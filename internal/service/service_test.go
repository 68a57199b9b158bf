package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus/hooks/test"

	"snapocr/internal/decode"
	"snapocr/internal/ocr"
	"snapocr/internal/preprocess"
)

type fakeEngine struct {
	words []ocr.Word
	err   error
	calls int
	last  image.Image
}

func (f *fakeEngine) Name() string { return "tesseract" }

func (f *fakeEngine) Recognize(ctx context.Context, img image.Image) ([]ocr.Word, error) {
	f.calls++
	f.last = img
	return f.words, f.err
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 240, G: 240, B: 240, A: 255}
			if x > w/4 && x < w/2 && y > h/4 && y < 3*h/4 {
				c = color.NRGBA{R: 10, G: 10, B: 10, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newService(engine ocr.Engine, ttl time.Duration) *Service {
	log, _ := test.NewNullLogger()
	return New(engine, &preprocess.Standard{Params: preprocess.DefaultParams}, Config{MinConfidence: 60, CacheTTL: ttl}, log)
}

func TestRecognize(t *testing.T) {
	engine := &fakeEngine{words: []ocr.Word{
		{Text: "", Confidence: -1, Width: 40, Height: 30},
		{Text: "1", Confidence: 91, Left: 10, Top: 7, Width: 10, Height: 15},
		{Text: "2", Confidence: 60, Left: 30, Top: 7, Width: 10, Height: 15},
	}}
	s := newService(engine, 0)

	res, err := s.Recognize(context.Background(), pngDataURL(t, 40, 30))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if len(res.Text) != 1 || res.Text[0] != "1" {
		t.Fatalf("Recognize() text = %q", res.Text)
	}
	if res.Boxes[0] != [4][2]int{{10, 7}, {20, 7}, {20, 22}, {10, 22}} {
		t.Fatalf("Recognize() box = %v", res.Boxes[0])
	}

	gray, ok := engine.last.(*image.Gray)
	if !ok {
		t.Fatalf("engine received %T, want *image.Gray", engine.last)
	}
	if gray.Rect.Dx() != 40 || gray.Rect.Dy() != 30 {
		t.Fatalf("engine received %v", gray.Rect)
	}
}

func TestRecognizeInputErrors(t *testing.T) {
	s := newService(&fakeEngine{}, 0)
	tests := []struct {
		name    string
		raw     string
		prefix  string
		wrapped error
	}{
		{"invalid base64", "data:image/png;base64,@@@@", "Base64 decode error: ", decode.ErrBase64},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("plain text, not pixels")), "Could not decode image", decode.ErrImage},
		{"empty", "", "Could not decode image", decode.ErrImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Recognize(context.Background(), tt.raw)
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if se.Kind != KindInput {
				t.Fatalf("kind = %v, want input", se.Kind)
			}
			if !strings.HasPrefix(se.Message, tt.prefix) {
				t.Fatalf("message = %q, want prefix %q", se.Message, tt.prefix)
			}
			if !errors.Is(err, tt.wrapped) {
				t.Fatalf("expected %v in chain, got %v", tt.wrapped, err)
			}
		})
	}
}

func TestRecognizeEngineError(t *testing.T) {
	cause := errors.New("tesseract is not installed")
	s := newService(&fakeEngine{err: cause}, 0)
	_, err := s.Recognize(context.Background(), pngDataURL(t, 16, 16))
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindEngine {
		t.Fatalf("expected engine error, got %v", err)
	}
	if se.Message != "Tesseract processing error: tesseract is not installed" {
		t.Fatalf("message = %q", se.Message)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestRecognizeCache(t *testing.T) {
	engine := &fakeEngine{words: []ocr.Word{{Text: "a", Confidence: 99, Width: 1, Height: 1}}}
	s := newService(engine, time.Minute)
	raw := pngDataURL(t, 48, 32)
	for i := 0; i < 3; i++ {
		if _, err := s.Recognize(context.Background(), raw); err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
	}
	if engine.calls != 1 {
		t.Fatalf("engine called %d times with cache on, want 1", engine.calls)
	}

	uncached := &fakeEngine{}
	s = newService(uncached, 0)
	for i := 0; i < 2; i++ {
		if _, err := s.Recognize(context.Background(), raw); err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
	}
	if uncached.calls != 2 {
		t.Fatalf("engine called %d times with cache off, want 2", uncached.calls)
	}
}

func TestKindString(t *testing.T) {
	if KindInput.String() != "input" || KindEngine.String() != "engine" || Kind(0).String() != "unknown" {
		t.Fatalf("unexpected kind strings")
	}
}
