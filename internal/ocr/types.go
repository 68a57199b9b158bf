// Package ocr defines the recognizer contract shared by the OCR backends and
// the filtering that turns raw word records into the response payload.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Word is one token reported by a recognizer. Confidence ranges 0..100;
// engines report -1 for regions that hold no text. Coordinates are pixels
// with the origin in the top-left corner.
type Word struct {
	Text       string
	Confidence int
	Left       int
	Top        int
	Width      int
	Height     int
}

// Quad returns the word box as top-left, top-right, bottom-right and
// bottom-left corners.
func (w Word) Quad() [4][2]int {
	r, b := w.Left+w.Width, w.Top+w.Height
	return [4][2]int{{w.Left, w.Top}, {r, w.Top}, {r, b}, {w.Left, b}}
}

// Rect returns the word box as an image rectangle.
func (w Word) Rect() image.Rectangle {
	return image.Rect(w.Left, w.Top, w.Left+w.Width, w.Top+w.Height)
}

// Result is the response payload of a recognition. Text and Boxes always
// have the same length.
type Result struct {
	Text  []string    `json:"text"`
	Boxes [][4][2]int `json:"boxes"`
}

// Filter keeps the words whose confidence is strictly greater than
// minConfidence and whose text is not blank, preserving engine order and the
// untrimmed text.
func Filter(words []Word, minConfidence int) Result {
	res := Result{
		Text:  make([]string, 0, len(words)),
		Boxes: make([][4][2]int, 0, len(words)),
	}
	for _, w := range words {
		if w.Confidence <= minConfidence {
			continue
		}
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		res.Text = append(res.Text, w.Text)
		res.Boxes = append(res.Boxes, w.Quad())
	}
	return res
}

// Options configures a recognizer.
type Options struct {
	// Languages are Tesseract-style language codes, e.g. "jpn", "eng".
	Languages []string
	// EngineMode is the Tesseract OCR engine mode (oem).
	EngineMode int
	// PageSegMode is the Tesseract page segmentation mode (psm).
	PageSegMode int
	// Executable is the tesseract binary for engines that shell out to it.
	Executable string
}

// DefaultOptions recognizes Japanese as a uniform block of text with the
// default engine mode.
func DefaultOptions() Options {
	return Options{Languages: []string{"jpn"}, EngineMode: 3, PageSegMode: 6, Executable: "tesseract"}
}

// Engine is an OCR backend: one image in, the word records out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]Word, error)
}
