// Package decode turns the base64 payload of an OCR request into an image.
package decode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	ErrBase64 = errors.New("base64 decode error")
	ErrImage  = errors.New("could not decode image")
)

// decodeError reports the underlying failure while matching its sentinel
// with errors.Is.
type decodeError struct {
	kind error
	err  error
}

func (e *decodeError) Error() string   { return e.err.Error() }
func (e *decodeError) Unwrap() []error { return []error{e.kind, e.err} }

// Payload strips a data-URL header ("data:image/png;base64,") by keeping
// everything after the first comma. Input without a comma is returned as is.
func Payload(raw string) string {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// Pad appends '=' until the length is a multiple of four.
func Pad(s string) string {
	if missing := len(s) % 4; missing != 0 {
		s += strings.Repeat("=", 4-missing)
	}
	return s
}

// Base64 extracts, pads and decodes the payload of raw.
func Base64(raw string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(Pad(Payload(raw)))
	if err != nil {
		return nil, &decodeError{kind: ErrBase64, err: err}
	}
	return data, nil
}

// Image decodes an encoded image container into a raster, applying the EXIF
// orientation if present.
func Image(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &decodeError{kind: ErrImage, err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &decodeError{kind: ErrImage, err: errors.New("empty image")}
	}
	return img, nil
}
