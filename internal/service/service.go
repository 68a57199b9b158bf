// Package service runs one OCR request: decode, preprocess, recognize and
// filter.
package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"snapocr/internal/decode"
	"snapocr/internal/ocr"
	"snapocr/internal/preprocess"
)

// ErrNoImage is returned to callers that did not send an image field.
var ErrNoImage = &Error{Kind: KindInput, Message: "No image data provided"}

// Config tunes filtering and caching.
type Config struct {
	// MinConfidence is the exclusive lower bound on word confidence.
	MinConfidence int
	// CacheTTL enables the result cache when positive.
	CacheTTL time.Duration
}

// Service is safe for concurrent use when its engine is.
type Service struct {
	engine        ocr.Engine
	pre           preprocess.Preprocessor
	minConfidence int
	cache         *cache.Cache
	log           logrus.FieldLogger
}

// New returns a service recognizing with engine after running pre. The
// result cache is created only when cfg.CacheTTL is positive.
func New(engine ocr.Engine, pre preprocess.Preprocessor, cfg Config, log logrus.FieldLogger) *Service {
	s := &Service{
		engine:        engine,
		pre:           pre,
		minConfidence: cfg.MinConfidence,
		log:           log,
	}
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 10*cfg.CacheTTL)
	}
	return s
}

// EngineName reports the backend recognizing the images.
func (s *Service) EngineName() string { return s.engine.Name() }

// Recognize decodes a raw or data-URL base64 image and returns the words the
// engine reports above the confidence threshold. Failures are *Error.
func (s *Service) Recognize(ctx context.Context, raw string) (ocr.Result, error) {
	start := time.Now()

	data, err := decode.Base64(raw)
	if err != nil {
		return ocr.Result{}, inputError(fmt.Sprintf("Base64 decode error: %v", err), err)
	}
	img, err := decode.Image(data)
	if err != nil {
		s.log.WithError(err).Debug("Image decode failed")
		return ocr.Result{}, inputError("Could not decode image", err)
	}

	preStart := time.Now()
	binary, err := s.pre.Preprocess(img)
	if err != nil {
		return ocr.Result{}, &Error{Kind: KindEngine, Message: fmt.Sprintf("Preprocessing error: %v", err), Err: err}
	}
	s.log.WithFields(logrus.Fields{
		"preprocessor": s.pre.Name(),
		"size":         fmt.Sprintf("%dx%d", binary.Rect.Dx(), binary.Rect.Dy()),
		"duration":     time.Since(preStart),
	}).Debug("Time taken for preprocessing")

	key := s.cacheKey(binary)
	if key != "" {
		if cached, found := s.cache.Get(key); found {
			s.log.WithField("key", key).Info("Image hash found in cache")
			return cached.(ocr.Result), nil
		}
	}

	ocrStart := time.Now()
	words, err := s.engine.Recognize(ctx, binary)
	if err != nil {
		return ocr.Result{}, &Error{
			Kind:    KindEngine,
			Message: fmt.Sprintf("%s processing error: %v", engineLabel(s.engine.Name()), err),
			Err:     err,
		}
	}
	res := ocr.Filter(words, s.minConfidence)
	s.log.WithFields(logrus.Fields{
		"engine":   s.engine.Name(),
		"words":    len(words),
		"kept":     len(res.Text),
		"duration": time.Since(ocrStart),
	}).Info("Time taken for OCR processing")

	if key != "" {
		s.cache.Set(key, res, cache.DefaultExpiration)
	}
	s.log.WithField("duration", time.Since(start)).Debug("Total processing time")
	return res, nil
}

// cacheKey identifies a preprocessed image by its perceptual difference hash
// and size. It is empty when caching is off or hashing fails.
func (s *Service) cacheKey(img *image.Gray) string {
	if s.cache == nil {
		return ""
	}
	h, err := goimagehash.ExtDifferenceHash(img, 32, 32)
	if err != nil {
		s.log.WithError(err).Warn("Error generating image hash")
		return ""
	}
	return fmt.Sprintf("%s:%dx%d", h.ToString(), img.Rect.Dx(), img.Rect.Dy())
}

func engineLabel(name string) string {
	switch name {
	case "vision":
		return "Vision"
	default:
		return "Tesseract"
	}
}
