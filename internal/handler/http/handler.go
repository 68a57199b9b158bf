package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"snapocr/internal/ocr"
	"snapocr/internal/service"
)

// Recognizer is the part of the service the handler depends on.
type Recognizer interface {
	EngineName() string
	Recognize(ctx context.Context, raw string) (ocr.Result, error)
}

// Handler serves the OCR API over HTTP.
type Handler struct {
	ocr          Recognizer
	maxBodyBytes int64
	log          logrus.FieldLogger
}

// NewHandler returns a handler backed by r. maxBodyBytes caps the request
// body; zero or less leaves it unlimited.
func NewHandler(r Recognizer, maxBodyBytes int64, log logrus.FieldLogger) *Handler {
	return &Handler{ocr: r, maxBodyBytes: maxBodyBytes, log: log}
}

type ocrRequest struct {
	Image *string `json:"image"`
}

// OCRHandler handles POST /ocr.
func (h *Handler) OCRHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req ocrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.log.WithError(err).Info("Request without image data")
		respondError(w, service.ErrNoImage.Message, http.StatusBadRequest)
		return
	}

	res, err := h.ocr.Recognize(r.Context(), *req.Image)
	if err != nil {
		var se *service.Error
		if !errors.As(err, &se) {
			h.log.WithError(err).Error("Unexpected recognition failure")
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		status := http.StatusBadRequest
		if se.Kind == service.KindEngine {
			status = http.StatusInternalServerError
		}
		h.log.WithError(se.Err).WithField("kind", se.Kind).Warn(se.Message)
		respondError(w, se.Message, status)
		return
	}

	respondJSON(w, res, http.StatusOK)
}

// HealthHandler reports liveness and the configured engine.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok", "engine": h.ocr.EngineName()}, http.StatusOK)
}

// Routes registers the endpoints on a new mux. staticDir is served at "/"
// when not empty.
func (h *Handler) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ocr", h.OCRHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return logMiddleware(h.log, corsMiddleware(mux))
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// corsMiddleware lets the capture page call the API from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logMiddleware(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("Request handled")
	})
}
