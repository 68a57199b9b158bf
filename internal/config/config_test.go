package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseServeDefaults(t *testing.T) {
	a, _, err := Parse([]string{"serve"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if a.Serve == nil {
		t.Fatalf("serve subcommand not selected")
	}
	if a.Serve.Port != "5000" || a.Serve.EagerCheck || a.Serve.CacheTTL != 0 {
		t.Fatalf("unexpected serve defaults %+v", a.Serve)
	}
	if a.Engine != "tesseract" || a.MinConfidence != 60 || a.Preprocessor != "standard" {
		t.Fatalf("unexpected ocr defaults %+v", a.OCR)
	}
	opts := a.OCROptions()
	if !reflect.DeepEqual(opts.Languages, []string{"jpn"}) || opts.EngineMode != 3 || opts.PageSegMode != 6 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestParseWithoutSubcommandServes(t *testing.T) {
	t.Setenv("PORT", "8082")

	for _, args := range [][]string{nil, {"--lang", "eng"}} {
		a, p, err := Parse(args)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", args, err)
		}
		if a.Serve == nil || p.Subcommand() != a.Serve {
			t.Fatalf("Parse(%q) did not select serve", args)
		}
		if a.Serve.Port != "8082" {
			t.Fatalf("Parse(%q) port = %q, want 8082", args, a.Serve.Port)
		}
	}
}

func TestUsesExecutable(t *testing.T) {
	if (OCR{Engine: "tesseract"}).UsesExecutable() {
		t.Errorf("libtesseract engine reported as using the executable")
	}
	if !(OCR{Engine: "tesseract-cli"}).UsesExecutable() {
		t.Errorf("tesseract-cli engine not reported as using the executable")
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("OCR_LANG", "jpn+eng")
	t.Setenv("OCR_EAGER_CHECK", "true")

	a, _, err := Parse([]string{"serve"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if a.Serve.Port != "8081" || a.Serve.CacheTTL != 30*time.Second || !a.Serve.EagerCheck {
		t.Fatalf("environment ignored: %+v", a.Serve)
	}
	if got := a.OCROptions().Languages; !reflect.DeepEqual(got, []string{"jpn", "eng"}) {
		t.Fatalf("languages = %q", got)
	}
}

func TestParseAnnotate(t *testing.T) {
	a, _, err := Parse([]string{"--engine", "tesseract-cli", "annotate", "--preprocess", "receipt.jpg"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if a.Annotate == nil || a.Annotate.Image != "receipt.jpg" || !a.Annotate.Preprocess {
		t.Fatalf("unexpected annotate args %+v", a.Annotate)
	}
	if a.Annotate.UploadDir != "static/uploads" || a.Engine != "tesseract-cli" {
		t.Fatalf("unexpected defaults %+v / %+v", a.Annotate, a.OCR)
	}
}

func TestTesseractPath(t *testing.T) {
	tests := []struct {
		name string
		ocr  OCR
		want string
	}{
		{"local", OCR{}, LocalTesseract},
		{"heroku", OCR{Dyno: "web.1"}, HerokuTesseract},
		{"override", OCR{Dyno: "web.1", TesseractCmd: "/opt/bin/tesseract"}, "/opt/bin/tesseract"},
	}
	for _, tt := range tests {
		if got := tt.ocr.TesseractPath(); got != tt.want {
			t.Errorf("%s: TesseractPath() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
