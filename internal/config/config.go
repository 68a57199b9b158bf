// Package config reads the command line and environment of the snapocr
// binary.
package config

import (
	"strings"
	"time"

	"github.com/alexflint/go-arg"

	"snapocr/internal/ocr"
	"snapocr/internal/ocr/tesseractcli"
)

// Tesseract locations for the two deployment targets.
const (
	HerokuTesseract = "/usr/bin/tesseract"
	LocalTesseract  = `C:\Program Files\Tesseract-OCR\tesseract.exe`
)

// OCR holds the options shared by every command that runs OCR.
type OCR struct {
	Dyno          string `arg:"--dyno,env:DYNO" help:"set on Heroku dynos; selects the system tesseract"`
	TesseractCmd  string `arg:"--tesseract-cmd,env:TESSERACT_CMD" help:"tesseract executable, overrides the deployment default"`
	Engine        string `arg:"--engine,env:OCR_ENGINE" default:"tesseract" help:"tesseract, tesseract-cli or vision"`
	Lang          string `arg:"--lang,env:OCR_LANG" default:"jpn" help:"languages, joined with +"`
	OEM           int    `arg:"--oem,env:OCR_OEM" default:"3" help:"tesseract engine mode"`
	PSM           int    `arg:"--psm,env:OCR_PSM" default:"6" help:"tesseract page segmentation mode"`
	MinConfidence int    `arg:"--min-confidence,env:OCR_MIN_CONFIDENCE" default:"60" help:"words at or below this confidence are dropped"`
	Preprocessor  string `arg:"--preprocessor,env:PREPROCESSOR" default:"standard" help:"standard or opencv"`
	LogFile       string `arg:"--log-file,env:LOG_FILE" help:"append logs to this file instead of stderr"`
	LogLevel      string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
}

// Serve configures the HTTP service.
type Serve struct {
	Port         string        `arg:"--port,env:PORT" default:"5000"`
	EagerCheck   bool          `arg:"--eager-check,env:OCR_EAGER_CHECK" help:"fail at startup when the engine is unusable"`
	CacheTTL     time.Duration `arg:"--cache-ttl,env:CACHE_TTL" default:"0s" help:"result cache lifetime, 0 disables it"`
	MaxBodyBytes int64         `arg:"--max-body-bytes,env:MAX_BODY_BYTES" default:"20971520"`
	StaticDir    string        `arg:"--static-dir,env:STATIC_DIR" default:"./static"`
}

// Annotate recognizes one image file and stores an annotated copy.
type Annotate struct {
	Image      string `arg:"positional,required" help:"image file to recognize"`
	UploadDir  string `arg:"--upload-folder,env:UPLOAD_FOLDER" default:"static/uploads"`
	Preprocess bool   `arg:"--preprocess" help:"run the OCR preprocessing before recognition"`
}

// Args is the command line of the snapocr binary.
type Args struct {
	OCR
	Serve    *Serve    `arg:"subcommand:serve" help:"run the HTTP OCR service"`
	Annotate *Annotate `arg:"subcommand:annotate" help:"recognize an image file and save a copy with word boxes"`
}

func (Args) Description() string {
	return "OCR service for base64 encoded camera captures"
}

// Parse reads args (without the program name) and the environment. A
// command line without a subcommand runs serve, so a bare `snapocr` with
// PORT set starts the server.
func Parse(args []string) (*Args, *arg.Parser, error) {
	a, p, err := parse(args)
	if err == nil && p.Subcommand() == nil {
		a, p, err = parse(append(args[:len(args):len(args)], "serve"))
	}
	return a, p, err
}

func parse(args []string) (*Args, *arg.Parser, error) {
	var a Args
	p, err := arg.NewParser(arg.Config{Program: "snapocr"}, &a)
	if err != nil {
		return nil, nil, err
	}
	return &a, p, p.Parse(args)
}

// TesseractPath picks the tesseract executable: the explicit override, the
// Heroku location when running on a dyno, the local install otherwise.
func (e OCR) TesseractPath() string {
	switch {
	case e.TesseractCmd != "":
		return e.TesseractCmd
	case e.Dyno != "":
		return HerokuTesseract
	default:
		return LocalTesseract
	}
}

// UsesExecutable reports whether the selected engine runs the tesseract
// binary rather than linking libtesseract.
func (e OCR) UsesExecutable() bool { return e.Engine == tesseractcli.Name }

// OCROptions converts the flags into engine options, splitting Lang on '+'.
func (e OCR) OCROptions() ocr.Options {
	var langs []string
	for _, l := range strings.Split(e.Lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return ocr.Options{
		Languages:   langs,
		EngineMode:  e.OEM,
		PageSegMode: e.PSM,
		Executable:  e.TesseractPath(),
	}
}
