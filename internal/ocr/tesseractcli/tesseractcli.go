// Package tesseractcli recognizes words by running the tesseract executable
// and parsing its TSV output.
package tesseractcli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"snapocr/internal/ocr"
)

// Name is the registry key of the engine.
const Name = "tesseract-cli"

func init() {
	ocr.Register(Name, func(opts ocr.Options) (ocr.Engine, error) {
		return New(opts)
	})
}

// Engine implements ocr.Engine by running the tesseract executable once per
// image and reading its TSV output.
type Engine struct {
	path string
	opts ocr.Options
}

// New resolves the configured executable. A missing binary is reported here
// so the caller can decide between failing at startup and failing per request.
func New(opts ocr.Options) (*Engine, error) {
	path, err := exec.LookPath(opts.Executable)
	if err != nil {
		return nil, fmt.Errorf("tesseract executable: %w", err)
	}
	return &Engine{path: path, opts: opts}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) args() []string {
	args := []string{"stdin", "stdout"}
	if len(e.opts.Languages) > 0 {
		args = append(args, "-l", strings.Join(e.opts.Languages, "+"))
	}
	args = append(args,
		"--oem", strconv.Itoa(e.opts.EngineMode),
		"--psm", strconv.Itoa(e.opts.PageSegMode),
		"tsv",
	)
	return args
}

// Recognize pipes img to tesseract as PNG and returns every TSV row as a
// word. Cancelling ctx kills the process.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Word, error) {
	var in bytes.Buffer
	if err := imaging.Encode(&in, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.path, e.args()...)
	cmd.Stdin = &in
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run tesseract: %w - %s", err, msg)
		}
		return nil, fmt.Errorf("run tesseract: %w", err)
	}
	return ParseTSV(&stdout)
}

// ParseTSV reads tesseract's TSV output. Every row becomes a Word, including
// the page, block, paragraph and line rows that carry confidence -1.
func ParseTSV(r io.Reader) ([]ocr.Word, error) {
	var words []ocr.Word
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	header := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if header {
			header = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 12)
		if len(fields) < 11 {
			return nil, fmt.Errorf("tsv row has %d fields: %q", len(fields), line)
		}
		var nums [4]int
		for i := range nums {
			n, err := strconv.Atoi(fields[6+i])
			if err != nil {
				return nil, fmt.Errorf("tsv geometry %q: %w", fields[6+i], err)
			}
			nums[i] = n
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, fmt.Errorf("tsv confidence %q: %w", fields[10], err)
		}
		w := ocr.Word{
			Confidence: int(conf),
			Left:       nums[0],
			Top:        nums[1],
			Width:      nums[2],
			Height:     nums[3],
		}
		if len(fields) == 12 {
			w.Text = fields[11]
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return words, nil
}
