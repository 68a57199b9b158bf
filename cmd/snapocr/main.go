package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"snapocr/internal/annotate"
	"snapocr/internal/config"
	"snapocr/internal/decode"
	httpHandler "snapocr/internal/handler/http"
	"snapocr/internal/logging"
	"snapocr/internal/ocr"
	_ "snapocr/internal/ocr/tesseract"
	_ "snapocr/internal/ocr/tesseractcli"
	_ "snapocr/internal/ocr/vision"
	"snapocr/internal/preprocess"
	"snapocr/internal/service"
)

func main() {
	args, p, err := config.Parse(os.Args[1:])
	if p == nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	switch {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(os.Stdout)
		return
	case err != nil:
		p.Fail(err.Error())
	}

	log, logFile, err := logging.New(args.LogFile, args.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	pre, err := preprocess.New(args.Preprocessor, preprocess.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to set up preprocessing: %v", err)
	}

	opts := args.OCROptions()
	engine := ocr.NewLazy(args.Engine, opts)
	fields := logrus.Fields{
		"engine":    args.Engine,
		"languages": strings.Join(opts.Languages, "+"),
	}
	if args.UsesExecutable() {
		fields["tesseract"] = opts.Executable
	}
	log.WithFields(fields).Info("OCR engine configured")

	switch {
	case args.Serve != nil:
		err = serve(log, args.Serve, engine, pre, args.MinConfidence)
	case args.Annotate != nil:
		err = annotateFile(context.Background(), args.Annotate, engine, pre)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func serve(log *logrus.Logger, cfg *config.Serve, engine *ocr.Lazy, pre preprocess.Preprocessor, minConfidence int) error {
	if cfg.EagerCheck {
		if err := engine.Check(); err != nil {
			return fmt.Errorf("ocr engine %s: %w", engine.Name(), err)
		}
		log.Infof("OCR engine %s ready", engine.Name())
	}

	svc := service.New(engine, pre, service.Config{
		MinConfidence: minConfidence,
		CacheTTL:      cfg.CacheTTL,
	}, log)
	handler := httpHandler.NewHandler(svc, cfg.MaxBodyBytes, log)

	addr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("Starting OCR server on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// annotateFile recognizes one image file, prints the recognized words and
// the path of the copy with the word boxes drawn on it.
func annotateFile(ctx context.Context, cfg *config.Annotate, engine ocr.Engine, pre preprocess.Preprocessor) error {
	data, err := os.ReadFile(cfg.Image)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	img, err := decode.Image(data)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Image, err)
	}

	input := img
	if cfg.Preprocess {
		gray, err := pre.Preprocess(img)
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}
		input = gray
	}

	words, err := engine.Recognize(ctx, input)
	if err != nil {
		return fmt.Errorf("%s: %w", engine.Name(), err)
	}

	a := annotate.New(cfg.UploadDir)
	out, err := a.Save(engine.Name(), a.Annotate(img, words))
	if err != nil {
		return err
	}

	for _, text := range ocr.Filter(words, -1).Text {
		fmt.Println(text)
	}
	fmt.Println(out)
	return nil
}
