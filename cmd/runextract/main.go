package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/extract"
	"github.com/joseph-ayodele/docjobs/internal/ocr"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file (default $DOCJOBS_CONFIG)")
		printText  = flag.Bool("print", false, "print the extracted text to stdout")
		timeout    = flag.Duration("timeout", 2*time.Minute, "extraction timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runextract [-config file] [-print] <path>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ocrx := ocr.NewExtractor(ocr.Config{
		TesseractLang: cfg.OCR.Lang,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		MaxPages:      cfg.OCR.MaxPages,
		TessdataDir:   cfg.OCR.TessdataDir,
		MinTextChars:  cfg.OCR.MinTextChars,
	}, logger)
	textExtractor := extract.NewOCRAdapter(ocrx, logger)

	res, err := textExtractor.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed",
			"path", path, "kind", common.KindOf(err), "error", err, "duration_ms", res.Duration.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"path", path,
		"source_type", res.SourceType,
		"method", res.Method,
		"pages", res.Pages,
		"chars", common.CharCount(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	if *printText {
		fmt.Println(res.Text)
	}
}
