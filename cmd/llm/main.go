package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/extract"
	"github.com/joseph-ayodele/docjobs/internal/llm/providers"
	"github.com/joseph-ayodele/docjobs/internal/ocr"
)

// llm runs one gateway operation several times on the same document, for
// eyeballing how stable a backend's answers are.
func main() {
	var (
		configPath = flag.String("config", "", "TOML config file (default $DOCJOBS_CONFIG)")
		op         = flag.String("op", "summarize", "summarize | extract")
		times      = flag.Int("times", 3, "number of runs")
		pause      = flag.Duration("pause", 750*time.Millisecond, "pause between runs")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage: llm [-op summarize|extract] [-times n] <path>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ocrExtractor := ocr.NewExtractor(ocr.Config{
		TesseractLang: cfg.OCR.Lang,
		TessdataDir:   cfg.OCR.TessdataDir,
		MinTextChars:  cfg.OCR.MinTextChars,
	}, logger)
	res, err := extract.NewOCRAdapter(ocrExtractor, logger).Extract(ctx, path)
	if err != nil {
		logger.Error("extract", "path", path, "error", err)
		os.Exit(1)
	}

	gateway, err := providers.NewGateway(context.Background(), cfg.LLM, logger)
	if err != nil {
		logger.Error("analysis backend", "error", err)
		os.Exit(1)
	}

	base := filepath.Base(path)
	for i := 1; i <= *times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), cfg.LLM.Timeout)
		start := time.Now()
		logger.Info("llm.run.start", "iter", i, "op", *op, "basename", base, "backend", gateway.Backend())

		var out any
		switch *op {
		case "extract":
			out = gateway.ExtractStructured(runCtx, res.Text)
		default:
			out, err = gateway.Summarize(runCtx, res.Text)
		}
		cancelRun()

		if err != nil {
			logger.Error("llm.run.error", "iter", i, "err", err)
		} else {
			b, _ := json.Marshal(out)
			logger.Info("llm.run.ok", "iter", i, "elapsed_ms", time.Since(start).Milliseconds(), "output", string(b))
		}

		time.Sleep(*pause)
	}

	logger.Info("done", "path", path, "times", *times)
}
