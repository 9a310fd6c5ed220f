package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "vie"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	PSM           int    // page segmentation mode for scanned pages, default 6
	MaxPages      int    // 0 = no limit
	TessdataDir   string

	// MinTextChars is the fast-path threshold: a PDF whose embedded text is
	// shorter than this is treated as scanned.
	MinTextChars int
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | IMAGE | DOCX | HTML | TEXT
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "docx" | "html" | "text"
	Language   string
	Duration   time.Duration
	Warnings   []string
}

type Extractor struct {
	cfg       Config
	runner    Runner
	pageCount func(path string) (int, error)
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithRunner swaps the process runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func withPageCounter(fn func(string) (int, error)) Option {
	return func(e *Extractor) { e.pageCount = fn }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "vie"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 50
	}
	e := &Extractor{cfg: cfg, runner: processRunner{logger: logger}, pageCount: pdfPageCount, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy based on file extension. Unsupported extensions
// return common.ErrUnsupportedFormat; a supported file that cannot be read
// yields empty text and a nil error.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	format := constants.MapExtToFormat(ext)
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext, "format", format)

	var (
		res ExtractionResult
		err error
	)
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	case constants.DOCX:
		res, err = e.extractDOCX(path)
	case constants.HTML:
		res, err = e.extractHTML(path)
	case constants.TEXT:
		res, err = e.extractPlain(path)
	default:
		e.logger.Error("ocr.extract.unsupported", "extension", ext)
		return ExtractionResult{}, common.NewJobError(common.KindUnsupportedFormat,
			fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	res.SourceType = format
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.extract.failed",
			"path", path, "format", format, "error", err,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		res.Text = ""
		res.Warnings = append(res.Warnings, err.Error())
		return res, nil
	}

	e.logger.Info("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len([]rune(res.Text)),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
