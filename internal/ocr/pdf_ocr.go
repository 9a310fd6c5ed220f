package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Language: e.cfg.TesseractLang}

	if n, err := e.pageCount(path); err == nil {
		res.Pages = n
	} else {
		res.Warnings = append(res.Warnings, "page count: "+err.Error())
		e.logger.Warn("ocr.pdf.page_count_failed", "path", path, "error", err)
	}

	text, pages, warns, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	chars := common.CharCount(text)
	if err == nil && chars >= e.cfg.MinTextChars {
		res.Text = Normalize(text)
		res.Method = "pdf-text"
		if res.Pages == 0 {
			res.Pages = pages
		}
		return res, nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, "pdftotext: "+err.Error())
	}

	e.logger.Info("ocr.pdf.fallback", "path", path, "text_chars", chars, "min_chars", e.cfg.MinTextChars, "pages", res.Pages)
	text, pages, warns, err = e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	res.Method = "pdf-ocr"
	if err != nil {
		return res, err
	}
	res.Text = Normalize(text)
	res.Pages = pages
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, nonEmpty(string(errb)), err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = strings.Count(text, "\f")
	if pages == 0 {
		pages = 1
	}
	return strings.ReplaceAll(text, "\f", "\n"), pages, nil, nil
}

// pdfToOCR renders every page next to the source file (same job prefix, so the
// workspace cleanup also catches it) and OCRs them in page order.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	dir := path + ".pages"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("ocr.pdf.cleanup_failed", "dir", dir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(dir, "page")
	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <dir/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	if err != nil {
		return "", 0, nonEmpty(string(errb)), fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (page-1.png, page-2.png, ... zero padded past 9 pages)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	texts := make([]string, 0, len(matches))
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img, e.cfg.PSM)
		warnings = append(warnings, w...)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		texts = append(texts, strings.TrimSpace(txt))
	}
	return strings.Join(texts, "\n"), len(matches), warnings, nil
}

func pdfPageCount(path string) (int, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pdf context: %w", err)
	}
	return ctx.PageCount, nil
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{strings.TrimSpace(s)}
}
