package ocr

import (
	"context"
	"fmt"
	"strconv"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	txt, warn, err := e.tesseractOCR(ctx, path, 0)
	if err != nil {
		return ExtractionResult{Method: "image-ocr", Warnings: warn}, err
	}
	return ExtractionResult{
		Text:     Normalize(txt),
		Pages:    1,
		Method:   "image-ocr",
		Language: e.cfg.TesseractLang,
		Warnings: warn,
	}, nil
}

// tesseractOCR runs `tesseract <file> stdout -l <lang> [--psm N]`. psm 0 keeps
// tesseract's default segmentation.
func (e *Extractor) tesseractOCR(ctx context.Context, path string, psm int) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if psm > 0 {
		args = append(args, "--psm", strconv.Itoa(psm))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", nonEmpty(string(errb)), fmt.Errorf("tesseract: %w", err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}
