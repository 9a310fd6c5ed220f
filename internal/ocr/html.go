package ocr

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func (e *Extractor) extractHTML(path string) (ExtractionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExtractionResult{Method: "html"}, err
	}
	defer func() { _ = f.Close() }()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return ExtractionResult{Method: "html"}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	var lines []string
	for _, ln := range strings.Split(sel.Text(), "\n") {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			lines = append(lines, ln)
		}
	}
	return ExtractionResult{Text: strings.Join(lines, "\n"), Pages: 1, Method: "html"}, nil
}

func (e *Extractor) extractPlain(path string) (ExtractionResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{Method: "text"}, err
	}
	return ExtractionResult{
		Text:   reCRLF.ReplaceAllString(string(b), "\n"),
		Pages:  1,
		Method: "text",
	}, nil
}
