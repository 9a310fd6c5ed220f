package ocr

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// extractDOCX reads word/document.xml and joins paragraph texts with "\n".
// Table cells and text boxes are paragraphs too and come out in document order.
func (e *Extractor) extractDOCX(path string) (ExtractionResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return ExtractionResult{Method: "docx"}, fmt.Errorf("open docx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return ExtractionResult{Method: "docx"}, errors.New("docx: word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return ExtractionResult{Method: "docx"}, fmt.Errorf("open document.xml: %w", err)
	}
	defer func() { _ = rc.Close() }()

	paras, err := docxParagraphs(rc)
	if err != nil {
		return ExtractionResult{Method: "docx"}, err
	}
	return ExtractionResult{
		Text:   strings.Join(paras, "\n"),
		Pages:  1,
		Method: "docx",
	}, nil
}

func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras  []string
		stack  []*strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "p":
				stack = append(stack, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\t')
				}
			case "br", "cr":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if n := len(stack); n > 0 {
					paras = append(paras, stack[n-1].String())
					stack = stack[:n-1]
				}
			}
		case xml.CharData:
			if inText && len(stack) > 0 {
				stack[len(stack)-1].Write(t)
			}
		}
	}
	return paras, nil
}
