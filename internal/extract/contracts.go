package extract

import (
	"context"
	"time"
)

// TextExtractor turns a materialized file into plain text. Unsupported
// formats are errors; unreadable supported files give empty text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
}
