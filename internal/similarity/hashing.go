package similarity

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashingEmbedder is a local bag-of-words embedder: lowercased word tokens are
// hashed into a fixed number of buckets. It needs no model download, so it is
// always available.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Name() string { return "hashing" }

func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		v[xxhash.Sum64String(tok)%uint64(h.dim)]++
	}
	return v, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
