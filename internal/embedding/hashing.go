// Package embedding holds provider-independent embedders: a deterministic
// hashing embedder for local runs and a caching decorator.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

const DefaultHashingDimensions = 384

// HashingEmbedder maps text to a vector by feature hashing its lower-cased
// word tokens. Texts sharing words land close together, which is enough
// for development and for exercising retrieval without a network.
type HashingEmbedder struct {
	dimensions int
}

func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingEmbedder{dimensions: dimensions}
}

func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *HashingEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "text cannot be empty")
	}

	vec := make([]float32, e.dimensions)
	tokens := tokenize(text)
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimensions))
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	// No word characters at all: fall back to a seeded sequence so the
	// vector is still non-zero and stable.
	if len(tokens) == 0 {
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum64()
		for i := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
		}
	}

	return normalize(vec), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
