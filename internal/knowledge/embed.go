package knowledge

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// ErrDimensionMismatch is returned when vectors from different spaces meet
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Space identifies the vector space an embedder produces.
// Vectors are only ever compared within one space.
type Space struct {
	Name string
	Dim  int
}

// Embedder maps text to a dense vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Space() Space
}

// embedIn embeds text and checks the vector has the space's dimension
func embedIn(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vec, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if space := e.Space(); len(vec) != space.Dim {
		return nil, fmt.Errorf("%w: %s returned %d values, want %d", ErrDimensionMismatch, space.Name, len(vec), space.Dim)
	}
	return vec, nil
}

// HashEmbedder is an offline embedder using signed feature hashing over
// lowercased word and bigram tokens. Vectors are L2-normalized.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder creates a hashing embedder with dim dimensions
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{Dim: dim}
}

// Space names the hashing space; vectors of different Dim are unrelated
func (h *HashEmbedder) Space() Space {
	return Space{Name: "hash", Dim: h.Dim}
}

// Embed never fails
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.Dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i, w := range words {
		h.add(vec, w, 1.0)
		if i > 0 {
			h.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	normalize(vec)
	return vec, nil
}

func (h *HashEmbedder) add(vec []float64, token string, weight float64) {
	hasher := fnv.New64a()
	hasher.Write([]byte(token))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.Dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}
