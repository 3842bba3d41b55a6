package retrieval

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into a fixed-length vector. Implementations are
// external collaborators; the engine treats any failure as a retrieval
// fallback, never an error to the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// HashingEmbedder is a deterministic in-process embedder: token n-grams are
// feature-hashed into a fixed number of buckets and L2-normalized. It keeps
// the pipeline fully local while an external embedding provider is wired the
// same way behind the interface.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

func (e *HashingEmbedder) Dim() int { return e.dim }

func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := strings.Fields(strings.ToLower(text))
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i+1 < len(tokens) {
			// Bigrams catch phrases like "business hours".
			e.add(vec, tok+" "+tokens[i+1], 0.5)
		}
	}
	normalize(vec)
	return vec, nil
}

func (e *HashingEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dim))
	// The next bit decides sign so hash collisions tend to cancel out.
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// dot assumes both vectors are normalized, making it cosine similarity.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
