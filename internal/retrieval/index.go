package retrieval

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cob-labs/carebot/internal/knowledge"
)

var ErrPassageNotFound = errors.New("passage not found")

// Hit is one nearest-neighbour result.
type Hit struct {
	PassageID string
	Score     float64
}

// Index stores passage embeddings and answers nearest-neighbour queries by
// cosine similarity. Equal scores are ordered by passage id ascending so
// results are reproducible.
type Index interface {
	Upsert(ctx context.Context, p knowledge.Passage, vec []float32) error
	Query(ctx context.Context, vec []float32, topK int) ([]Hit, error)
	Passage(ctx context.Context, id string) (knowledge.Passage, error)
	Close() error
}

// MemoryIndex is the in-process brute-force index used for local/dev runs
// and tests.
type MemoryIndex struct {
	mu       sync.RWMutex
	passages map[string]knowledge.Passage
	vectors  map[string][]float32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		passages: make(map[string]knowledge.Passage),
		vectors:  make(map[string][]float32),
	}
}

func (m *MemoryIndex) Upsert(_ context.Context, p knowledge.Passage, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passages[p.ID] = p
	m.vectors[p.ID] = append([]float32(nil), vec...)
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, vec []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	hits := make([]Hit, 0, len(m.vectors))
	for id, v := range m.vectors {
		hits = append(hits, Hit{PassageID: id, Score: dot(vec, v)})
	}
	m.mu.RUnlock()

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) Passage(_ context.Context, id string) (knowledge.Passage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.passages[id]
	if !ok {
		return knowledge.Passage{}, ErrPassageNotFound
	}
	return p, nil
}

func (m *MemoryIndex) Close() error { return nil }

// sortHits orders by score descending, then passage id ascending.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PassageID < hits[j].PassageID
	})
}
