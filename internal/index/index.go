// Package index implements the in-memory similarity index used for retrieval:
// brute-force cosine search over the embeddings of every chunk of one
// conversation. Entries are append-only for the lifetime of the process and
// the structure is rebuilt from persisted chunks after a restart.
package index

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// ErrEmptyIndex is returned when a search runs against an index with no entries.
var ErrEmptyIndex = errors.New("vector index has no entries")

// Entry couples one chunk's embedding with its text and storage identity.
type Entry struct {
	ChunkID uint
	Content string
	Vector  []float32
}

// Hit is one search result.
type Hit struct {
	ChunkID uint    `json:"chunk_id"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// Index is safe for concurrent use: ingestion appends under the write lock,
// searches run under the read lock, so a query never observes a half-appended
// batch.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
}

func New() *Index { return &Index{} }

// Append adds entries in order. The caller embeds the whole batch before
// calling, so a provider failure never reaches the index.
func (ix *Index) Append(entries []Entry) {
	if len(entries) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = append(ix.entries, entries...)
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns the k entries most similar to vector, in descending
// similarity; equal scores keep insertion order, earliest first.
func (ix *Index) Search(vector []float32, k int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		k = 1
	}
	if k > len(ix.entries) {
		k = len(ix.entries)
	}

	scores := make([]float32, len(ix.entries))
	order := make([]int, len(ix.entries))
	for i := range ix.entries {
		scores[i] = cosineSimilarity(vector, ix.entries[i].Vector)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	hits := make([]Hit, 0, k)
	for i := 0; i < k; i++ {
		e := ix.entries[order[i]]
		hits = append(hits, Hit{ChunkID: e.ChunkID, Content: e.Content, Score: scores[order[i]]})
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
