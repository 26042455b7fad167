package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEmptyIndex(t *testing.T) {
	ix := New()
	_, err := ix.Search([]float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestSearchOrdersByDescendingSimilarity(t *testing.T) {
	ix := New()
	ix.Append([]Entry{
		{ChunkID: 1, Content: "orthogonal", Vector: []float32{0, 1}},
		{ChunkID: 2, Content: "exact", Vector: []float32{1, 0}},
		{ChunkID: 3, Content: "diagonal", Vector: []float32{1, 1}},
	})

	hits, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, uint(2), hits[0].ChunkID)
	assert.Equal(t, uint(3), hits[1].ChunkID)
	assert.Equal(t, uint(1), hits[2].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Greater(t, hits[1].Score, hits[2].Score)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ix := New()
	ix.Append([]Entry{
		{ChunkID: 10, Content: "first", Vector: []float32{1, 0}},
		{ChunkID: 20, Content: "second", Vector: []float32{2, 0}},
		{ChunkID: 30, Content: "third", Vector: []float32{3, 0}},
	})

	// All three are parallel to the query, so all scores are equal.
	hits, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, uint(10), hits[0].ChunkID)
	assert.Equal(t, uint(20), hits[1].ChunkID)
	assert.Equal(t, uint(30), hits[2].ChunkID)
}

func TestSearchClampsK(t *testing.T) {
	ix := New()
	ix.Append([]Entry{
		{ChunkID: 1, Vector: []float32{1, 0}},
		{ChunkID: 2, Vector: []float32{0, 1}},
	})

	hits, err := ix.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = ix.Search([]float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestAppendGrowsIndex(t *testing.T) {
	ix := New()
	assert.Equal(t, 0, ix.Len())

	ix.Append([]Entry{{ChunkID: 1, Vector: []float32{1}}})
	ix.Append([]Entry{{ChunkID: 2, Vector: []float32{1}}, {ChunkID: 3, Vector: []float32{1}}})
	assert.Equal(t, 3, ix.Len())
}

func TestCosineSimilarityMismatchedVectors(t *testing.T) {
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.Equal(t, float32(0), cosineSimilarity(nil, nil))
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}
