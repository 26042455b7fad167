package model

import (
	"encoding/json"
	"time"
)

// Chunk stores one retrieval unit: a bounded slice of extracted document text
// together with its embedding. The embedding is kept as a JSON array of float32
// in a text column for portability across MySQL versions.
type Chunk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DocumentID     uint      `gorm:"not null;index" json:"document_id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Seq            int       `gorm:"not null" json:"seq"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Embedding      string    `gorm:"type:mediumtext" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding; nil on empty or parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}
