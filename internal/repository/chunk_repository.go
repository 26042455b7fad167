package repository

import (
	"fmt"

	"gorm.io/gorm"

	"finquery/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// CreateBatch inserts a whole ingestion batch; gorm fills the IDs in place so
// the caller can mirror them into the in-memory index.
func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunk batch failed: %w", err)
	}
	return nil
}

// ListByConversationID returns chunks in insertion order, which is the order
// the index must preserve for its tie-breaking contract.
func (r *ChunkRepository) ListByConversationID(conversationID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("conversation_id = ?", conversationID).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByConversationID(conversationID uint) error {
	if err := r.db.Where("conversation_id = ?", conversationID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by conversation failed: %w", err)
	}
	return nil
}
