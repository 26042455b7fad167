package model

import "time"

// Document records one uploaded PDF. The extracted text itself is not kept;
// only its chunks are.
type Document struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	ChunkCount     int       `gorm:"not null" json:"chunk_count"`
	CreatedAt      time.Time `json:"created_at"`
}
