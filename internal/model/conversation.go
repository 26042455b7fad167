package model

import "time"

// Conversation is one logical question-answering session. Documents, chunks and
// messages all hang off a conversation, and each conversation owns one in-memory
// vector index while the process is running.
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
