package app

import (
	"context"

	"finquery/internal/ai"
	"finquery/internal/model"
)

// Storage and provider seams consumed by the services. The repository and
// platform types satisfy them in production; tests substitute deterministic
// fakes.

type UserStore interface {
	Create(user *model.User) error
	GetByUsername(username string) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	GetByID(id uint) (*model.User, error)
}

type ConversationStore interface {
	Create(conv *model.Conversation) error
	ListByUserID(userID uint) ([]model.Conversation, error)
	GetByIDAndUserID(conversationID, userID uint) (*model.Conversation, error)
	DeleteByIDAndUserID(conversationID, userID uint) error
}

type MessageStore interface {
	ListByConversationID(conversationID uint, limit int) ([]model.Message, error)
	ListRecentByConversationID(conversationID uint, limit int) ([]model.Message, error)
	DeleteByConversationID(conversationID uint) error
}

type DocumentStore interface {
	Create(doc *model.Document) error
	GetByIDAndUserID(documentID, userID uint) (*model.Document, error)
	ListByConversationID(conversationID uint) ([]model.Document, error)
	DeleteByIDAndUserID(documentID, userID uint) error
	DeleteByConversationID(conversationID uint) error
}

type ChunkStore interface {
	CreateBatch(chunks []model.Chunk) error
	ListByConversationID(conversationID uint) ([]model.Chunk, error)
	DeleteByDocumentID(documentID uint) error
	DeleteByConversationID(conversationID uint) error
}

// AsyncTurnPublisher hands finished turns to the persistence queue.
type AsyncTurnPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID uint) error
	MarkDirty(ctx context.Context, conversationID uint) error
	IsDirty(ctx context.Context, conversationID uint) (bool, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

type ChatClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, temperature float64) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, temperature float64, onChunk func(string) error) (string, error)
}
