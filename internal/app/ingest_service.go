package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"finquery/internal/ai"
	"finquery/internal/index"
	"finquery/internal/model"
	"finquery/internal/pkg/pdfextract"
	"finquery/internal/splitter"
)

// IngestService turns uploaded PDFs into indexed chunks: extract, split,
// embed, persist, then append to the conversation's in-memory index. Every
// step that can fail runs before the first write, so a failed upload leaves
// both the database and the index exactly as they were.
type IngestService struct {
	convStore   ConversationStore
	docStore    DocumentStore
	chunkStore  ChunkStore
	embedClient EmbeddingClient
	embConfig   ai.EmbeddingConfig

	chunkSize      int
	chunkOverlap   int
	embedBatchSize int

	extract func(files []pdfextract.File) (string, error)

	indexes *index.Manager
	locks   *ConversationLocks
	logger  *zap.Logger
}

type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
}

func NewIngestService(
	convStore ConversationStore,
	docStore DocumentStore,
	chunkStore ChunkStore,
	embedClient EmbeddingClient,
	embConfig ai.EmbeddingConfig,
	cfg IngestConfig,
	indexes *index.Manager,
	locks *ConversationLocks,
	logger *zap.Logger,
) *IngestService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 10
	}
	return &IngestService{
		convStore:      convStore,
		docStore:       docStore,
		chunkStore:     chunkStore,
		embedClient:    embedClient,
		embConfig:      embConfig,
		chunkSize:      cfg.ChunkSize,
		chunkOverlap:   cfg.ChunkOverlap,
		embedBatchSize: cfg.EmbedBatchSize,
		extract:        pdfextract.ExtractAll,
		indexes:        indexes,
		locks:          locks,
		logger:         logger,
	}
}

// IngestInput is one upload call: a batch of PDFs bound for one conversation.
// APIKeyOverride lets the caller supply their own provider credential for
// this request.
type IngestInput struct {
	UserID         uint
	ConversationID uint
	Files          []pdfextract.File
	APIKeyOverride string
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
}

// Ingest runs the whole pipeline for one upload batch. Error kinds:
// *pdfextract.ParseError for a bad buffer, splitter.ErrBadChunkConfig for an
// unusable size/overlap pair, ai.ErrEmbeddingProvider for provider failures.
// All of them leave previously indexed chunks untouched and queryable.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.UserID == 0 || input.ConversationID == 0 || len(input.Files) == 0 {
		return nil, ErrInvalidInput
	}

	conv, err := s.convStore.GetByIDAndUserID(input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	text, err := s.extract(input.Files)
	if err != nil {
		return nil, err
	}

	chunks, err := splitter.Split(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoExtractableText
	}

	unlock := s.locks.Lock(input.ConversationID)
	defer unlock()

	// Hydrate before persisting the new batch so the loader cannot see it.
	ix, err := s.indexes.Get(input.ConversationID)
	if err != nil {
		return nil, err
	}

	cfg := s.embConfig
	if key := strings.TrimSpace(input.APIKeyOverride); key != "" {
		cfg.APIKey = key
	}

	embeddings, err := s.embedAll(ctx, cfg, chunks)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		Name:           batchName(input.Files),
		ChunkCount:     len(chunks),
	}
	if err := s.docStore.Create(doc); err != nil {
		return nil, err
	}

	rows := make([]model.Chunk, len(chunks))
	for i := range chunks {
		rows[i] = model.Chunk{
			DocumentID:     doc.ID,
			ConversationID: input.ConversationID,
			Seq:            i,
			Content:        chunks[i].Text,
		}
		rows[i].SetEmbedding(embeddings[i])
	}
	if err := s.chunkStore.CreateBatch(rows); err != nil {
		_ = s.docStore.DeleteByIDAndUserID(doc.ID, input.UserID)
		return nil, err
	}

	entries := make([]index.Entry, len(rows))
	for i := range rows {
		entries[i] = index.Entry{
			ChunkID: rows[i].ID,
			Content: rows[i].Content,
			Vector:  embeddings[i],
		}
	}
	ix.Append(entries)

	s.logger.Info("ingested documents",
		zap.Uint("conversation_id", input.ConversationID),
		zap.Int("files", len(input.Files)),
		zap.Int("chunks", len(chunks)),
		zap.Int("index_size", ix.Len()),
	)

	return &IngestResult{
		Document:   *doc,
		ChunkCount: len(rows),
	}, nil
}

// embedAll embeds every chunk before anything is written. Provider batch
// limits force multiple calls; a failure in any of them fails the whole
// ingest with nothing applied.
func (s *IngestService) embedAll(ctx context.Context, cfg ai.EmbeddingConfig, chunks []splitter.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	var embeddings [][]float32
	for i := 0; i < len(texts); i += s.embedBatchSize {
		end := i + s.embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedClient.EmbedBatch(ctx, cfg, texts[i:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d for %d chunks", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// ListDocuments returns the documents of one conversation the user owns.
func (s *IngestService) ListDocuments(userID, conversationID uint) ([]model.Document, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}
	conv, err := s.convStore.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return s.docStore.ListByConversationID(conversationID)
}

// DeleteDocument removes a document and its chunks and drops the resident
// index so the next query rebuilds it without the removed entries.
func (s *IngestService) DeleteDocument(userID, documentID uint) error {
	if userID == 0 || documentID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docStore.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	unlock := s.locks.Lock(doc.ConversationID)
	defer unlock()

	if err := s.chunkStore.DeleteByDocumentID(doc.ID); err != nil {
		return err
	}
	if err := s.docStore.DeleteByIDAndUserID(doc.ID, userID); err != nil {
		return err
	}
	s.indexes.Invalidate(doc.ConversationID)
	return nil
}

func batchName(files []pdfextract.File) string {
	name := strings.TrimSpace(files[0].Name)
	if name == "" {
		name = "Untitled"
	}
	if len(files) > 1 {
		name = fmt.Sprintf("%s (+%d more)", name, len(files)-1)
	}
	if len(name) > 256 {
		name = name[:256]
	}
	return name
}
