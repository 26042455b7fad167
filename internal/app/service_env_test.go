package app

import (
	"testing"

	"go.uber.org/zap"

	"finquery/internal/ai"
	"finquery/internal/index"
	"finquery/internal/model"
	"finquery/internal/pkg/pdfextract"
)

// testEnv wires both services against in-memory fakes, with extraction
// replaced by a pass-through so plain text can stand in for PDF bytes.
type testEnv struct {
	store     *memStore
	chunks    *memChunkStore
	embedder  *fakeEmbedder
	chat      *fakeChat
	publisher *fakePublisher
	indexes   *index.Manager
	ingest    *IngestService
	answer    *AnswerService
}

func newTestEnv(t *testing.T, ingestCfg IngestConfig) *testEnv {
	t.Helper()

	store := newMemStore()
	chunkStore := &memChunkStore{s: store}
	embedder := &fakeEmbedder{vectors: make(map[string][]float32)}
	chat := &fakeChat{answer: "the answer"}
	publisher := &fakePublisher{s: store}
	locks := NewConversationLocks()
	logger := zap.NewNop()

	indexes := index.NewManager(func(conversationID uint) ([]index.Entry, error) {
		chunks, err := chunkStore.ListByConversationID(conversationID)
		if err != nil {
			return nil, err
		}
		entries := make([]index.Entry, 0, len(chunks))
		for i := range chunks {
			entries = append(entries, index.Entry{
				ChunkID: chunks[i].ID,
				Content: chunks[i].Content,
				Vector:  chunks[i].EmbeddingVector(),
			})
		}
		return entries, nil
	})

	embCfg := ai.EmbeddingConfig{BaseURL: "http://provider", APIKey: "test-key", Model: "embed-model"}
	ingest := NewIngestService(
		memConvStore{store},
		memDocStore{store},
		chunkStore,
		embedder,
		embCfg,
		ingestCfg,
		indexes,
		locks,
		logger,
	)
	ingest.extract = func(files []pdfextract.File) (string, error) {
		var out string
		for _, f := range files {
			out += string(f.Data)
		}
		return out, nil
	}

	answer := NewAnswerService(
		memConvStore{store},
		memMessageStore{store},
		memDocStore{store},
		chunkStore,
		publisher,
		nil,
		chat,
		embedder,
		AnswerConfig{
			Chat:               ai.ChatConfig{BaseURL: "http://provider", APIKey: "test-key", Model: "chat-model"},
			Embedding:          embCfg,
			DefaultTemperature: 0.2,
			TopK:               4,
		},
		indexes,
		locks,
		logger,
	)

	return &testEnv{
		store:     store,
		chunks:    chunkStore,
		embedder:  embedder,
		chat:      chat,
		publisher: publisher,
		indexes:   indexes,
		ingest:    ingest,
		answer:    answer,
	}
}

func (e *testEnv) newConversation(t *testing.T, userID uint) *model.Conversation {
	t.Helper()
	conv, err := e.answer.CreateConversation(CreateConversationInput{UserID: userID, Title: "Q2 filings"})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return conv
}
