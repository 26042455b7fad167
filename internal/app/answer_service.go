package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"finquery/internal/ai"
	"finquery/internal/index"
	"finquery/internal/model"
)

const systemPrompt = "You are a financial document assistant. Answer the user's question using only the context excerpts below. Quote figures exactly as they appear. If the context does not contain the answer, say so plainly; do not make up facts."

const emptyAnswerFallback = "The model returned an empty response."

// AnswerService owns the question/answer side: conversations, retrieval,
// prompting, the model call, and history. One conversation's turns are
// strictly serialized through the shared conversation locks.
type AnswerService struct {
	convStore    ConversationStore
	msgStore     MessageStore
	docStore     DocumentStore
	chunkStore   ChunkStore
	publisher    AsyncTurnPublisher
	historyCache HistoryCache
	chatClient   ChatClient
	embedClient  EmbeddingClient

	chatConfig  ai.ChatConfig
	embConfig   ai.EmbeddingConfig
	defaultTemp float64
	maxContext  int
	topK        int

	indexes *index.Manager
	locks   *ConversationLocks
	logger  *zap.Logger
}

type AnswerConfig struct {
	Chat               ai.ChatConfig
	Embedding          ai.EmbeddingConfig
	DefaultTemperature float64
	MaxContextMessage  int // 0 = unbounded prompt history
	TopK               int
}

func NewAnswerService(
	convStore ConversationStore,
	msgStore MessageStore,
	docStore DocumentStore,
	chunkStore ChunkStore,
	publisher AsyncTurnPublisher,
	historyCache HistoryCache,
	chatClient ChatClient,
	embedClient EmbeddingClient,
	cfg AnswerConfig,
	indexes *index.Manager,
	locks *ConversationLocks,
	logger *zap.Logger,
) *AnswerService {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.DefaultTemperature < 0 || cfg.DefaultTemperature > 1 {
		cfg.DefaultTemperature = 0.2
	}
	return &AnswerService{
		convStore:    convStore,
		msgStore:     msgStore,
		docStore:     docStore,
		chunkStore:   chunkStore,
		publisher:    publisher,
		historyCache: historyCache,
		chatClient:   chatClient,
		embedClient:  embedClient,
		chatConfig:   cfg.Chat,
		embConfig:    cfg.Embedding,
		defaultTemp:  cfg.DefaultTemperature,
		maxContext:   cfg.MaxContextMessage,
		topK:         cfg.TopK,
		indexes:      indexes,
		locks:        locks,
		logger:       logger,
	}
}

type CreateConversationInput struct {
	UserID uint
	Title  string
}

func (s *AnswerService) CreateConversation(input CreateConversationInput) (*model.Conversation, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Conversation"
	}
	conv := &model.Conversation{UserID: input.UserID, Title: title}
	if err := s.convStore.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *AnswerService) ListConversations(userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.convStore.ListByUserID(userID)
}

// DeleteConversation tears one session down completely: messages, documents,
// chunks, cached history and the resident index.
func (s *AnswerService) DeleteConversation(userID, conversationID uint) error {
	if userID == 0 || conversationID == 0 {
		return ErrInvalidInput
	}
	conv, err := s.convStore.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	if err := s.msgStore.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.chunkStore.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.docStore.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.convStore.DeleteByIDAndUserID(conversationID, userID); err != nil {
		return err
	}
	s.indexes.Invalidate(conversationID)
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), conversationID)
	}
	return nil
}

// LLMOverride lets a request swap provider settings for one call.
type LLMOverride struct {
	BaseURL string
	APIKey  string
	Model   string
}

type AskInput struct {
	UserID         uint
	ConversationID uint
	Question       string
	// Temperature in [0,1]; nil means the configured default.
	Temperature *float64
	TopK        int
	LLM         LLMOverride
}

type AskResult struct {
	Answer  string          `json:"answer"`
	Turns   []model.Message `json:"turns"`
	Sources []index.Hit     `json:"sources"`
}

// Ask answers one question against the conversation's indexed documents.
// Both turns are appended to the history only after the model call succeeds;
// a provider failure leaves the history untouched.
func (s *AnswerService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	prep, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(input.ConversationID)
	defer unlock()

	prompt, hits, err := s.retrieveAndPrompt(ctx, input, prep)
	if err != nil {
		return nil, err
	}

	answer, err := s.chatClient.Complete(ctx, prep.chatCfg, prompt, prep.temperature)
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyAnswerFallback
	}

	turns, err := s.appendTurns(ctx, input, prep.question, answer)
	if err != nil {
		return nil, err
	}

	s.logger.Info("question answered",
		zap.Uint("conversation_id", input.ConversationID),
		zap.Int("sources", len(hits)),
	)

	return &AskResult{Answer: answer, Turns: turns, Sources: hits}, nil
}

// AskStream is Ask with the answer streamed through onChunk; the turns are
// appended only once the stream has completed successfully.
func (s *AnswerService) AskStream(ctx context.Context, input AskInput, onChunk func(string) error) (*AskResult, error) {
	prep, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(input.ConversationID)
	defer unlock()

	prompt, hits, err := s.retrieveAndPrompt(ctx, input, prep)
	if err != nil {
		return nil, err
	}

	answer, err := s.chatClient.StreamComplete(ctx, prep.chatCfg, prompt, prep.temperature, onChunk)
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyAnswerFallback
	}

	turns, err := s.appendTurns(ctx, input, prep.question, answer)
	if err != nil {
		return nil, err
	}
	return &AskResult{Answer: answer, Turns: turns, Sources: hits}, nil
}

type askPrep struct {
	question    string
	temperature float64
	chatCfg     ai.ChatConfig
	embCfg      ai.EmbeddingConfig
}

func (s *AnswerService) prepare(ctx context.Context, input AskInput) (*askPrep, error) {
	if input.UserID == 0 || input.ConversationID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	temperature := s.defaultTemp
	if input.Temperature != nil {
		temperature = *input.Temperature
		if temperature < 0 || temperature > 1 {
			return nil, ErrInvalidInput
		}
	}

	conv, err := s.convStore.GetByIDAndUserID(input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	chatCfg, err := s.resolveChat(input.LLM)
	if err != nil {
		return nil, err
	}
	embCfg := s.embConfig
	if key := strings.TrimSpace(input.LLM.APIKey); key != "" {
		embCfg.APIKey = key
	}

	return &askPrep{
		question:    question,
		temperature: temperature,
		chatCfg:     chatCfg,
		embCfg:      embCfg,
	}, nil
}

// retrieveAndPrompt runs under the conversation lock: loads the index, checks
// the upload precondition, embeds the question, retrieves top-k and assembles
// the prompt with the windowed history.
func (s *AnswerService) retrieveAndPrompt(ctx context.Context, input AskInput, prep *askPrep) ([]ai.ChatMessage, []index.Hit, error) {
	ix, err := s.indexes.Get(input.ConversationID)
	if err != nil {
		return nil, nil, err
	}
	if ix.Len() == 0 {
		return nil, nil, ErrNoDocumentsIndexed
	}

	queryVec, err := s.embedClient.Embed(ctx, prep.embCfg, prep.question)
	if err != nil {
		return nil, nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.topK
	}
	hits, err := ix.Search(queryVec, topK)
	if err != nil {
		return nil, nil, err
	}

	history, err := s.msgStore.ListRecentByConversationID(input.ConversationID, s.maxContext)
	if err != nil {
		return nil, nil, err
	}

	return buildPrompt(hits, history, prep.question), hits, nil
}

// appendTurns records the finished exchange: cache invalidation first, then
// both turns onto the persistence queue, user before assistant.
func (s *AnswerService) appendTurns(ctx context.Context, input AskInput, question, answer string) ([]model.Message, error) {
	if s.publisher == nil {
		return nil, ErrTurnEnqueue
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.ConversationID)
		_ = s.historyCache.DeleteHistory(ctx, input.ConversationID)
	}

	now := time.Now()
	userTurn := model.Message{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Role:           model.RoleUser,
		Content:        question,
		CreatedAt:      now,
	}
	assistantTurn := model.Message{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Role:           model.RoleAssistant,
		Content:        answer,
		CreatedAt:      now,
	}
	if err := s.publisher.Publish(ctx, userTurn); err != nil {
		return nil, ErrTurnEnqueue
	}
	if err := s.publisher.Publish(ctx, assistantTurn); err != nil {
		return nil, ErrTurnEnqueue
	}
	return []model.Message{userTurn, assistantTurn}, nil
}

// GetHistory returns the stored history for display. The full history is
// always stored; windowing applies only to the prompt context in Ask.
func (s *AnswerService) GetHistory(ctx context.Context, userID, conversationID uint, limit int) ([]model.Message, error) {
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

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.msgStore.ListByConversationID(conversationID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, conversationID, messages)
		}
	}
	return messages, nil
}

func (s *AnswerService) resolveChat(override LLMOverride) (ai.ChatConfig, error) {
	cfg := s.chatConfig
	if v := strings.TrimSpace(override.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(override.APIKey); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(override.Model); v != "" {
		cfg.Model = v
	}
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return ai.ChatConfig{}, ErrLLMConfig
	}
	return cfg, nil
}

// buildPrompt assembles: system instruction with the retrieved excerpts, the
// windowed prior history in order, then the new question.
func buildPrompt(hits []index.Hit, history []model.Message, question string) []ai.ChatMessage {
	var ctxBlock strings.Builder
	for _, h := range hits {
		ctxBlock.WriteString("\n---\n")
		ctxBlock.WriteString(h.Content)
	}
	ctxBlock.WriteString("\n---")

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{
		Role:    "system",
		Content: systemPrompt + "\n\nContext:" + ctxBlock.String(),
	})
	for _, m := range history {
		role := m.Role
		if role == "" {
			role = model.RoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: question})
	return messages
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
