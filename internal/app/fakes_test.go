package app

import (
	"context"
	"fmt"

	"finquery/internal/ai"
	"finquery/internal/model"
)

// memStore backs every store interface with plain slices and maps so the
// services can be exercised without a database.
type memStore struct {
	users         map[uint]model.User
	conversations map[uint]model.Conversation
	messages      []model.Message
	documents     map[uint]model.Document
	chunks        []model.Chunk
	nextID        uint
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uint]model.User),
		conversations: make(map[uint]model.Conversation),
		documents:     make(map[uint]model.Document),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) Create(v interface{}) error {
	switch obj := v.(type) {
	case *model.User:
		obj.ID = s.id()
		s.users[obj.ID] = *obj
	case *model.Conversation:
		obj.ID = s.id()
		s.conversations[obj.ID] = *obj
	case *model.Document:
		obj.ID = s.id()
		s.documents[obj.ID] = *obj
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	return nil
}

type memConvStore struct{ s *memStore }

func (c memConvStore) Create(conv *model.Conversation) error { return c.s.Create(conv) }

func (c memConvStore) ListByUserID(userID uint) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, conv := range c.s.conversations {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (c memConvStore) GetByIDAndUserID(conversationID, userID uint) (*model.Conversation, error) {
	conv, ok := c.s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, nil
	}
	return &conv, nil
}

func (c memConvStore) DeleteByIDAndUserID(conversationID, userID uint) error {
	conv, ok := c.s.conversations[conversationID]
	if ok && conv.UserID == userID {
		delete(c.s.conversations, conversationID)
	}
	return nil
}

type memMessageStore struct{ s *memStore }

func (m memMessageStore) ListByConversationID(conversationID uint, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memMessageStore) ListRecentByConversationID(conversationID uint, limit int) ([]model.Message, error) {
	var out []model.Message
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m memMessageStore) DeleteByConversationID(conversationID uint) error {
	kept := m.s.messages[:0]
	for _, msg := range m.s.messages {
		if msg.ConversationID != conversationID {
			kept = append(kept, msg)
		}
	}
	m.s.messages = kept
	return nil
}

type memDocStore struct{ s *memStore }

func (d memDocStore) Create(doc *model.Document) error { return d.s.Create(doc) }

func (d memDocStore) GetByIDAndUserID(documentID, userID uint) (*model.Document, error) {
	doc, ok := d.s.documents[documentID]
	if !ok || doc.UserID != userID {
		return nil, nil
	}
	return &doc, nil
}

func (d memDocStore) ListByConversationID(conversationID uint) ([]model.Document, error) {
	var out []model.Document
	for _, doc := range d.s.documents {
		if doc.ConversationID == conversationID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d memDocStore) DeleteByIDAndUserID(documentID, userID uint) error {
	doc, ok := d.s.documents[documentID]
	if ok && doc.UserID == userID {
		delete(d.s.documents, documentID)
	}
	return nil
}

func (d memDocStore) DeleteByConversationID(conversationID uint) error {
	for id, doc := range d.s.documents {
		if doc.ConversationID == conversationID {
			delete(d.s.documents, id)
		}
	}
	return nil
}

type memChunkStore struct {
	s         *memStore
	createErr error
}

func (c *memChunkStore) CreateBatch(chunks []model.Chunk) error {
	if c.createErr != nil {
		return c.createErr
	}
	for i := range chunks {
		chunks[i].ID = c.s.id()
		c.s.chunks = append(c.s.chunks, chunks[i])
	}
	return nil
}

func (c *memChunkStore) ListByConversationID(conversationID uint) ([]model.Chunk, error) {
	var out []model.Chunk
	for _, ch := range c.s.chunks {
		if ch.ConversationID == conversationID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (c *memChunkStore) DeleteByDocumentID(documentID uint) error {
	kept := c.s.chunks[:0]
	for _, ch := range c.s.chunks {
		if ch.DocumentID != documentID {
			kept = append(kept, ch)
		}
	}
	c.s.chunks = kept
	return nil
}

func (c *memChunkStore) DeleteByConversationID(conversationID uint) error {
	kept := c.s.chunks[:0]
	for _, ch := range c.s.chunks {
		if ch.ConversationID != conversationID {
			kept = append(kept, ch)
		}
	}
	c.s.chunks = kept
	return nil
}

type memUserStore struct{ s *memStore }

func (u memUserStore) Create(user *model.User) error { return u.s.Create(user) }

func (u memUserStore) GetByUsername(username string) (*model.User, error) {
	for _, user := range u.s.users {
		if user.Username == username {
			found := user
			return &found, nil
		}
	}
	return nil, nil
}

func (u memUserStore) GetByEmail(email string) (*model.User, error) {
	for _, user := range u.s.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, nil
}

func (u memUserStore) GetByID(id uint) (*model.User, error) {
	user, ok := u.s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// fakePublisher stands in for the queue plus the persist worker: a published
// turn lands in the message store immediately.
type fakePublisher struct {
	s          *memStore
	published  []model.Message
	publishErr error
}

func (p *fakePublisher) Publish(ctx context.Context, msg model.Message) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	msg.ID = p.s.id()
	p.published = append(p.published, msg)
	p.s.messages = append(p.s.messages, msg)
	return nil
}

// fakeEmbedder returns registered vectors, falling back to a unit vector, and
// can be told to fail on the nth batch call.
type fakeEmbedder struct {
	vectors    map[string][]float32
	batchCalls int
	failOnCall int
	failErr    error
}

func (e *fakeEmbedder) vectorFor(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return []float32{1, 0}
}

func (e *fakeEmbedder) Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error) {
	return e.vectorFor(text), nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error) {
	e.batchCalls++
	if e.failOnCall > 0 && e.batchCalls >= e.failOnCall {
		return nil, e.failErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectorFor(t)
	}
	return out, nil
}

type fakeChat struct {
	answer      string
	err         error
	gotMessages []ai.ChatMessage
	gotTemp     float64
}

func (c *fakeChat) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, temperature float64) (string, error) {
	c.gotMessages = messages
	c.gotTemp = temperature
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

func (c *fakeChat) StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, temperature float64, onChunk func(string) error) (string, error) {
	c.gotMessages = messages
	c.gotTemp = temperature
	if c.err != nil {
		return "", c.err
	}
	if err := onChunk(c.answer); err != nil {
		return "", err
	}
	return c.answer, nil
}
