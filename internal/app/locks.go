package app

import "sync"

// ConversationLocks serializes mutation per conversation: an ingest and an ask
// (or two asks) against the same conversation never interleave, so history
// appends stay ordered and a query never sees a half-appended index batch.
// Different conversations proceed in parallel.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{locks: make(map[uint]*sync.Mutex)}
}

// Lock acquires the conversation's mutex and returns the unlock function.
func (l *ConversationLocks) Lock(conversationID uint) func() {
	l.mu.Lock()
	m, ok := l.locks[conversationID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[conversationID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
