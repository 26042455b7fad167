package app

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUsernameExists       = errors.New("username already exists")
	ErrEmailExists          = errors.New("email already exists")
	ErrInvalidCredential    = errors.New("invalid username or password")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDocumentNotFound     = errors.New("document not found")

	// ErrNoDocumentsIndexed signals the user-facing precondition: ask arrived
	// before any successful upload for this conversation. Distinct from the
	// index-level empty-index error on purpose.
	ErrNoDocumentsIndexed = errors.New("no documents indexed for this conversation")

	// ErrNoExtractableText: the upload parsed fine but produced nothing to
	// index (scanned images, empty pages).
	ErrNoExtractableText = errors.New("documents contain no extractable text")

	ErrTurnEnqueue = errors.New("turn enqueue failed")
	ErrLLMConfig   = errors.New("llm config is invalid")
)
