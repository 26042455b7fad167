package ai

import "errors"

// Provider failures are surfaced to the caller verbatim and never retried
// here; callers branch on the sentinel to tell the embedding path from the
// generation path.
var (
	ErrEmbeddingProvider = errors.New("embedding provider request failed")
	ErrModelProvider     = errors.New("model provider request failed")
)
