package domain

import "errors"

// KeyPrefix namespaces every key this service writes to the KV store.
const KeyPrefix = "newave_agent:"

var (
	// ErrEmbeddingProviderError signals a failed or timed-out embedding call.
	// Fatal for the query embedding (the routing call fails); recoverable for
	// a single tool embedding (the tool is dropped from ranking).
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrEmbeddingQuotaExceeded signals an exhausted token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding token budget exceeded")

	// ErrAliasTableNotFound signals a missing alias table file. Not fatal:
	// the matcher degrades to live-name resolution only.
	ErrAliasTableNotFound = errors.New("alias table not found")

	// ErrNoTools signals an empty tool registry at startup.
	ErrNoTools = errors.New("tool registry is empty")
)
