package routing

import (
	"context"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/repository/embcache"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Cache is the embedding cache contract: tool and query segments, compute on
// miss, stale entries regenerated by content hash.
type Cache interface {
	GetOrComputeTool(ctx context.Context, key, text string, compute embcache.ComputeFunc) (embcache.Entry, error)
	GetOrComputeQuery(ctx context.Context, key, text string, compute embcache.ComputeFunc) (embcache.Entry, error)
}

// ToolSource supplies the process-lifetime tool set and its disambiguation
// label table.
type ToolSource interface {
	Tools() []domain.Tool
	Labels() map[string]string
}
