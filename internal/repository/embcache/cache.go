// Package embcache is the content-addressed embedding cache. Two logically
// separate segments share no keys: tool embeddings are keyed by tool name,
// query embeddings by the content hash of the expanded query string. Entries
// are validated by the hash of the text they were computed from, so an edited
// tool description regenerates its entry lazily on the next read.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hugomontan/newave-agent-sub004/internal/db"
	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/rank"
)

var persistKeyPrefix = domain.KeyPrefix + "emb_cache:"

// ComputeFunc produces a raw embedding vector for text. Called only on cache
// misses; failures propagate to the caller and are never cached.
type ComputeFunc func(ctx context.Context, text string) ([]float32, error)

// Entry is one cached embedding: the raw vector plus its unit-normalized
// form, valid only while Hash matches the source text.
type Entry struct {
	Hash   string
	Vector []float32
	Unit   []float32
}

// Stats reports entry counts per segment.
type Stats struct {
	ToolEntries  int `json:"tool_entries"`
	QueryEntries int `json:"query_entries"`
}

// store is the consumer interface for optional persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cache holds the two in-memory segments with optional KV write-through.
// Safe for concurrent use; no lock is held across a compute or store call.
type Cache struct {
	tools   *segment
	queries *segment
	store   store
	// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"store_hit").
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates an embedding cache. store may be nil (in-memory only).
func New(s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		tools:      newSegment(),
		queries:    newSegment(),
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// GetOrComputeTool returns the tool-segment entry for key, recomputing when
// absent or stale.
func (c *Cache) GetOrComputeTool(ctx context.Context, key, text string, compute ComputeFunc) (Entry, error) {
	return c.getOrCompute(ctx, c.tools, key, text, compute)
}

// GetOrComputeQuery returns the query-segment entry for key, recomputing when
// absent or stale.
func (c *Cache) GetOrComputeQuery(ctx context.Context, key, text string, compute ComputeFunc) (Entry, error) {
	return c.getOrCompute(ctx, c.queries, key, text, compute)
}

// InvalidateAll drops every entry from both segments.
func (c *Cache) InvalidateAll() {
	c.tools.clear()
	c.queries.clear()
}

// Stats returns current entry counts.
func (c *Cache) Stats() Stats {
	return Stats{
		ToolEntries:  c.tools.len(),
		QueryEntries: c.queries.len(),
	}
}

func (c *Cache) getOrCompute(
	ctx context.Context, seg *segment, key, text string, compute ComputeFunc,
) (Entry, error) {
	hash := ContentHash(text)

	if entry, ok := seg.get(key, hash); ok {
		c.incCache("hit")
		return entry, nil
	}

	// Concurrent misses on the same key+hash share one computation. A write
	// that lands after a competing writer is harmless: entries are
	// content-addressed, so last-writer-wins self-corrects on the next read.
	v, err, _ := seg.flight.Do(key+":"+hash, func() (any, error) {
		if entry, ok := seg.get(key, hash); ok {
			c.incCache("hit")
			return entry, nil
		}

		if entry, ok := c.loadPersisted(ctx, hash); ok {
			c.incCache("store_hit")
			seg.put(key, entry)
			return entry, nil
		}

		c.incCache("miss")

		vec, err := compute(ctx, text)
		if err != nil {
			// A failed computation must never poison the cache.
			return Entry{}, fmt.Errorf("compute embedding: %w", err)
		}

		entry := Entry{Hash: hash, Vector: vec, Unit: rank.Normalize(vec)}
		seg.put(key, entry)
		c.persist(ctx, hash, vec)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) loadPersisted(ctx context.Context, hash string) (Entry, bool) {
	if c.store == nil {
		return Entry{}, false
	}
	data, err := c.store.Get(ctx, persistKeyPrefix+hash)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read persisted embedding", zap.String("hash", hash), zap.Error(err))
		}
		return Entry{}, false
	}
	vec, err := bytesToVector(data)
	if err != nil || len(vec) == 0 {
		c.logger.Warn("Failed to parse persisted embedding", zap.String("hash", hash), zap.Error(err))
		return Entry{}, false
	}
	return Entry{Hash: hash, Vector: vec, Unit: rank.Normalize(vec)}, true
}

func (c *Cache) persist(ctx context.Context, hash string, vec []float32) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, persistKeyPrefix+hash, vectorToBytes(vec)); err != nil {
		c.logger.Warn("Failed to persist embedding", zap.String("hash", hash), zap.Error(err))
	}
}

// ContentHash returns the sha256 hex digest of text. Query cache keys and
// entry validity checks are both built from it.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// segment is one independently locked entry map with its own flight group.
type segment struct {
	mu      sync.RWMutex
	entries map[string]Entry
	flight  singleflight.Group
}

func newSegment() *segment {
	return &segment{entries: make(map[string]Entry)}
}

func (s *segment) get(key, hash string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok || entry.Hash != hash {
		// Hash mismatch means the source text changed: the entry is stale.
		return Entry{}, false
	}
	return entry, true
}

func (s *segment) put(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

func (s *segment) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
}

func (s *segment) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
