package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	decision "github.com/hugomontan/newave-agent-sub004/internal/domain/routing"
	"github.com/hugomontan/newave-agent-sub004/internal/repository/embcache"
)

// stubEmbedder returns a fixed vector per text. Unknown texts get the unit
// vector (1,0), which is also what test queries embed to.
type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	vecs  map[string][]float32
	fail  map[string]bool
}

func (e *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail[text]
	vec := e.vecs[text]
	e.mu.Unlock()

	if fail {
		return domain.EmbeddingResult{}, fmt.Errorf("provider down: %w", domain.ErrEmbeddingProviderError)
	}
	if vec == nil {
		vec = []float32{1, 0}
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type stubTool struct {
	name string
	desc string
	can  func(string) bool
}

func (t stubTool) Name() string        { return t.name }
func (t stubTool) Description() string { return t.desc }
func (t stubTool) CanHandle(q string) bool {
	if t.can == nil {
		return true
	}
	return t.can(q)
}

type stubSource struct {
	tools  []domain.Tool
	labels map[string]string
}

func (s *stubSource) Tools() []domain.Tool      { return s.tools }
func (s *stubSource) Labels() map[string]string { return s.labels }

func newTestRouter(emb *stubEmbedder, source *stubSource, cfg Config) *Service {
	cache := embcache.New(nil, nil, zap.NewNop())
	return New(cache, emb, source, nil, cfg, zap.NewNop())
}

func TestRoute_ExecuteAtExactThreshold(t *testing.T) {
	// Query and tool embed to the same unit vector, so the score is exactly
	// 1.0; the execute threshold is inclusive.
	emb := &stubEmbedder{vecs: map[string][]float32{
		"desc exact": {1, 0},
	}}
	source := &stubSource{
		tools:  []domain.Tool{stubTool{name: "cvu_usina", desc: "desc exact"}},
		labels: map[string]string{"cvu_usina": "CVU"},
	}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 1.0, RankThreshold: 0.55})

	d, err := svc.Route(context.Background(), "cvu da usina")
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Kind() != decision.KindExecute {
		t.Fatalf("expected execute, got %s", d.Kind())
	}
	if d.Tool() != "cvu_usina" {
		t.Errorf("expected cvu_usina, got %s", d.Tool())
	}
	if d.Score() != 1.0 {
		t.Errorf("expected score 1.0, got %f", d.Score())
	}
}

func TestRoute_DisambiguateBetweenThresholds(t *testing.T) {
	// Scores land between rank (0.55) and execute (0.7): ~0.65 and ~0.60.
	emb := &stubEmbedder{vecs: map[string][]float32{
		"desc mid high": {0.65, 0.76},
		"desc mid low":  {0.6, 0.8},
		"desc far":      {0, 1},
	}}
	source := &stubSource{
		tools: []domain.Tool{
			stubTool{name: "tool_far", desc: "desc far"},
			stubTool{name: "tool_low", desc: "desc mid low"},
			stubTool{name: "tool_high", desc: "desc mid high"},
		},
		labels: map[string]string{"tool_high": "High", "tool_low": "Low"},
	}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 0.7, RankThreshold: 0.55, TopK: 3})

	d, err := svc.Route(context.Background(), "qual ferramenta usar")
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Kind() != decision.KindDisambiguate {
		t.Fatalf("expected disambiguate, got %s", d.Kind())
	}

	opts := d.Options()
	if len(opts) != 2 {
		t.Fatalf("expected 2 options (tool_far below rank threshold), got %d", len(opts))
	}
	if opts[0].ToolName != "tool_high" || opts[1].ToolName != "tool_low" {
		t.Errorf("options out of score order: %s, %s", opts[0].ToolName, opts[1].ToolName)
	}
	if opts[0].Label != "High" {
		t.Errorf("expected precomputed label, got %q", opts[0].Label)
	}
	want := SyntheticQuery("tool_high", "qual ferramenta usar")
	if opts[0].SyntheticQuery != want {
		t.Errorf("synthetic query = %q, want %q", opts[0].SyntheticQuery, want)
	}
}

func TestRoute_DisambiguateCapsAtTopK(t *testing.T) {
	vecs := map[string][]float32{}
	tools := make([]domain.Tool, 0, 4)
	// Four candidates with distinct mid-range scores.
	for i, x := range []float32{0.69, 0.66, 0.63, 0.60} {
		desc := fmt.Sprintf("desc %d", i)
		y := float32(1) - x // not unit length, cache normalizes
		vecs[desc] = []float32{x, y}
		tools = append(tools, stubTool{name: fmt.Sprintf("tool_%d", i), desc: desc})
	}
	emb := &stubEmbedder{vecs: vecs}
	source := &stubSource{tools: tools, labels: map[string]string{}}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 0.95, RankThreshold: 0.55, TopK: 3})

	d, err := svc.Route(context.Background(), "pergunta ambigua")
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Kind() != decision.KindDisambiguate {
		t.Fatalf("expected disambiguate, got %s", d.Kind())
	}
	if len(d.Options()) != 3 {
		t.Errorf("expected options capped at 3, got %d", len(d.Options()))
	}
	// Label falls back to the tool name when no table entry exists.
	if d.Options()[0].Label != d.Options()[0].ToolName {
		t.Errorf("expected name fallback label, got %q", d.Options()[0].Label)
	}
}

func TestRoute_NoMatchBelowRankThreshold(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float32{
		"desc orthogonal": {0, 1},
	}}
	source := &stubSource{
		tools:  []domain.Tool{stubTool{name: "tool_a", desc: "desc orthogonal"}},
		labels: map[string]string{},
	}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 0.7, RankThreshold: 0.55})

	d, err := svc.Route(context.Background(), "pergunta sem destino")
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Kind() != decision.KindNone {
		t.Errorf("expected no match, got %s", d.Kind())
	}
}

func TestRoute_QueryEmbeddingFailureIsFatal(t *testing.T) {
	emb := &stubEmbedder{fail: map[string]bool{"pergunta sem embedding": true}}
	source := &stubSource{
		tools:  []domain.Tool{stubTool{name: "tool_a", desc: "desc a"}},
		labels: map[string]string{},
	}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 0.7, RankThreshold: 0.55})

	_, err := svc.Route(context.Background(), "pergunta sem embedding")
	if err == nil {
		t.Fatal("expected error when the query embedding fails")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestRoute_FailedToolIsDroppedNotFatal(t *testing.T) {
	emb := &stubEmbedder{
		vecs: map[string][]float32{"desc good": {1, 0}},
		fail: map[string]bool{"desc broken": true},
	}
	source := &stubSource{
		tools: []domain.Tool{
			stubTool{name: "tool_broken", desc: "desc broken"},
			stubTool{name: "tool_good", desc: "desc good"},
		},
		labels: map[string]string{},
	}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 0.7, RankThreshold: 0.55})

	d, err := svc.Route(context.Background(), "pergunta valida")
	if err != nil {
		t.Fatalf("a single tool failure must not fail the call: %v", err)
	}
	if d.Kind() != decision.KindExecute || d.Tool() != "tool_good" {
		t.Errorf("expected execute tool_good, got %s %s", d.Kind(), d.Tool())
	}
}

func TestRoute_CapabilityFilter(t *testing.T) {
	// tool_best scores highest but rejects the query; tool_second must win.
	emb := &stubEmbedder{vecs: map[string][]float32{
		"desc best":   {1, 0},
		"desc second": {0.9, 0.436},
	}}
	source := &stubSource{
		tools: []domain.Tool{
			stubTool{name: "tool_best", desc: "desc best", can: func(string) bool { return false }},
			stubTool{name: "tool_second", desc: "desc second"},
		},
		labels: map[string]string{},
	}
	svc := newTestRouter(emb, source, Config{
		ExecuteThreshold:   0.7,
		RankThreshold:      0.55,
		FilterByCapability: true,
	})

	d, err := svc.Route(context.Background(), "pergunta filtrada")
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if d.Kind() != decision.KindExecute || d.Tool() != "tool_second" {
		t.Errorf("expected execute tool_second, got %s %s", d.Kind(), d.Tool())
	}
}

func TestRoute_SecondCallIsAllCacheHits(t *testing.T) {
	emb := &stubEmbedder{vecs: map[string][]float32{
		"desc a": {1, 0},
		"desc b": {0.6, 0.8},
		"desc c": {0, 1},
	}}
	source := &stubSource{
		tools: []domain.Tool{
			stubTool{name: "tool_a", desc: "desc a"},
			stubTool{name: "tool_b", desc: "desc b"},
			stubTool{name: "tool_c", desc: "desc c"},
		},
		labels: map[string]string{},
	}
	svc := newTestRouter(emb, source, Config{ExecuteThreshold: 0.7, RankThreshold: 0.55})

	if _, err := svc.Route(context.Background(), "mesma pergunta"); err != nil {
		t.Fatalf("first Route failed: %v", err)
	}
	first := emb.callCount()
	if first != 4 { // 1 query + 3 tools
		t.Fatalf("expected 4 provider calls on cold cache, got %d", first)
	}

	if _, err := svc.Route(context.Background(), "mesma pergunta"); err != nil {
		t.Fatalf("second Route failed: %v", err)
	}
	if got := emb.callCount(); got != first {
		t.Errorf("warm cache must not call the provider, got %d extra calls", got-first)
	}
}

func TestRoute_Deterministic(t *testing.T) {
	build := func() *Service {
		emb := &stubEmbedder{vecs: map[string][]float32{
			"desc x": {0.66, 0.75},
			"desc y": {0.66, 0.75}, // identical score: registration order breaks the tie
			"desc z": {0.6, 0.8},
		}}
		source := &stubSource{
			tools: []domain.Tool{
				stubTool{name: "tool_x", desc: "desc x"},
				stubTool{name: "tool_y", desc: "desc y"},
				stubTool{name: "tool_z", desc: "desc z"},
			},
			labels: map[string]string{},
		}
		return newTestRouter(emb, source, Config{ExecuteThreshold: 0.95, RankThreshold: 0.55, TopK: 3})
	}

	var prev decision.Decision
	for run := 0; run < 3; run++ {
		d, err := build().Route(context.Background(), "pergunta repetida")
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		if run == 0 {
			prev = d
			if d.Options()[0].ToolName != "tool_x" {
				t.Fatalf("tie must keep registration order, got %s first", d.Options()[0].ToolName)
			}
			continue
		}
		if d.Kind() != prev.Kind() || len(d.Options()) != len(prev.Options()) {
			t.Fatalf("run %d diverged: %v vs %v", run, d, prev)
		}
		for i := range d.Options() {
			if d.Options()[i] != prev.Options()[i] {
				t.Errorf("run %d option %d diverged: %+v vs %+v", run, i, d.Options()[i], prev.Options()[i])
			}
		}
	}
}
