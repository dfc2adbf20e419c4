// Package routing is the semantic tool router: it turns a raw deck question
// into exactly one routing decision by comparing the query embedding against
// every registered tool's description embedding.
package routing

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/expand"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/rank"
	decision "github.com/hugomontan/newave-agent-sub004/internal/domain/routing"
	"github.com/hugomontan/newave-agent-sub004/internal/metrics"
	"github.com/hugomontan/newave-agent-sub004/internal/repository/embcache"
)

// Config holds the router's decision policy and fan-out limits.
type Config struct {
	// ExecuteThreshold is the minimum (inclusive) best score that auto-runs
	// the winning tool.
	ExecuteThreshold float64
	// RankThreshold is the minimum score for a tool to appear as a
	// disambiguation candidate.
	RankThreshold float64
	// TopK caps the number of disambiguation candidates.
	TopK int
	// FilterByCapability drops tools whose capability predicate rejects the
	// raw query before ranking.
	FilterByCapability bool
	// FanoutWorkers bounds concurrent tool-embedding fetches.
	FanoutWorkers int
	// FetchTimeout is the per-tool embedding fetch deadline.
	FetchTimeout time.Duration
}

const (
	defaultTopK         = 3
	defaultFetchTimeout = 10 * time.Second
	maxFanoutWorkers    = 8
)

// Service routes raw queries to tools.
type Service struct {
	cache  Cache
	embed  Embedder
	tools  ToolSource
	rules  []expand.Rule
	cfg    Config
	logger *zap.Logger
}

// New creates a router. Zero-valued limits in cfg get defaults; thresholds
// are taken as-is (validated at config load).
func New(cache Cache, embed Embedder, tools ToolSource, rules []expand.Rule, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.FanoutWorkers <= 0 {
		cfg.FanoutWorkers = 2 * runtime.NumCPU()
		if cfg.FanoutWorkers > maxFanoutWorkers {
			cfg.FanoutWorkers = maxFanoutWorkers
		}
	}
	return &Service{cache: cache, embed: embed, tools: tools, rules: rules, cfg: cfg, logger: logger}
}

// SyntheticQuery builds the follow-up query string a disambiguation option
// carries: it names the chosen tool and repeats the original question, so the
// next call can skip routing.
func SyntheticQuery(toolName, rawQuery string) string {
	return fmt.Sprintf("[tool:%s] %s", toolName, rawQuery)
}

// Route produces the single routing decision for rawQuery with the
// configured capability-filter policy.
func (s *Service) Route(ctx context.Context, rawQuery string) (decision.Decision, error) {
	return s.RouteWithFilter(ctx, rawQuery, s.cfg.FilterByCapability)
}

// RouteWithFilter routes rawQuery with an explicit capability-filter policy:
// some callers require filtering, others don't. A failed query embedding
// fails the whole call ("routing unavailable"); a failed tool embedding only
// drops that tool from the ranking.
func (s *Service) RouteWithFilter(ctx context.Context, rawQuery string, filterByCapability bool) (decision.Decision, error) {
	start := time.Now()
	defer func() {
		metrics.RoutingDuration.Observe(time.Since(start).Seconds())
	}()

	expanded := expand.Expand(rawQuery, s.rules)

	queryEntry, err := s.cache.GetOrComputeQuery(ctx, embcache.ContentHash(expanded), expanded, s.computeVec)
	if err != nil {
		return decision.Decision{}, fmt.Errorf("query embedding: %w", err)
	}

	tools := s.tools.Tools()
	units := s.fetchToolUnits(ctx, tools)
	if err := ctx.Err(); err != nil {
		return decision.Decision{}, fmt.Errorf("routing cancelled: %w", err)
	}

	// Candidate assembly happens only after every fetch has settled, so the
	// ranking is deterministic regardless of fetch arrival order.
	idx := make([]int, 0, len(tools))
	vecs := make([][]float32, 0, len(tools))
	for i, tool := range tools {
		if units[i] == nil {
			continue
		}
		if filterByCapability {
			if c, ok := tool.(domain.CapabilityChecker); ok && !c.CanHandle(rawQuery) {
				continue
			}
		}
		idx = append(idx, i)
		vecs = append(vecs, units[i])
	}

	scored := rank.Rank(queryEntry.Unit, vecs)

	d := s.decide(rawQuery, tools, idx, scored)
	metrics.RoutingDecisionsTotal.WithLabelValues(string(d.Kind())).Inc()

	s.logger.Debug("Routing decision",
		zap.String("kind", string(d.Kind())),
		zap.String("tool", d.Tool()),
		zap.Int("candidates", len(scored)),
	)
	return d, nil
}

// fetchToolUnits fills a per-tool slot slice with unit vectors. Slots of
// tools whose fetch failed stay nil.
func (s *Service) fetchToolUnits(ctx context.Context, tools []domain.Tool) [][]float32 {
	units := make([][]float32, len(tools))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, s.cfg.FanoutWorkers)

	for i, tool := range tools {
		i, tool := i, tool
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(gctx, s.cfg.FetchTimeout)
			defer cancel()

			entry, err := s.cache.GetOrComputeTool(fetchCtx, tool.Name(), tool.Description(), s.computeVec)
			if err != nil {
				metrics.RoutingToolsDropped.Inc()
				s.logger.Warn("Dropping tool after embedding fetch failure",
					zap.String("tool", tool.Name()),
					zap.Error(err),
				)
				return nil
			}
			units[i] = entry.Unit
			return nil
		})
	}
	_ = g.Wait()

	return units
}

func (s *Service) decide(rawQuery string, tools []domain.Tool, idx []int, scored []rank.Scored) decision.Decision {
	if len(scored) == 0 {
		return decision.NoMatch()
	}

	best := scored[0]
	if best.Score >= s.cfg.ExecuteThreshold {
		return decision.Execute(tools[idx[best.Index]].Name(), best.Score)
	}

	labels := s.tools.Labels()
	opts := make([]decision.Option, 0, s.cfg.TopK)
	for _, sc := range scored {
		if sc.Score < s.cfg.RankThreshold {
			break
		}
		name := tools[idx[sc.Index]].Name()
		label := labels[name]
		if label == "" {
			label = name
		}
		opts = append(opts, decision.Option{
			Label:          label,
			ToolName:       name,
			SyntheticQuery: SyntheticQuery(name, rawQuery),
		})
		if len(opts) == s.cfg.TopK {
			break
		}
	}

	if len(opts) == 0 {
		return decision.NoMatch()
	}
	return decision.Disambiguate(opts)
}

func (s *Service) computeVec(ctx context.Context, text string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Embedding, nil
}
