// Package resolution resolves fuzzy plant references in a query to live
// dataset codes. The alias table is curated reference data: its codes are
// trusted only when the same code exists in the live snapshot handed in per
// call, so a stale alias file can never leak a foreign code.
package resolution

import (
	"context"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hugomontan/newave-agent-sub004/internal/domain/match"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/plant"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/textnorm"
	"github.com/hugomontan/newave-agent-sub004/internal/metrics"
)

// Config holds the matcher's policy.
type Config struct {
	// EntityKind is the kind word used by the numeric patterns ("usina").
	EntityKind string
	// Threshold is the minimum fuzzy-match score for name resolution.
	Threshold float64
	// SnapshotTimeout bounds each per-snapshot resolution in a batch.
	SnapshotTimeout time.Duration
	// Workers bounds concurrent snapshot resolutions in a batch.
	Workers int
}

const (
	defaultEntityKind      = "usina"
	defaultThreshold       = 0.7
	defaultSnapshotTimeout = 5 * time.Second
)

// Portuguese function words plus generic plant qualifiers. Dropped before
// keyword scoring so "a usina de santa clara" and "Santa Clara" share every
// remaining token.
var stopWords = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "e": {}, "de": {}, "da": {}, "do": {},
	"das": {}, "dos": {}, "em": {}, "no": {}, "na": {}, "nos": {}, "nas": {},
	"um": {}, "uma": {}, "para": {}, "por": {}, "com": {}, "sem": {},
	"que": {}, "qual": {}, "quais": {}, "quanto": {}, "como": {}, "sobre": {},
	"usina": {}, "usinas": {},
}

// aliasSub is one precomputed substitution: normalized deck-name tokens to
// normalized full-name tokens.
type aliasSub struct {
	deck []string
	full []string
}

// Service is the alias-expanding entity matcher.
type Service struct {
	aliases  []plant.AliasRecord
	subs     []aliasSub
	patterns []*regexp.Regexp
	cfg      Config
	logger   *zap.Logger
}

// New creates a matcher. aliases may be empty: the pipeline then degrades to
// pure name resolution over live dataset names.
func New(aliases []plant.AliasRecord, cfg Config, logger *zap.Logger) *Service {
	if cfg.EntityKind == "" {
		cfg.EntityKind = defaultEntityKind
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = defaultSnapshotTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	subs := make([]aliasSub, 0, len(aliases))
	for _, a := range aliases {
		deck := textnorm.Tokens(a.DeckName())
		if len(deck) == 0 {
			continue
		}
		subs = append(subs, aliasSub{deck: deck, full: textnorm.Tokens(a.FullName())})
	}
	// Longest deck names substitute first so a short alias can never shadow
	// part of a longer one.
	sort.SliceStable(subs, func(i, j int) bool {
		if len(subs[i].deck) != len(subs[j].deck) {
			return len(subs[i].deck) > len(subs[j].deck)
		}
		return len(strings.Join(subs[i].deck, " ")) > len(strings.Join(subs[j].deck, " "))
	})

	return &Service{
		aliases:  aliases,
		subs:     subs,
		patterns: numericPatterns(cfg.EntityKind),
		cfg:      cfg,
		logger:   logger,
	}
}

// numericPatterns builds the ordered explicit-code patterns. They run over
// the normalized query, so "Usina nº 97" scans as "usina n 97".
func numericPatterns(kind string) []*regexp.Regexp {
	k := regexp.QuoteMeta(textnorm.Normalize(kind))
	return []*regexp.Regexp{
		regexp.MustCompile(`\b` + k + `\s+(?:de\s+)?(?:numero\s+|n\s+)?(\d+)\b`),
		regexp.MustCompile(`\bcodigo\s+(\d+)\b`),
	}
}

// ExtractCode resolves a plant reference in query against the live snapshot.
// Strategies run in order, first success wins; every returned code is a live
// snapshot code.
func (s *Service) ExtractCode(ctx context.Context, query string, live []plant.Entity) (plant.Resolution, bool) {
	if err := ctx.Err(); err != nil || len(live) == 0 || strings.TrimSpace(query) == "" {
		return plant.Resolution{}, false
	}

	liveByCode := make(map[int]plant.Entity, len(live))
	for _, e := range live {
		if _, dup := liveByCode[e.Code()]; !dup {
			liveByCode[e.Code()] = e
		}
	}

	expanded := s.expandAliases(query)

	// Numeric extraction runs on the expanded AND the raw query: alias
	// substitution must never hide an explicit code reference.
	for _, q := range []string{expanded, query} {
		if res, ok := s.extractNumeric(q, liveByCode); ok {
			return s.record(res), true
		}
	}

	pool := s.namePool(live, liveByCode)
	for _, q := range []string{expanded, query} {
		if res, ok := s.resolveName(q, pool); ok {
			return s.record(res), true
		}
	}

	if res, ok := s.keywordFallback(query, pool); ok {
		return s.record(res), true
	}

	metrics.ResolutionsTotal.WithLabelValues("none").Inc()
	return plant.Resolution{}, false
}

// ExtractCodeBatch resolves the same query against several snapshots
// concurrently. A snapshot that times out is dropped from the result map,
// never failing the batch.
func (s *Service) ExtractCodeBatch(ctx context.Context, query string, snapshots map[string][]plant.Entity) map[string]plant.Resolution {
	keys := make([]string, 0, len(snapshots))
	for k := range snapshots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]*plant.Resolution, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			snapCtx, cancel := context.WithTimeout(gctx, s.cfg.SnapshotTimeout)
			defer cancel()

			if res, ok := s.ExtractCode(snapCtx, query, snapshots[key]); ok {
				results[i] = &res
			}
			if err := snapCtx.Err(); err != nil {
				s.logger.Warn("Dropping snapshot from batch resolution",
					zap.String("snapshot", key),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]plant.Resolution, len(keys))
	for i, key := range keys {
		if results[i] != nil {
			out[key] = *results[i]
		}
	}
	return out
}

func (s *Service) record(res plant.Resolution) plant.Resolution {
	metrics.ResolutionsTotal.WithLabelValues(string(res.Strategy())).Inc()
	s.logger.Debug("Resolved plant reference",
		zap.Int("code", res.Code()),
		zap.String("name", res.Name()),
		zap.String("strategy", string(res.Strategy())),
	)
	return res
}

// expandAliases replaces every deck-native name present in the query with its
// curated full name. One pass over the token stream: at each position the
// longest matching alias wins, and emitted replacement tokens are never
// rescanned, so a full name containing another alias's deck name cannot
// cascade.
func (s *Service) expandAliases(query string) string {
	hw := strings.Fields(textnorm.Normalize(query))
	out := make([]string, 0, len(hw))

	for i := 0; i < len(hw); {
		sub, ok := s.matchAliasAt(hw, i)
		if !ok {
			out = append(out, hw[i])
			i++
			continue
		}
		out = append(out, sub.full...)
		i += len(sub.deck)
	}
	return strings.Join(out, " ")
}

func (s *Service) matchAliasAt(hw []string, i int) (aliasSub, bool) {
	for _, sub := range s.subs {
		if i+len(sub.deck) > len(hw) {
			continue
		}
		matched := true
		for j, w := range sub.deck {
			if hw[i+j] != w {
				matched = false
				break
			}
		}
		if matched {
			return sub, true
		}
	}
	return aliasSub{}, false
}

func (s *Service) extractNumeric(query string, liveByCode map[int]plant.Entity) (plant.Resolution, bool) {
	norm := textnorm.Normalize(query)
	for _, p := range s.patterns {
		m := p.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		code, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if e, ok := liveByCode[code]; ok {
			return plant.NewResolution(e.Code(), e.Name(), plant.StrategyNumeric, 1.0), true
		}
	}
	return plant.Resolution{}, false
}

// poolEntry ties a candidate name back to its live code.
type poolEntry struct {
	name    string
	code    int
	curated bool
}

// namePool is every live dataset name plus every curated full name whose code
// exists in the live snapshot.
func (s *Service) namePool(live []plant.Entity, liveByCode map[int]plant.Entity) []poolEntry {
	pool := make([]poolEntry, 0, len(live)+len(s.aliases))
	seen := make(map[string]struct{}, len(live)+len(s.aliases))

	add := func(name string, code int, curated bool) {
		key := textnorm.Normalize(name)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		pool = append(pool, poolEntry{name: name, code: code, curated: curated})
	}

	for _, e := range live {
		add(e.Name(), e.Code(), false)
	}
	for _, a := range s.aliases {
		if _, ok := liveByCode[a.Code()]; ok {
			add(a.FullName(), a.Code(), true)
		}
	}
	return pool
}

func (s *Service) resolveName(query string, pool []poolEntry) (plant.Resolution, bool) {
	names := make([]string, len(pool))
	for i, p := range pool {
		names[i] = p.name
	}

	m, ok := match.Resolve(query, names, s.cfg.Threshold)
	if !ok {
		return plant.Resolution{}, false
	}

	for _, p := range pool {
		if p.name == m.Name {
			strategy := plant.StrategyName
			if p.curated {
				strategy = plant.StrategyAlias
			}
			return plant.NewResolution(p.code, p.name, strategy, m.Score), true
		}
	}
	return plant.Resolution{}, false
}

// keywordFallback scores candidates by shared informative tokens. It only
// fires when at least one token is shared, so it can rescue word-order and
// partial-name queries the resolver's threshold rejected.
func (s *Service) keywordFallback(query string, pool []poolEntry) (plant.Resolution, bool) {
	qTokens := informativeTokens(query)
	if len(qTokens) == 0 {
		return plant.Resolution{}, false
	}
	qNorm := strings.Join(qTokens, " ")

	var (
		best      poolEntry
		bestScore float64
		found     bool
	)
	for _, p := range pool {
		cTokens := informativeTokens(p.name)
		if len(cTokens) == 0 {
			continue
		}
		cSet := make(map[string]struct{}, len(cTokens))
		for _, t := range cTokens {
			cSet[t] = struct{}{}
		}

		shared := 0
		subset := true
		for _, t := range qTokens {
			if _, ok := cSet[t]; ok {
				shared++
			} else {
				subset = false
			}
		}
		if shared < 1 {
			continue
		}

		cNorm := strings.Join(cTokens, " ")
		score := float64(shared) + match.Similarity(qNorm, cNorm)*5 + 0.01*float64(len(cNorm))
		if subset {
			score += 10
		}

		// Strict greater keeps the first-seen candidate on ties.
		if !found || score > bestScore {
			best, bestScore, found = p, score, true
		}
	}

	if !found {
		return plant.Resolution{}, false
	}
	return plant.NewResolution(best.code, best.name, plant.StrategyKeyword, bestScore), true
}

func informativeTokens(s string) []string {
	all := textnorm.Tokens(s)
	out := make([]string, 0, len(all))
	for _, t := range all {
		if _, stop := stopWords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}
