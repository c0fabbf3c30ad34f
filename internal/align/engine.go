// Package align wires the pipeline together: discover, score through the
// cache, detect conflicts, plan fixes, aggregate, persist. Every component
// is constructed explicitly and injected; the package holds no global
// state.
package align

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"conform/internal/cache"
	"conform/internal/config"
	"conform/internal/conflict"
	"conform/internal/coverage"
	"conform/internal/logging"
	"conform/internal/parse"
	"conform/internal/remedy"
	"conform/internal/report"
	"conform/internal/routing"
	"conform/internal/runlock"
	"conform/internal/scanner"
	"conform/internal/scorer"
)

// scoreNamespace is the cache namespace for integration scores.
const scoreNamespace = "scores"

// Engine runs the full health-check pipeline.
type Engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	scanner  *scanner.Scanner
	detector *conflict.Detector
	cache    *cache.Cache // nil when caching is disabled
	coverage coverage.Provider
	remedy   *remedy.Engine
}

// NewEngine assembles an engine from its collaborators. cacheLayer may be
// nil to disable caching; rem may be nil when remediation is not needed
// (plain check runs).
func NewEngine(cfg *config.Config, logger *logging.Logger, sc *scanner.Scanner, det *conflict.Detector, cacheLayer *cache.Cache, cov coverage.Provider, rem *remedy.Engine) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		scanner:  sc,
		detector: det,
		cache:    cacheLayer,
		coverage: cov,
		remedy:   rem,
	}
}

// Remedy exposes the remediation engine for the interactive fix loop.
func (e *Engine) Remedy() *remedy.Engine {
	return e.remedy
}

// Run executes one health-check pass and persists the updated state. The
// run lock is held for the duration: the state file is read-modify-write
// and two concurrent runs must not interleave.
func (e *Engine) Run(ctx context.Context) (*report.AlignmentReport, *report.AlignmentState, error) {
	lock, err := runlock.Acquire(e.cfg.RepoRoot)
	if err != nil {
		return nil, nil, err
	}
	defer lock.Release()

	state, err := report.LoadState(e.cfg.RepoRoot)
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()

	// One walk feeds both discovery and conflict analysis.
	infos, err := e.scanner.ParseTree(ctx, e.cfg.RepoRoot)
	if err != nil {
		return nil, nil, err
	}
	candidates := scanner.CandidatesFromTree(infos)

	scores, err := e.scoreAll(ctx, candidates, infos)
	if err != nil {
		return nil, nil, err
	}

	conflicts := e.detector.Analyze(infos)
	fixes := e.planFixes(conflicts, candidates, scores)

	rep := report.Build(scores, conflicts, fixes)
	state.Record(rep, e.cfg.Report.HistoryLimit)
	if err := state.Save(e.cfg.RepoRoot); err != nil {
		return nil, nil, err
	}

	e.logger.Info("Health check complete", map[string]interface{}{
		"candidates": len(candidates),
		"conflicts":  len(conflicts),
		"health":     rep.OverallHealth,
		"durationMs": time.Since(started).Milliseconds(),
	})
	return rep, state, nil
}

// scoreAll scores every candidate, going through the cache when enabled.
// Candidates score concurrently; the checks inside one candidate stay
// sequential.
func (e *Engine) scoreAll(ctx context.Context, candidates map[string]scanner.Candidate, infos []*parse.FileInfo) (map[string]scorer.IntegrationScore, error) {
	table := e.loadRouting()
	sc := scorer.NewScorer(e.cfg, e.logger, table, e.coverage)

	metaByPath := make(map[string]*parse.FileInfo, len(infos))
	for _, info := range infos {
		metaByPath[info.Path] = info
	}

	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	scores := make(map[string]scorer.IntegrationScore, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Scan.Workers)

	for _, key := range keys {
		c := candidates[key]
		g.Go(func() error {
			deps := scorer.DependencyPaths(e.cfg, c)

			if e.cache != nil {
				if cached, hit, err := e.cache.Get(scoreNamespace, c.Key(), deps); err == nil && hit {
					var s scorer.IntegrationScore
					if json.Unmarshal([]byte(cached), &s) == nil {
						mu.Lock()
						scores[c.Key()] = s
						mu.Unlock()
						return nil
					}
				}
			}

			s := sc.Score(gctx, c, metaByPath[c.FilePath])

			if e.cache != nil {
				if encoded, err := json.Marshal(s); err == nil {
					ttl := time.Duration(e.cfg.Cache.TTLSeconds) * time.Second
					if err := e.cache.Set(scoreNamespace, c.Key(), string(encoded), deps, ttl); err != nil {
						e.logger.Warn("Failed to cache score", map[string]interface{}{
							"candidate": c.Name,
							"error":     err.Error(),
						})
					}
				}
			}

			mu.Lock()
			scores[c.Key()] = s
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// loadRouting reads the routing table, treating a missing file as "nothing
// wired" rather than a failure.
func (e *Engine) loadRouting() *routing.Table {
	path := filepath.Join(e.cfg.RepoRoot, e.cfg.Convention.RoutingFile)
	table, err := routing.Load(path)
	if err != nil {
		if routing.IsMissing(err) {
			e.logger.Warn("Routing configuration missing; no candidate will score as wired", map[string]interface{}{
				"path": e.cfg.Convention.RoutingFile,
			})
		} else {
			e.logger.Warn("Routing configuration unreadable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil
	}
	return table
}

// planFixes generates templates for every conflict the remediation engine
// can plan, plus wiring fixes for routed candidates that scored unwired.
func (e *Engine) planFixes(conflicts []conflict.Conflict, candidates map[string]scanner.Candidate, scores map[string]scorer.IntegrationScore) []*remedy.FixTemplate {
	if e.remedy == nil {
		return nil
	}

	var fixes []*remedy.FixTemplate
	for _, c := range conflicts {
		if tmpl := e.remedy.GenerateTemplate(c); tmpl != nil {
			fixes = append(fixes, tmpl)
		}
	}

	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		c := candidates[key]
		s, ok := scores[c.Key()]
		if !ok || s.Wired || !c.Kind.RoutedThroughDispatch() {
			continue
		}
		if tmpl := e.remedy.GenerateWiringFix(c); tmpl != nil {
			fixes = append(fixes, tmpl)
		}
	}
	return fixes
}

// ConfirmImprovement re-runs the pipeline after a fix batch and reports
// whether overall health moved up (or held) relative to before.
func (e *Engine) ConfirmImprovement(ctx context.Context, before *report.AlignmentReport) (*report.AlignmentReport, bool, error) {
	after, _, err := e.Run(ctx)
	if err != nil {
		return nil, false, err
	}
	return after, after.OverallHealth >= before.OverallHealth, nil
}
