// Package scorer computes per-candidate integration scores. Every check
// always runs -- no short-circuiting -- so issue lists are complete, and
// scoring has no side effects.
package scorer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"conform/internal/config"
	"conform/internal/coverage"
	"conform/internal/logging"
	"conform/internal/parse"
	"conform/internal/resolve"
	"conform/internal/routing"
	"conform/internal/scanner"
)

// placeholderMarkers flag a guide file as scaffolding rather than real
// documentation.
var placeholderMarkers = [][]byte{
	[]byte("TODO"),
	[]byte("TBD"),
	[]byte("PLACEHOLDER"),
	[]byte("Coming soon"),
	[]byte("lorem ipsum"),
}

// Scorer runs the fixed check pipeline against discovered candidates.
// Construct one per run with the routing table already loaded; the scorer
// itself only reads.
type Scorer struct {
	cfg      *config.Config
	logger   *logging.Logger
	routing  *routing.Table // nil when the routing config is missing
	coverage coverage.Provider
}

// NewScorer creates a scorer. table may be nil, in which case no routed
// candidate scores as wired.
func NewScorer(cfg *config.Config, logger *logging.Logger, table *routing.Table, cov coverage.Provider) *Scorer {
	return &Scorer{cfg: cfg, logger: logger, routing: table, coverage: cov}
}

// Score runs all checks for one candidate. meta is the candidate file's
// structural summary from the scan; a nil meta fails the imported check but
// runs everything else. Checks within one candidate run sequentially; the
// caller may score distinct candidates concurrently.
func (s *Scorer) Score(ctx context.Context, c scanner.Candidate, meta *parse.FileInfo) IntegrationScore {
	score := IntegrationScore{
		Name: c.Name,
		Kind: string(c.Kind),
	}

	score.Discovered = true // by construction: metadata came from the scanner
	score.Imported = s.checkImported(c, meta)
	score.Instantiated = s.checkInstantiated(c)
	score.Documented = s.checkDocumented(c)
	score.Tested = s.checkTested(ctx, c)
	score.Wired = s.checkWired(c)
	score.Optimized = s.checkOptimized(c)
	score.InterfaceDocumented = firstExisting(contractPaths(s.cfg, c)) != ""

	score.finalize()
	return score
}

// checkImported verifies the candidate's file parsed and every internal
// import it declares resolves to a real file.
func (s *Scorer) checkImported(c scanner.Candidate, meta *parse.FileInfo) bool {
	if meta == nil {
		return false
	}
	for _, imp := range meta.Imports {
		if !resolve.IsInternal(imp.Spec, meta.Language) {
			continue
		}
		if _, ok := resolve.Resolve(s.cfg.RepoRoot, meta.Path, imp.Spec, meta.Language); !ok {
			s.logger.Debug("Unresolved import fails imported check", map[string]interface{}{
				"candidate": c.Name,
				"import":    imp.Spec,
			})
			return false
		}
	}
	return true
}

// checkInstantiated applies the kind's instantiation rule structurally,
// from the parsed constructor signature; discovered code is never executed.
// Orchestrators pass by convention; other kinds need a construction
// reachable with no arguments. A class that declares no constructor gets
// the implicit zero-argument one in every class language; Go has no
// implicit constructor, so a missing NewXxx fails.
func (s *Scorer) checkInstantiated(c scanner.Candidate) bool {
	if c.Kind.AssumedInstantiable() {
		return true
	}
	if c.RequiredCtorArgs == 0 {
		return true
	}
	if c.RequiredCtorArgs < 0 {
		lang, ok := parse.LanguageFromExtension(filepath.Ext(c.FilePath))
		return ok && lang != parse.LangGo
	}
	return false
}

// checkDocumented requires both an attached doc comment and a real guide
// file: discoverable, above the size floor, and free of placeholder
// markers.
func (s *Scorer) checkDocumented(c scanner.Candidate) bool {
	if !c.HasDeclaredDocumentation {
		return false
	}
	guide := firstExisting(guidePaths(s.cfg, c))
	if guide == "" {
		return false
	}
	data, err := os.ReadFile(guide)
	if err != nil || len(data) < s.cfg.Convention.MinGuideBytes {
		return false
	}
	for _, marker := range placeholderMarkers {
		if bytes.Contains(data, marker) {
			return false
		}
	}
	return true
}

// checkTested requires a discoverable test file and measured coverage at or
// above the configured threshold.
func (s *Scorer) checkTested(ctx context.Context, c scanner.Candidate) bool {
	if firstExisting(testPaths(s.cfg, c)) == "" {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Probe.TimeoutMs)*time.Millisecond)
	defer cancel()

	pct, err := s.coverage.GetCoverage(probeCtx, c.Name, string(c.Kind))
	if err != nil {
		s.logger.Warn("Coverage probe failed", map[string]interface{}{
			"candidate": c.Name,
			"error":     err.Error(),
		})
		return false
	}
	return pct >= s.cfg.Convention.CoverageThreshold
}

// checkWired applies the kind's wiring rule: routed kinds must appear as a
// trigger target in the routing configuration, other kinds must appear in
// the entrypoint mapping table.
func (s *Scorer) checkWired(c scanner.Candidate) bool {
	if c.Kind.RoutedThroughDispatch() {
		if s.routing == nil {
			return false
		}
		if s.routing.TargetsEntity(c.DeclaredEntityName) {
			return true
		}
		for _, trig := range s.routing.Triggers {
			if scanner.NormalizeTrigger(trig.Trigger) == c.Name {
				return true
			}
		}
		return false
	}

	data, err := os.ReadFile(s.entrypointPath())
	if err != nil {
		return false
	}
	return bytes.Contains(data, []byte(c.DeclaredEntityName))
}

// checkOptimized requires a benchmark artifact with at least one recorded
// sample.
func (s *Scorer) checkOptimized(c scanner.Candidate) bool {
	path := firstExisting(benchPaths(s.cfg, c))
	if path == "" {
		return false
	}

	var artifact struct {
		Benchmarks []struct {
			Name      string  `toml:"name"`
			OpsPerSec float64 `toml:"ops_per_sec"`
		} `toml:"benchmark"`
	}
	if _, err := toml.DecodeFile(path, &artifact); err != nil {
		s.logger.Debug("Benchmark artifact unreadable", map[string]interface{}{
			"candidate": c.Name,
			"path":      path,
			"error":     err.Error(),
		})
		return false
	}
	return len(artifact.Benchmarks) > 0
}

func (s *Scorer) entrypointPath() string {
	return filepath.Join(s.cfg.RepoRoot, s.cfg.Convention.EntrypointFile)
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
