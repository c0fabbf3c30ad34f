package scorer

import (
	"path/filepath"
	"strings"

	"conform/internal/config"
	"conform/internal/scanner"
)

// GuideFileName returns the canonical guide filename for a candidate:
// <kebab-identifier>-<kind>-guide.md. The kebab identifier comes from the
// single shared transform in the scanner package; any mismatch there
// silently fails the documented check, which is why the transform has its
// own table-driven tests.
func GuideFileName(c scanner.Candidate) string {
	return c.Name + "-" + string(c.Kind) + "-guide.md"
}

// guidePaths lists every legal guide location, most specific first.
func guidePaths(cfg *config.Config, c scanner.Candidate) []string {
	stem := c.Name + "-" + string(c.Kind) + "-guide"
	root := filepath.Join(cfg.RepoRoot, cfg.Convention.DocsRoot)
	return []string{
		filepath.Join(root, stem+".md"),
		filepath.Join(root, stem+".markdown"),
		filepath.Join(root, stem+".txt"),
	}
}

// testPaths lists every legal test-file location for a candidate.
func testPaths(cfg *config.Config, c scanner.Candidate) []string {
	root := filepath.Join(cfg.RepoRoot, cfg.Convention.TestsRoot)
	snake := strings.ReplaceAll(c.Name, "-", "_")
	return []string{
		filepath.Join(root, c.Name+".test.ts"),
		filepath.Join(root, c.Name+".spec.ts"),
		filepath.Join(root, c.Name+".test.js"),
		filepath.Join(root, "test_"+snake+".py"),
		filepath.Join(root, snake+"_test.py"),
	}
}

// benchPaths lists every legal benchmark-artifact location.
func benchPaths(cfg *config.Config, c scanner.Candidate) []string {
	root := filepath.Join(cfg.RepoRoot, cfg.Convention.BenchRoot)
	return []string{
		filepath.Join(root, c.Name+"-bench.toml"),
		filepath.Join(root, c.Name+".toml"),
	}
}

// contractPaths lists every conventional interface-description location.
func contractPaths(cfg *config.Config, c scanner.Candidate) []string {
	root := filepath.Join(cfg.RepoRoot, cfg.Convention.ContractsRoot)
	return []string{
		filepath.Join(root, c.Name+".interface.json"),
		filepath.Join(root, c.Name+".interface.yaml"),
		filepath.Join(root, c.Name+".interface.yml"),
	}
}

// DependencyPaths returns the full dependency set for a candidate's cached
// score. The set must cover everything any check reads: the implementation
// file, every legal test/guide/bench/contract location (absent ones are
// fingerprinted as absent so creating them invalidates), the coverage
// summary, the entrypoint mapping table, and the global routing
// configuration. Routing is tracked by every candidate because a routing
// change flips the wired check for all of them at once; leaving any of
// these out is the classic stuck-score bug.
func DependencyPaths(cfg *config.Config, c scanner.Candidate) []string {
	deps := []string{
		filepath.Join(cfg.RepoRoot, filepath.FromSlash(c.FilePath)),
	}
	deps = append(deps, testPaths(cfg, c)...)
	deps = append(deps, guidePaths(cfg, c)...)
	deps = append(deps, benchPaths(cfg, c)...)
	deps = append(deps, contractPaths(cfg, c)...)
	deps = append(deps,
		filepath.Join(cfg.RepoRoot, cfg.Convention.CoverageSummary),
		filepath.Join(cfg.RepoRoot, cfg.Convention.EntrypointFile),
		filepath.Join(cfg.RepoRoot, cfg.Convention.RoutingFile),
	)
	return deps
}
