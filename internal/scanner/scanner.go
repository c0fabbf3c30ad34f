// Package scanner discovers convention-following components in a source
// tree. Discovery is purely structural: entities are recognized by declared
// name suffix and location, never by executing discovered code.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"conform/internal/config"
	"conform/internal/logging"
	"conform/internal/parse"
)

// Scanner walks the source tree and extracts candidate metadata.
type Scanner struct {
	cfg    *config.Config
	logger *logging.Logger
}

// NewScanner creates a scanner bound to a configuration and logger.
func NewScanner(cfg *config.Config, logger *logging.Logger) *Scanner {
	return &Scanner{cfg: cfg, logger: logger}
}

// CollectFiles gathers every supported source file under the configured
// scan roots, sorted for deterministic downstream processing.
func (s *Scanner) CollectFiles(rootDir string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, root := range s.cfg.Scan.Roots {
		base := filepath.Join(rootDir, root)
		err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped, never fatal
			}
			name := info.Name()
			if info.IsDir() {
				if path != base && (strings.HasPrefix(name, ".") || s.ignored(name)) {
					return filepath.SkipDir
				}
				return nil
			}
			if s.cfg.Scan.MaxFileSizeBytes > 0 && info.Size() > int64(s.cfg.Scan.MaxFileSizeBytes) {
				return nil
			}
			if _, ok := parse.LanguageFromExtension(strings.ToLower(filepath.Ext(path))); !ok {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) ignored(dirName string) bool {
	for _, ig := range s.cfg.Scan.Ignore {
		if dirName == ig {
			return true
		}
	}
	return false
}

// ParseTree parses every collected file and returns the structural
// summaries, ordered by path. Files that fail to parse are logged and
// skipped; a parse failure never aborts the scan. Parsing fans out over a
// worker pool bounded by ScanConfig.Workers; no shared state is written
// until the merge at the end.
func (s *Scanner) ParseTree(ctx context.Context, rootDir string) ([]*parse.FileInfo, error) {
	files, err := s.CollectFiles(rootDir)
	if err != nil {
		return nil, err
	}

	// Workers write to disjoint slots; the merge happens after Wait.
	results := make([]*parse.FileInfo, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scan.Workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			// Tree-sitter parsers are not safe for concurrent use;
			// each unit of work gets its own.
			parser := parse.NewParser()
			info, perr := parser.ParseFile(gctx, path)
			if perr != nil {
				s.logger.Warn("Skipping unparseable file", map[string]interface{}{
					"path":  path,
					"error": perr.Error(),
				})
				return nil
			}
			if info == nil {
				return nil
			}
			if rel, rerr := filepath.Rel(rootDir, path); rerr == nil {
				info.Path = filepath.ToSlash(rel)
			}
			results[i] = info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]*parse.FileInfo, 0, len(results))
	for _, info := range results {
		if info != nil {
			merged = append(merged, info)
		}
	}
	return merged, nil
}

// Discover walks the tree and returns all candidates keyed by
// Candidate.Key(). The result is deterministic for an unchanged tree: files
// are processed in sorted order and the first declaration of a duplicated
// entity wins (the duplication itself surfaces as a conflict, not here).
func (s *Scanner) Discover(ctx context.Context, rootDir string) (map[string]Candidate, error) {
	infos, err := s.ParseTree(ctx, rootDir)
	if err != nil {
		return nil, err
	}
	return CandidatesFromTree(infos), nil
}

// CandidatesFromTree reduces parsed file summaries to the candidate map.
// Split out so the conflict detector can share one tree walk with
// discovery.
func CandidatesFromTree(infos []*parse.FileInfo) map[string]Candidate {
	candidates := make(map[string]Candidate)
	for _, info := range infos {
		for _, entity := range info.Entities {
			kind, base, ok := KindForEntity(entity.Name)
			if !ok {
				continue
			}
			c := Candidate{
				Name:                     KebabIdentifier(base),
				Kind:                     kind,
				FilePath:                 info.Path,
				Line:                     entity.Line,
				DeclaredEntityName:       entity.Name,
				HasDeclaredDocumentation: entity.HasDocComment,
				RequiredCtorArgs:         entity.RequiredCtorArgs,
			}
			if _, exists := candidates[c.Key()]; exists {
				continue // first declaration in sorted file order wins
			}
			candidates[c.Key()] = c
		}
	}
	return candidates
}
