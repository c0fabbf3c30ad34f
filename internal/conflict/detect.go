// Package conflict implements the whole-repository static analyzer. It is
// independent of per-candidate scoring: one tree walk feeds four analyzers
// over the merged declaration and import index.
package conflict

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"conform/internal/config"
	"conform/internal/logging"
	"conform/internal/parse"
	"conform/internal/resolve"
	"conform/internal/routing"
	"conform/internal/scanner"
)

// Detector runs all conflict analyzers over a source tree.
type Detector struct {
	cfg     *config.Config
	logger  *logging.Logger
	scanner *scanner.Scanner
}

// NewDetector creates a detector sharing the engine's scanner so detection
// and discovery use the same walk rules.
func NewDetector(cfg *config.Config, logger *logging.Logger, sc *scanner.Scanner) *Detector {
	return &Detector{cfg: cfg, logger: logger, scanner: sc}
}

// DetectAll scans the whole tree once and returns every conflict, sorted by
// severity, then title, then affected path. The ordering is total, so the
// result is identical regardless of filesystem traversal order.
func (d *Detector) DetectAll(ctx context.Context, rootDir string) ([]Conflict, error) {
	infos, err := d.scanner.ParseTree(ctx, rootDir)
	if err != nil {
		return nil, err
	}
	return d.Analyze(infos), nil
}

// Analyze runs the four analyzers over already-parsed file summaries.
func (d *Detector) Analyze(infos []*parse.FileInfo) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, d.duplicateEntities(infos)...)
	conflicts = append(conflicts, d.orphanedReferences(infos)...)
	conflicts = append(conflicts, d.directoryDrift(infos)...)
	conflicts = append(conflicts, d.unresolvedDependencies(infos)...)

	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return strings.Join(a.AffectedPaths, "\x00") < strings.Join(b.AffectedPaths, "\x00")
	})
	return conflicts
}

// duplicateEntities flags entity names declared in more than one file.
// Duplicates are never auto-fixable: choosing which declaration survives
// needs human judgment.
func (d *Detector) duplicateEntities(infos []*parse.FileInfo) []Conflict {
	declaredIn := make(map[string][]string)
	for _, info := range infos {
		for _, entity := range info.Entities {
			if _, _, ok := scanner.KindForEntity(entity.Name); !ok {
				continue
			}
			declaredIn[entity.Name] = append(declaredIn[entity.Name], info.Path)
		}
	}

	var conflicts []Conflict
	for name, paths := range declaredIn {
		unique := dedupeSorted(paths)
		if len(unique) < 2 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:          TypeDuplicateEntity,
			Severity:      SeverityWarning,
			Title:         fmt.Sprintf("Duplicate entity %s", name),
			Description:   fmt.Sprintf("%s is declared in %d files; resolution is ambiguous", name, len(unique)),
			AffectedPaths: unique,
			SuggestedFix:  "Rename or remove all but one declaration",
			AutoFixable:   false,
		})
	}
	return conflicts
}

// orphanedReferences flags routing triggers whose derived implementing-type
// names match no declaration anywhere in the tree. A missing routing file
// means nothing is advertised, so nothing can be orphaned.
func (d *Detector) orphanedReferences(infos []*parse.FileInfo) []Conflict {
	routingPath := filepath.Join(d.cfg.RepoRoot, d.cfg.Convention.RoutingFile)
	table, err := routing.Load(routingPath)
	if err != nil {
		if routing.IsMissing(err) {
			d.logger.Debug("No routing configuration; skipping orphan analysis", nil)
			return nil
		}
		d.logger.Warn("Routing configuration unreadable; skipping orphan analysis", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	// Index declarations by canonical kebab identifier and by exact name.
	byKebab := make(map[string]bool)
	byName := make(map[string]bool)
	for _, info := range infos {
		for _, entity := range info.Entities {
			_, base, ok := scanner.KindForEntity(entity.Name)
			if !ok {
				continue
			}
			byName[entity.Name] = true
			byKebab[scanner.KebabIdentifier(base)] = true
		}
	}

	var conflicts []Conflict
	for _, trig := range table.Triggers {
		if trig.Target != "" && byName[trig.Target] {
			continue
		}
		if byKebab[scanner.NormalizeTrigger(trig.Trigger)] {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:          TypeOrphanedReference,
			Severity:      SeverityCritical,
			Title:         fmt.Sprintf("Orphaned trigger %q", trig.Trigger),
			Description:   fmt.Sprintf("Routing advertises %q but no declaration implements it", trig.Trigger),
			AffectedPaths: []string{filepath.ToSlash(d.cfg.Convention.RoutingFile)},
			SuggestedFix:  fmt.Sprintf("Scaffold an implementation for %q or remove the trigger", trig.Trigger),
			AutoFixable:   true,
			Trigger:       trig.Trigger,
		})
	}
	return conflicts
}

// directoryDrift flags recognized entities declared outside every expected
// directory family for their kind. Drift is auto-fixable: the fix is a file
// move.
func (d *Detector) directoryDrift(infos []*parse.FileInfo) []Conflict {
	var conflicts []Conflict
	for _, info := range infos {
		for _, entity := range info.Entities {
			kind, _, ok := scanner.KindForEntity(entity.Name)
			if !ok {
				continue
			}
			families := d.cfg.Convention.ExpectedDirs[string(kind)]
			if len(families) == 0 || inFamily(info.Path, families) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:          TypeDirectoryDrift,
				Severity:      SeverityWarning,
				Title:         fmt.Sprintf("Misplaced %s %s", kind, entity.Name),
				Description:   fmt.Sprintf("%s lives in %s, outside the expected %v", entity.Name, filepath.ToSlash(filepath.Dir(info.Path)), families),
				AffectedPaths: []string{info.Path},
				SuggestedFix:  fmt.Sprintf("Move %s into %s", info.Path, families[0]),
				AutoFixable:   true,
				EntityKind:    string(kind),
			})
		}
	}
	return conflicts
}

// unresolvedDependencies flags internal imports that resolve to nothing.
// Not auto-fixable: a dangling import needs human judgment.
func (d *Detector) unresolvedDependencies(infos []*parse.FileInfo) []Conflict {
	var conflicts []Conflict
	for _, info := range infos {
		for _, imp := range info.Imports {
			if !resolve.IsInternal(imp.Spec, info.Language) {
				continue
			}
			if _, ok := resolve.Resolve(d.cfg.RepoRoot, info.Path, imp.Spec, info.Language); ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:          TypeUnresolvedDependency,
				Severity:      SeverityCritical,
				Title:         fmt.Sprintf("Unresolved import %q in %s", imp.Spec, info.Path),
				Description:   fmt.Sprintf("Import %q (line %d) resolves to no file or package directory", imp.Spec, imp.Line),
				AffectedPaths: []string{info.Path},
				SuggestedFix:  "Fix the import path or restore the missing file",
				AutoFixable:   false,
			})
		}
	}
	return conflicts
}

func inFamily(path string, families []string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, family := range families {
		family = filepath.ToSlash(family)
		if dir == family || strings.HasPrefix(dir, family+"/") {
			return true
		}
	}
	return false
}

func dedupeSorted(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	var last string
	for i, p := range paths {
		if i == 0 || p != last {
			out = append(out, p)
		}
		last = p
	}
	return out
}
