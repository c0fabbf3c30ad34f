package remedy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"conform/internal/conflict"
	"conform/internal/routing"
	"conform/internal/scanner"
)

// FixKind is the closed set of repair strategies.
type FixKind string

const (
	FixKindMove     FixKind = "move"
	FixKindScaffold FixKind = "scaffold"
	FixKindRename   FixKind = "rename"
	FixKindEdit     FixKind = "edit"
)

// RiskLevel grades how much can go wrong when a fix is applied.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FixState tracks one fix through the confirm/apply state machine.
type FixState string

const (
	StateIdle       FixState = "idle"
	StatePreviewed  FixState = "previewed"
	StateConfirmed  FixState = "confirmed"
	StateApplying   FixState = "applying"
	StateApplied    FixState = "applied"
	StateFailed     FixState = "failed"
	StateRolledBack FixState = "rolled-back"
)

// CommandKind is the closed set of operations a fix may perform.
type CommandKind string

const (
	// CommandExec runs an external program with fixed arguments.
	CommandExec CommandKind = "exec"
	// CommandWriteFile creates a new file with fixed content. Refuses to
	// overwrite an existing file.
	CommandWriteFile CommandKind = "write-file"
	// CommandAppendTrigger appends a trigger to the routing configuration,
	// the only write the engine ever makes to that file.
	CommandAppendTrigger CommandKind = "append-trigger"
)

// Command is one step of a fix. Exactly the fields for its kind are set.
type Command struct {
	Kind    CommandKind     `json:"kind"`
	Argv    []string        `json:"argv,omitempty"`
	Path    string          `json:"path,omitempty"`
	Content string          `json:"content,omitempty"`
	Trigger routing.Trigger `json:"trigger,omitempty"`
}

// String renders the command the way the preview shows it.
func (c Command) String() string {
	switch c.Kind {
	case CommandExec:
		return strings.Join(c.Argv, " ")
	case CommandWriteFile:
		return fmt.Sprintf("write %s (%d bytes)", c.Path, len(c.Content))
	case CommandAppendTrigger:
		return fmt.Sprintf("append trigger %q -> %s to %s", c.Trigger.Trigger, c.Trigger.Target, c.Path)
	}
	return string(c.Kind)
}

// FixTemplate is the concrete repair plan for one conflict. Consumed once
// by the apply step; never persisted.
type FixTemplate struct {
	ID            string            `json:"id"`
	Conflict      conflict.Conflict `json:"conflict"`
	FixKind       FixKind           `json:"fixKind"`
	BeforeState   string            `json:"beforeState"`
	AfterState    string            `json:"afterState"`
	Commands      []Command         `json:"commands"`
	AffectedPaths []string          `json:"affectedPaths"`
	Reversible    bool              `json:"reversible"`
	RiskLevel     RiskLevel         `json:"riskLevel"`

	State    FixState `json:"state"`
	FailedAt string   `json:"failedAt,omitempty"` // command that failed, if any
}

// GenerateTemplate maps a conflict to its fix plan. The mapping is a
// deterministic, exhaustive switch over the conflict type; unknown types
// yield nil.
func (e *Engine) GenerateTemplate(c conflict.Conflict) *FixTemplate {
	base := &FixTemplate{
		ID:            uuid.NewString(),
		Conflict:      c,
		AffectedPaths: c.AffectedPaths,
		State:         StateIdle,
	}

	switch c.Type {
	case conflict.TypeDuplicateEntity:
		// Keep the first-found declaration; the rest need a distinguishing
		// suffix. Renaming a declared type is a content edit no generated
		// command can do safely, so the plan is manual.
		base.FixKind = FixKindRename
		base.BeforeState = fmt.Sprintf("Entity declared in %d files: %s", len(c.AffectedPaths), strings.Join(c.AffectedPaths, ", "))
		keep := ""
		if len(c.AffectedPaths) > 0 {
			keep = c.AffectedPaths[0]
		}
		base.AfterState = fmt.Sprintf("Declaration in %s kept; later declarations renamed with a distinguishing suffix", keep)
		base.Reversible = true
		base.RiskLevel = RiskHigh
		return base

	case conflict.TypeOrphanedReference:
		trigger := c.Trigger
		stubPath, content := e.scaffoldStub(trigger)
		base.FixKind = FixKindScaffold
		base.BeforeState = fmt.Sprintf("Trigger %q routes to nothing", trigger)
		base.AfterState = fmt.Sprintf("Minimal implementation stub at %s", stubPath)
		base.Commands = []Command{{
			Kind:    CommandWriteFile,
			Path:    stubPath,
			Content: content,
		}}
		base.AffectedPaths = append([]string{stubPath}, c.AffectedPaths...)
		base.Reversible = true
		base.RiskLevel = RiskLow
		return base

	case conflict.TypeDirectoryDrift:
		if len(c.AffectedPaths) == 0 {
			return nil
		}
		src := c.AffectedPaths[0]
		destDir := e.expectedDirFor(c)
		if destDir == "" {
			return nil
		}
		dest := filepath.ToSlash(filepath.Join(destDir, filepath.Base(src)))
		base.FixKind = FixKindMove
		base.BeforeState = fmt.Sprintf("%s outside its expected directory family", src)
		base.AfterState = fmt.Sprintf("File moved to %s", dest)
		base.Commands = []Command{
			{Kind: CommandExec, Argv: []string{"mkdir", "-p", destDir}},
			{Kind: CommandExec, Argv: []string{"git", "mv", src, dest}},
		}
		base.AffectedPaths = []string{src, dest}
		base.Reversible = true
		base.RiskLevel = RiskLow
		return base

	case conflict.TypeUnresolvedDependency:
		base.FixKind = FixKindEdit
		base.BeforeState = c.Description
		base.AfterState = "Import corrected or missing file restored (manual review)"
		base.Reversible = true
		base.RiskLevel = RiskHigh
		return base
	}

	return nil
}

// scaffoldStub builds the path and content of a minimal orchestrator stub
// implementing a trigger.
func (e *Engine) scaffoldStub(trigger string) (path, content string) {
	kebab := scanner.NormalizeTrigger(trigger)
	entity := pascalFromKebab(kebab) + scanner.KindOrchestrator.Suffix()

	dir := "src/orchestrators"
	if families := e.cfg.Convention.ExpectedDirs[string(scanner.KindOrchestrator)]; len(families) > 0 {
		dir = families[0]
	}
	path = filepath.ToSlash(filepath.Join(dir, kebab+".ts"))

	content = fmt.Sprintf(`/**
 * %s implements the %q trigger.
 *
 * Scaffolded by conform; replace the run body with a real implementation.
 */
export class %s {
  constructor() {}

  async run(): Promise<void> {
    throw new Error("%s is not implemented yet");
  }
}
`, entity, trigger, entity, entity)
	return path, content
}

// expectedDirFor returns the destination family for a drift conflict.
func (e *Engine) expectedDirFor(c conflict.Conflict) string {
	if families := e.cfg.Convention.ExpectedDirs[c.EntityKind]; len(families) > 0 {
		return families[0]
	}
	return ""
}

// GenerateWiringFix plans the wiring repair for a routed candidate that is
// discovered but unreachable: append a trigger routing its canonical
// identifier to its declared entity. This is the engine's only write path
// into the routing configuration.
func (e *Engine) GenerateWiringFix(c scanner.Candidate) *FixTemplate {
	if !c.Kind.RoutedThroughDispatch() {
		return nil
	}
	trigger := routing.Trigger{
		Trigger:     strings.ReplaceAll(c.Name, "-", " "),
		Target:      c.DeclaredEntityName,
		Description: fmt.Sprintf("wired by conform for %s", c.FilePath),
	}
	return &FixTemplate{
		ID: uuid.NewString(),
		Conflict: conflict.Conflict{
			Severity:    conflict.SeverityWarning,
			Title:       fmt.Sprintf("Unwired %s %s", c.Kind, c.DeclaredEntityName),
			Description: fmt.Sprintf("%s is declared but no routing trigger dispatches to it", c.DeclaredEntityName),
			AutoFixable: true,
		},
		FixKind:     FixKindEdit,
		BeforeState: fmt.Sprintf("%s is not reachable through routing", c.DeclaredEntityName),
		AfterState:  fmt.Sprintf("Trigger %q dispatches to %s", trigger.Trigger, c.DeclaredEntityName),
		Commands: []Command{{
			Kind:    CommandAppendTrigger,
			Path:    e.cfg.Convention.RoutingFile,
			Trigger: trigger,
		}},
		AffectedPaths: []string{e.cfg.Convention.RoutingFile},
		Reversible:    true,
		RiskLevel:     RiskLow,
		State:         StateIdle,
	}
}

func pascalFromKebab(kebab string) string {
	parts := strings.Split(kebab, "-")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
