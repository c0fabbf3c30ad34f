package scanner

import (
	"strings"
	"unicode"
)

// Candidate is a discovered component. Candidates are created by Discover
// and never mutated; identity is Name within a Kind.
type Candidate struct {
	Name                     string `json:"name"` // canonical kebab identifier, e.g. "plan-ado"
	Kind                     Kind   `json:"kind"`
	FilePath                 string `json:"filePath"` // repo-relative, forward slashes
	Line                     int    `json:"line"`
	DeclaredEntityName       string `json:"declaredEntityName"` // e.g. "PlanAdoOrchestrator"
	HasDeclaredDocumentation bool   `json:"hasDeclaredDocumentation"`
	// RequiredCtorArgs mirrors parse.Entity: 0 means a no-argument
	// construction exists, -1 means no constructor was declared.
	RequiredCtorArgs int `json:"requiredCtorArgs"`
}

// Key returns the kind-qualified identity used as the discovery map key.
func (c Candidate) Key() string {
	return string(c.Kind) + "/" + c.Name
}

// acronyms maps uppercase identifier chunks to their canonical kebab form.
// The table is the single source of truth for the identifier transform; a
// missing entry silently breaks guide and trigger matching for names using
// that acronym, so additions belong here, not at call sites.
var acronyms = map[string]string{
	"ADO": "ado",
	"AI":  "ai",
	"API": "api",
	"CI":  "ci",
	"CD":  "cd",
	"DB":  "db",
	"PR":  "pr",
	"QA":  "qa",
	"UI":  "ui",
	"URL": "url",
	"VCS": "vcs",
}

// KebabIdentifier converts a CamelCase entity base name to its canonical
// kebab-case identifier. Runs of uppercase letters are treated as one chunk
// and substituted through the acronym table, so "PlanADO" and "PlanAdo"
// both map to "plan-ado".
func KebabIdentifier(base string) string {
	chunks := splitCamel(base)
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if mapped, ok := acronyms[chunk]; ok {
			parts = append(parts, mapped)
			continue
		}
		parts = append(parts, strings.ToLower(chunk))
	}
	return strings.Join(parts, "-")
}

// NormalizeTrigger converts a routing trigger phrase ("plan ado") to the
// same canonical kebab identifier KebabIdentifier produces, which is how
// triggers are matched to declared entities.
func NormalizeTrigger(trigger string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(trigger)))
	return strings.Join(fields, "-")
}

// splitCamel splits a CamelCase identifier into word chunks. An uppercase
// run followed by a lowercase letter donates its last letter to the next
// chunk ("ADOPlanner" -> "ADO", "Planner").
func splitCamel(s string) []string {
	if s == "" {
		return nil
	}

	runes := []rune(s)
	var chunks []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur):
			boundary = true
		}
		if boundary {
			chunks = append(chunks, string(runes[start:i]))
			start = i
		}
	}
	chunks = append(chunks, string(runes[start:]))
	return chunks
}
