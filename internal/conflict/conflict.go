package conflict

// Type is the closed set of structural inconsistencies the detector
// recognizes. Fix generation switches exhaustively over this enum; there is
// no string-matched dispatch anywhere downstream.
type Type string

const (
	// TypeDuplicateEntity means one entity name is declared in more than
	// one file.
	TypeDuplicateEntity Type = "duplicate-entity"
	// TypeOrphanedReference means the routing configuration advertises a
	// trigger no declaration implements.
	TypeOrphanedReference Type = "orphaned-reference"
	// TypeDirectoryDrift means a recognized entity lives outside the
	// directory family expected for its kind.
	TypeDirectoryDrift Type = "directory-drift"
	// TypeUnresolvedDependency means an internal import resolves to no
	// file or package directory.
	TypeUnresolvedDependency Type = "unresolved-dependency"
)

// Severity orders conflicts; lower sorts first.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// MarshalJSON encodes severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Conflict is one detected inconsistency. Conflicts are produced fresh on
// every analysis run; only aggregate counts persist in history.
type Conflict struct {
	Type          Type     `json:"type"`
	Severity      Severity `json:"severity"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AffectedPaths []string `json:"affectedPaths"`
	SuggestedFix  string   `json:"suggestedFix,omitempty"`
	AutoFixable   bool     `json:"autoFixable"`

	// EntityKind carries the candidate kind for drift conflicts and
	// Trigger the advertised phrase for orphaned references, so fix
	// generation never parses display strings.
	EntityKind string `json:"entityKind,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
}
