package scorer

// Per-check weights. These are fixed constants of the scoring model, never
// derived at runtime.
const (
	WeightDiscovered          = 20
	WeightImported            = 20
	WeightInstantiated        = 20
	WeightDocumented          = 10
	WeightTested              = 10
	WeightWired               = 10
	WeightOptimized           = 10
	WeightInterfaceDocumented = 10 // bonus, on top of the 100-point base
)

// MaxScore is the highest achievable score including the bonus check.
const MaxScore = 110

// Status thresholds on the 0-110 score.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Fixed issue messages, one per failing required check.
const (
	IssueNotDiscovered   = "Not discovered by convention scan"
	IssueNotImported     = "Module cannot be resolved"
	IssueNotInstantiated = "Cannot be instantiated"
	IssueNotDocumented   = "Missing documentation"
	IssueNotTested       = "No test coverage"
	IssueNotWired        = "Not wired to entry point"
	IssueNotOptimized    = "Performance not validated"
)

// IntegrationScore is the per-candidate scoring result. Immutable once
// produced; either computed fresh or retrieved verbatim from the cache.
type IntegrationScore struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	Discovered          bool `json:"discovered"`
	Imported            bool `json:"imported"`
	Instantiated        bool `json:"instantiated"`
	Documented          bool `json:"documented"`
	Tested              bool `json:"tested"`
	Wired               bool `json:"wired"`
	Optimized           bool `json:"optimized"`
	InterfaceDocumented bool `json:"interfaceDocumented"`

	Score  int      `json:"score"`
	Status string   `json:"status"`
	Issues []string `json:"issues,omitempty"`
}

// finalize derives Score, Status, and Issues from the check booleans.
// Checks never short-circuit, so the issue list is always complete.
func (s *IntegrationScore) finalize() {
	s.Score = 0
	s.Issues = nil

	add := func(ok bool, weight int, issue string) {
		if ok {
			s.Score += weight
		} else {
			s.Issues = append(s.Issues, issue)
		}
	}

	add(s.Discovered, WeightDiscovered, IssueNotDiscovered)
	add(s.Imported, WeightImported, IssueNotImported)
	add(s.Instantiated, WeightInstantiated, IssueNotInstantiated)
	add(s.Documented, WeightDocumented, IssueNotDocumented)
	add(s.Tested, WeightTested, IssueNotTested)
	add(s.Wired, WeightWired, IssueNotWired)
	add(s.Optimized, WeightOptimized, IssueNotOptimized)

	// Bonus check contributes score but no issue when absent.
	if s.InterfaceDocumented {
		s.Score += WeightInterfaceDocumented
	}

	switch {
	case s.Score >= 90:
		s.Status = StatusHealthy
	case s.Score >= 70:
		s.Status = StatusWarning
	default:
		s.Status = StatusCritical
	}
}
