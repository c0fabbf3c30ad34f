package scanner

// Kind is the closed set of component categories the engine tracks. Each
// kind carries its own naming suffix and check-applicability rules, so
// callers switch on the enum instead of comparing suffix strings.
type Kind string

const (
	// KindOrchestrator components are invoked through the routing layer.
	KindOrchestrator Kind = "orchestrator"
	// KindAgent components are constructed directly and dispatched through
	// the entrypoint mapping table.
	KindAgent Kind = "agent"
)

// AllKinds lists every recognized kind in a fixed order.
var AllKinds = []Kind{KindOrchestrator, KindAgent}

// Suffix returns the declared-name suffix that marks an entity as this kind.
func (k Kind) Suffix() string {
	switch k {
	case KindOrchestrator:
		return "Orchestrator"
	case KindAgent:
		return "Agent"
	}
	return ""
}

// RoutedThroughDispatch reports whether wiring for this kind is checked
// against the routing configuration (true) or the entrypoint mapping table
// (false).
func (k Kind) RoutedThroughDispatch() bool {
	return k == KindOrchestrator
}

// AssumedInstantiable reports whether the instantiation check passes by
// convention. Orchestrators are never constructed directly; the routing
// layer owns their lifecycle.
func (k Kind) AssumedInstantiable() bool {
	return k == KindOrchestrator
}

// KindForEntity matches a declared entity name against the recognized
// suffixes and returns the kind plus the base name with the suffix removed.
// The bare suffix itself ("Orchestrator") is not a candidate.
func KindForEntity(entityName string) (kind Kind, base string, ok bool) {
	for _, k := range AllKinds {
		suffix := k.Suffix()
		if len(entityName) > len(suffix) && entityName[len(entityName)-len(suffix):] == suffix {
			return k, entityName[:len(entityName)-len(suffix)], true
		}
	}
	return "", "", false
}
