package domain

// RuleEngine evaluates a fixed rule table. It holds no mutable state and is
// safe for concurrent use.
type RuleEngine struct {
	rules []RuleEntry
}

// NewRuleEngine creates an engine over rules. The slice is copied; table
// order is the tie-break between entries matching the same hazard.
func NewRuleEngine(rules []RuleEntry) *RuleEngine {
	return &RuleEngine{rules: append([]RuleEntry(nil), rules...)}
}

// NarrativeIDs returns the narratives for regionCode during month, visiting
// hazards in the given order. Identifiers are emitted once, at their first
// occurrence across the whole call. Unknown regions, months, or hazards
// contribute nothing.
func (e *RuleEngine) NarrativeIDs(regionCode, month string, hazards []string) []NarrativeID {
	var ids []NarrativeID
	seen := make(map[NarrativeID]struct{})

	for _, hazard := range hazards {
		for _, rule := range e.rules {
			if !rule.matches(regionCode, month, hazard) {
				continue
			}
			for _, id := range rule.Narratives {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}
