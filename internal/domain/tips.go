package domain

// TipsService resolves contextual safety tips for a region and month.
type TipsService struct {
	engine     *RuleEngine
	narratives NarrativeStore
}

// NewTipsService creates a TipsService over a rule engine and narrative store.
func NewTipsService(engine *RuleEngine, narratives NarrativeStore) *TipsService {
	return &TipsService{engine: engine, narratives: narratives}
}

// Tips returns the narrative texts for region during month. A nil region
// yields no tips. Hazards are visited in ActiveHazards order, so the result is
// deterministic for a given input.
func (s *TipsService) Tips(region *Region, month string) []string {
	if region == nil {
		return []string{}
	}
	hazards := ActiveHazards(*region, month)
	if len(hazards) == 0 {
		return []string{}
	}

	ids := s.engine.NarrativeIDs(region.Code, month, hazards)
	tips := make([]string, 0, len(ids))
	for _, id := range ids {
		// The catalog rejects rules that reference unknown narratives;
		// a miss here means the store was swapped underneath the engine.
		if text, ok := s.narratives.Narrative(id); ok {
			tips = append(tips, text)
		}
	}
	return tips
}
