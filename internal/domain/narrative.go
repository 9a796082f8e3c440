package domain

// NarrativeID is a stable key for a prewritten advisory text.
type NarrativeID string

// NarrativeStore resolves narrative identifiers to text.
type NarrativeStore interface {
	Narrative(id NarrativeID) (string, bool)
}

// RuleEntry associates a (region, month, hazard) triple with an ordered list
// of narratives. Month may be AllYear.
type RuleEntry struct {
	Region     string        `json:"region" yaml:"region"`
	Month      string        `json:"month" yaml:"month"`
	Hazard     string        `json:"hazard" yaml:"hazard"`
	Narratives []NarrativeID `json:"narratives" yaml:"narratives"`
}

func (e RuleEntry) matches(region, month, hazard string) bool {
	return e.Region == region &&
		(e.Month == month || e.Month == AllYear) &&
		e.Hazard == hazard
}
