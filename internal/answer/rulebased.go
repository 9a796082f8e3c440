package answer

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

const (
	emptyQuestionReply = `Ask me something like "What should I do during a tornado?" or "What should I prepare for this month in my state?"`

	genericReply = "I can help you prepare for tornadoes, hurricanes, flooding, wildfires, earthquakes, extreme heat, and winter storms. " +
		"Ask about one of them for step-by-step guidance, or select your state and ask what to watch for this month. " +
		"If you are in immediate danger, call 911."

	// minStemLen is the shortest singular stem used for matching, so short
	// names do not match unrelated words.
	minStemLen = 4

	// minReverseMatchLen is the shortest question checked for containment in
	// a disaster name.
	minReverseMatchLen = 3
)

// locationCues mark a question about local conditions rather than a hazard.
var locationCues = []string{"state", "this month", "my area", "my state"}

// RuleBasedProvider answers from reference data alone. It never fails and
// never reports the preferred capability as available.
type RuleBasedProvider struct {
	disasters domain.DisasterCatalog
	tips      *domain.TipsService
}

// NewRuleBasedProvider creates a RuleBasedProvider over the disaster catalog
// and tips service.
func NewRuleBasedProvider(disasters domain.DisasterCatalog, tips *domain.TipsService) *RuleBasedProvider {
	return &RuleBasedProvider{disasters: disasters, tips: tips}
}

// IsPreferredAvailable always reports false.
func (p *RuleBasedProvider) IsPreferredAvailable() bool { return false }

// Ask matches the question against disaster names, then location cues, and
// falls back to a generic help text. The error is always nil.
func (p *RuleBasedProvider) Ask(_ context.Context, question string, ac domain.AskContext) (string, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return emptyQuestionReply, nil
	}

	if d, ok := p.matchDisaster(q); ok {
		return formatDisaster(d), nil
	}

	if ac.Region != nil && hasLocationCue(q, ac.Region) {
		if text, ok := p.localTips(ac); ok {
			return text, nil
		}
	}

	return genericReply, nil
}

// matchDisaster returns the first disaster, in catalog order, named by q.
func (p *RuleBasedProvider) matchDisaster(q string) (domain.Disaster, bool) {
	for _, d := range p.disasters.AllDisasters() {
		if mentionsDisaster(q, d) {
			return d, true
		}
	}
	return domain.Disaster{}, false
}

func mentionsDisaster(q string, d domain.Disaster) bool {
	name := strings.ToLower(d.Name)
	if name == "" {
		return false
	}
	if strings.Contains(q, name) {
		return true
	}
	if len([]rune(q)) >= minReverseMatchLen && strings.Contains(name, q) {
		return true
	}
	if stem := singular(name); len(stem) >= minStemLen && strings.Contains(q, stem) {
		return true
	}
	for _, kw := range d.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// singular drops a plural "es" or "s" suffix: "tornadoes" becomes "tornado",
// "wildfires" becomes "wildfire".
func singular(name string) string {
	for _, suffix := range []string{"oes", "ses", "xes", "ches", "shes"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, "es")
		}
	}
	return strings.TrimSuffix(name, "s")
}

func hasLocationCue(q string, region *domain.Region) bool {
	for _, cue := range locationCues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	if region == nil {
		return false
	}
	if name := strings.ToLower(region.Name); name != "" && strings.Contains(q, name) {
		return true
	}
	code := strings.ToLower(region.Code)
	return code != "" && slices.Contains(words(q), code)
}

func words(q string) []string {
	return strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (p *RuleBasedProvider) localTips(ac domain.AskContext) (string, bool) {
	tips := p.tips.Tips(ac.Region, ac.Month)
	if len(tips) == 0 {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString("This month in ")
	sb.WriteString(ac.Region.Name)
	sb.WriteString(":")
	for _, t := range tips {
		sb.WriteString("\n• ")
		sb.WriteString(t)
	}
	return sb.String(), true
}

func formatDisaster(d domain.Disaster) string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	if d.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(d.Description)
	}
	if len(d.Steps) > 0 {
		sb.WriteString("\n\nPreparedness steps:")
		for _, s := range d.Steps {
			sb.WriteString("\n• ")
			sb.WriteString(s)
		}
	}
	if len(d.Supplies) > 0 {
		sb.WriteString("\n\nSupplies: ")
		sb.WriteString(strings.Join(d.Supplies, ", "))
	}
	return sb.String()
}
