package catalog

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// Finding is a consistency warning about the reference data. Findings do not
// prevent loading; they flag hazard names that will silently never match.
type Finding struct {
	Kind    string
	Subject string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s", f.Kind, f.Subject, f.Message)
}

// Finding kinds.
const (
	FindingUnknownRegion    = "unknown-region"
	FindingUndeclaredHazard = "undeclared-hazard"
	FindingUncoveredHazard  = "uncovered-hazard"
	FindingUnusedNarrative  = "unused-narrative"
)

// Lint cross-checks hazard names between regions and rules. Hazard names are
// compared exactly, the same way the rule engine matches them.
func (c *Catalog) Lint() []Finding {
	var findings []Finding

	declared := make(map[string]map[string]bool, len(c.regions))
	for _, r := range c.regions {
		set := make(map[string]bool)
		for _, h := range r.Hazards {
			set[h] = true
		}
		for _, w := range r.Seasons {
			for _, h := range w.Hazards {
				set[h] = true
			}
		}
		declared[r.Code] = set
	}

	covered := make(map[string]map[string]bool)
	used := make(map[domain.NarrativeID]bool)
	for i, rule := range c.rules {
		for _, id := range rule.Narratives {
			used[id] = true
		}
		set, ok := declared[rule.Region]
		if !ok {
			findings = append(findings, Finding{
				Kind:    FindingUnknownRegion,
				Subject: fmt.Sprintf("rule %d", i),
				Message: fmt.Sprintf("region %q is not in the catalog", rule.Region),
			})
			continue
		}
		if !set[rule.Hazard] {
			findings = append(findings, Finding{
				Kind:    FindingUndeclaredHazard,
				Subject: fmt.Sprintf("rule %d", i),
				Message: fmt.Sprintf("hazard %q is not declared by region %s", rule.Hazard, rule.Region),
			})
		}
		if covered[rule.Region] == nil {
			covered[rule.Region] = make(map[string]bool)
		}
		covered[rule.Region][rule.Hazard] = true
	}

	for _, r := range c.regions {
		hazards := make([]string, 0, len(declared[r.Code]))
		for h := range declared[r.Code] {
			hazards = append(hazards, h)
		}
		slices.Sort(hazards)
		for _, h := range hazards {
			if !covered[r.Code][h] {
				findings = append(findings, Finding{
					Kind:    FindingUncoveredHazard,
					Subject: "region " + r.Code,
					Message: fmt.Sprintf("hazard %q has no rule", h),
				})
			}
		}
	}

	for _, id := range c.NarrativeIDs() {
		if !used[id] {
			findings = append(findings, Finding{
				Kind:    FindingUnusedNarrative,
				Subject: "narrative " + string(id),
				Message: "not referenced by any rule",
			})
		}
	}
	return findings
}
