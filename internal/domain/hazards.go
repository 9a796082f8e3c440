package domain

// ActiveHazards returns the hazards in effect for region during month: the
// baseline hazards followed by the hazards of every seasonal window covering
// month, each name kept at its first occurrence. The result is empty only when
// the region has no baseline hazards and no window matches.
func ActiveHazards(region Region, month string) []string {
	seen := make(map[string]struct{}, len(region.Hazards))
	hazards := make([]string, 0, len(region.Hazards))
	add := func(h string) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		hazards = append(hazards, h)
	}

	for _, h := range region.Hazards {
		add(h)
	}
	for _, w := range region.Seasons {
		if !w.Covers(month) {
			continue
		}
		for _, h := range w.Hazards {
			add(h)
		}
	}
	return hazards
}

// PeakRisk returns the highest risk among the region baseline and the
// seasonal windows active during month.
func PeakRisk(region Region, month string) RiskLevel {
	risk := region.Risk
	for _, w := range region.Seasons {
		if w.Covers(month) && w.Risk > risk {
			risk = w.Risk
		}
	}
	return risk
}
