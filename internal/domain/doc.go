// Package domain models the contextual safety guidance derived from bundled
// hazard reference data.
//
// # Reference Data
//
// Everything this package reasons over is read-only and loaded once at
// startup by the catalog package:
//
//	Region          two-letter code, display name, baseline risk, baseline
//	                hazards, and seasonal windows ("March"-"June" → Tornadoes)
//	Narrative       prewritten advisory text addressed by a stable NarrativeID
//	RuleEntry       (region, month | "All Year", hazard) → ordered NarrativeIDs
//	Disaster        name, description, preparedness steps, supply list
//
// Hazard names are free text and are compared with exact, case-sensitive
// string equality across regions, seasonal windows, and rules. There is no
// canonicalization layer: a casing mismatch between a region's "Severe
// Storms" and a rule's "Severe storms" silently drops every narrative for
// that hazard. cmd/validate reports such mismatches before they ship.
//
// # Month Labels
//
// Months are English month names as produced by [time.Month.String]
// ("January" … "December"). The sentinel [AllYear] matches every month, both
// inside a seasonal window's month set and as a rule's month.
//
// # Tip Derivation
//
//	ActiveHazards(region, month)
//	  baseline hazards, in declared order
//	  ∪ hazards of every seasonal window whose months contain month or AllYear,
//	    in window order then hazard order
//	  first occurrence wins → ordered, duplicate-free list
//
//	RuleEngine.NarrativeIDs(code, month, hazards)
//	  for each hazard in caller order:
//	    for each rule in table order with matching code, month|AllYear, hazard:
//	      append unseen ids in rule order
//
// The hazard iteration order is significant: it decides which narratives
// surface first. [TipsService] fixes it to the insertion order above so a
// given (region, month) always yields the same list.
//
// # Response Cleaning
//
// Generated text is normalized by [Clean]: a leading "null" artifact is
// stripped, the text is split into sentence fragments, fragments of ten
// characters or fewer are treated as noise, and repeated sentences are
// collapsed. See [Clean] for the exact rules.
package domain
