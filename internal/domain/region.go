package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// AllYear is the sentinel month label matching every month.
const AllYear = "All Year"

// RiskLevel is an ordered risk classification: Low < Moderate < High < VeryHigh.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskHigh
	RiskVeryHigh
)

var riskLabels = [...]string{"low", "moderate", "high", "very-high"}

func (r RiskLevel) String() string {
	if r < RiskLow || r > RiskVeryHigh {
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
	return riskLabels[r]
}

// ParseRiskLevel accepts the labels produced by String, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, label := range riskLabels {
		if s == label {
			return RiskLevel(i), nil
		}
	}
	return RiskLow, fmt.Errorf("unknown risk level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(b []byte) error {
	v, err := ParseRiskLevel(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// SeasonalWindow is a named period during which extra hazards are elevated.
type SeasonalWindow struct {
	Label   string    `json:"label" yaml:"label"`
	Months  []string  `json:"months" yaml:"months"`
	Hazards []string  `json:"hazards" yaml:"hazards"`
	Risk    RiskLevel `json:"risk" yaml:"risk"`
}

// Covers reports whether the window is active in month.
func (w SeasonalWindow) Covers(month string) bool {
	return slices.Contains(w.Months, month) || slices.Contains(w.Months, AllYear)
}

// Region is a geographic unit (a US state) carrying hazard metadata.
type Region struct {
	Code    string           `json:"code" yaml:"code"`
	Name    string           `json:"name" yaml:"name"`
	Risk    RiskLevel        `json:"risk" yaml:"risk"`
	Hazards []string         `json:"hazards" yaml:"hazards"`
	Seasons []SeasonalWindow `json:"seasons,omitempty" yaml:"seasons"`
}

// IsMonthLabel reports whether s is a month name or the AllYear sentinel.
func IsMonthLabel(s string) bool {
	if s == AllYear {
		return true
	}
	for m := time.January; m <= time.December; m++ {
		if m.String() == s {
			return true
		}
	}
	return false
}

// NormalizeMonth maps user input such as "april" or "Apr" to a month label.
// It returns false when s names no month.
func NormalizeMonth(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if strings.EqualFold(s, AllYear) {
		return AllYear, true
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || (len(s) == 3 && strings.EqualFold(s, name[:3])) {
			return name, true
		}
	}
	return "", false
}
