package domain

// Synthetic reference tables shared by the domain tests.

var texas = Region{
	Code:    "TX",
	Name:    "Texas",
	Risk:    RiskHigh,
	Hazards: []string{"Severe Storms", "Flooding"},
	Seasons: []SeasonalWindow{
		{Label: "Tornado season", Months: []string{"March", "April", "May", "June"}, Hazards: []string{"Tornadoes", "Severe Storms"}, Risk: RiskVeryHigh},
		{Label: "Hurricane season", Months: []string{"June", "July", "August", "September", "October", "November"}, Hazards: []string{"Hurricanes"}, Risk: RiskHigh},
		{Label: "Summer heat", Months: []string{"July", "August"}, Hazards: []string{"Extreme Heat"}, Risk: RiskModerate},
	},
}

var testRules = []RuleEntry{
	{Region: "TX", Month: "April", Hazard: "Tornadoes", Narratives: []NarrativeID{"tornado-shelter", "weather-radio"}},
	{Region: "TX", Month: "April", Hazard: "Severe Storms", Narratives: []NarrativeID{"weather-radio", "hail-cover-car"}},
	{Region: "TX", Month: AllYear, Hazard: "Flooding", Narratives: []NarrativeID{"turn-around-dont-drown"}},
	{Region: "TX", Month: "July", Hazard: "Extreme Heat", Narratives: []NarrativeID{"heat-check-neighbors"}},
	{Region: "TX", Month: "July", Hazard: "Hurricanes", Narratives: []NarrativeID{"evacuation-zone"}},
	{Region: "TX", Month: "July", Hazard: "Hurricanes", Narratives: []NarrativeID{"go-bag", "evacuation-zone"}},
	{Region: "OK", Month: "April", Hazard: "Tornadoes", Narratives: []NarrativeID{"tornado-shelter"}},
}

type mapNarratives map[NarrativeID]string

func (m mapNarratives) Narrative(id NarrativeID) (string, bool) {
	s, ok := m[id]
	return s, ok
}

var testNarratives = mapNarratives{
	"tornado-shelter":        "Go to an interior room on the lowest floor when a tornado warning is issued.",
	"weather-radio":          "Keep a NOAA weather radio on and charged through storm season.",
	"hail-cover-car":         "Park under cover when large hail is in the forecast.",
	"turn-around-dont-drown": "Never drive through flooded roads; turn around, don't drown.",
	"heat-check-neighbors":   "Check on elderly neighbors during heat advisories.",
	"evacuation-zone":        "Know your hurricane evacuation zone and route.",
	"go-bag":                 "Keep a go-bag packed with three days of supplies.",
}
