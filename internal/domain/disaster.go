package domain

// Disaster is a reference description of one disaster type.
type Disaster struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Steps       []string `json:"steps" yaml:"steps"`
	Supplies    []string `json:"supplies" yaml:"supplies"`

	// Keywords are extra lowercase terms that identify the disaster in a
	// question, e.g. "twister" for Tornadoes.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
}

// HazardCatalog provides read-only access to regions.
type HazardCatalog interface {
	AllRegions() []Region
	Region(code string) (Region, bool)
}

// DisasterCatalog provides read-only access to disaster descriptions.
type DisasterCatalog interface {
	AllDisasters() []Disaster
}
