// Package catalog loads the bundled, read-only reference data: regions with
// their hazard profiles, disaster descriptions, advisory narratives, and the
// rule table mapping (region, month, hazard) to narratives.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

//go:embed data/*.yaml
var embedded embed.FS

// File names read from the catalog filesystem.
const (
	RegionsFile    = "regions.yaml"
	DisastersFile  = "disasters.yaml"
	NarrativesFile = "narratives.yaml"
	RulesFile      = "rules.yaml"
)

// Catalog holds the reference data. It is immutable after Load and safe for
// concurrent use. It implements domain.HazardCatalog, domain.DisasterCatalog,
// and domain.NarrativeStore.
type Catalog struct {
	regions    []domain.Region
	byCode     map[string]int
	disasters  []domain.Disaster
	narratives map[domain.NarrativeID]string
	rules      []domain.RuleEntry
}

type narrativeDoc struct {
	ID   domain.NarrativeID `yaml:"id"`
	Text string             `yaml:"text"`
}

// Embedded loads the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalog: %w", err)
	}
	return Load(sub)
}

// Load reads and validates the four catalog files from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	var (
		regions    []domain.Region
		disasters  []domain.Disaster
		narratives []narrativeDoc
		rules      []domain.RuleEntry
	)
	if err := decodeFile(fsys, RegionsFile, &regions); err != nil {
		return nil, err
	}
	if err := decodeFile(fsys, DisastersFile, &disasters); err != nil {
		return nil, err
	}
	if err := decodeFile(fsys, NarrativesFile, &narratives); err != nil {
		return nil, err
	}
	if err := decodeFile(fsys, RulesFile, &rules); err != nil {
		return nil, err
	}
	return build(regions, disasters, narratives, rules)
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func build(regions []domain.Region, disasters []domain.Disaster, narratives []narrativeDoc, rules []domain.RuleEntry) (*Catalog, error) {
	c := &Catalog{
		regions:    regions,
		byCode:     make(map[string]int, len(regions)),
		disasters:  disasters,
		narratives: make(map[domain.NarrativeID]string, len(narratives)),
		rules:      rules,
	}

	var errs []error
	for i, r := range regions {
		if r.Code == "" {
			errs = append(errs, fmt.Errorf("region %d: missing code", i))
			continue
		}
		if _, dup := c.byCode[r.Code]; dup {
			errs = append(errs, fmt.Errorf("region %s: duplicate code", r.Code))
			continue
		}
		c.byCode[r.Code] = i
		for _, w := range r.Seasons {
			for _, m := range w.Months {
				if !domain.IsMonthLabel(m) {
					errs = append(errs, fmt.Errorf("region %s window %q: unknown month %q", r.Code, w.Label, m))
				}
			}
		}
	}

	for _, n := range narratives {
		if n.ID == "" || n.Text == "" {
			errs = append(errs, fmt.Errorf("narrative %q: id and text are required", n.ID))
			continue
		}
		if _, dup := c.narratives[n.ID]; dup {
			errs = append(errs, fmt.Errorf("narrative %s: duplicate id", n.ID))
			continue
		}
		c.narratives[n.ID] = n.Text
	}

	for i, d := range disasters {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("disaster %d: missing name", i))
		}
	}

	for i, rule := range rules {
		if !domain.IsMonthLabel(rule.Month) {
			errs = append(errs, fmt.Errorf("rule %d (%s/%s): unknown month %q", i, rule.Region, rule.Hazard, rule.Month))
		}
		for _, id := range rule.Narratives {
			if _, ok := c.narratives[id]; !ok {
				errs = append(errs, fmt.Errorf("rule %d (%s/%s/%s): unknown narrative %q", i, rule.Region, rule.Month, rule.Hazard, id))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return c, nil
}

// AllRegions returns the regions in declaration order.
func (c *Catalog) AllRegions() []domain.Region {
	return slices.Clone(c.regions)
}

// Region looks a region up by its code.
func (c *Catalog) Region(code string) (domain.Region, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return domain.Region{}, false
	}
	return c.regions[i], true
}

// AllDisasters returns the disasters in declaration order.
func (c *Catalog) AllDisasters() []domain.Disaster {
	return slices.Clone(c.disasters)
}

// Narrative resolves a narrative identifier.
func (c *Catalog) Narrative(id domain.NarrativeID) (string, bool) {
	text, ok := c.narratives[id]
	return text, ok
}

// NarrativeIDs returns every narrative identifier in the store.
func (c *Catalog) NarrativeIDs() []domain.NarrativeID {
	ids := make([]domain.NarrativeID, 0, len(c.narratives))
	for id := range c.narratives {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Rules returns the rule table in declaration order.
func (c *Catalog) Rules() []domain.RuleEntry {
	return slices.Clone(c.rules)
}
