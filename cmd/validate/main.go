// Command validate checks a guidance catalog for consistency before it is
// deployed: cross-references between regions, rules, and narratives, tip
// coverage for every region and month, and fallback answer routing for every
// disaster.
//
// Usage:
//
//	go run ./cmd/validate                        # embedded catalog
//	go run ./cmd/validate -catalog-dir ./catalog # catalog on disk
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/storm-guidance-service/internal/answer"
	"github.com/couchcryptid/storm-guidance-service/internal/catalog"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogDir := flag.String("catalog-dir", "", "directory containing catalog YAML files (default: embedded catalog)")
	flag.Parse()

	if code := run(*catalogDir); code != 0 {
		os.Exit(code)
	}
}

func run(catalogDir string) int {
	fmt.Println("=== Guidance Catalog Validation ===")
	fmt.Println()

	c, err := load(catalogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	tips := domain.NewTipsService(domain.NewRuleEngine(c.Rules()), c)

	phases := []*phase{
		validateReferences(c),
		validateTipsCoverage(c, tips),
		validateDisasterCoverage(c),
		validateFallbackRouting(c, tips),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Catalog: %d regions, %d disasters, %d narratives, %d rules\n",
		len(c.AllRegions()), len(c.AllDisasters()), len(c.NarrativeIDs()), len(c.Rules()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func load(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Embedded()
	}
	return catalog.Load(os.DirFS(dir))
}

// validateReferences reports every lint finding as a phase error.
func validateReferences(c *catalog.Catalog) *phase {
	p := &phase{name: "Phase 1: References (rules, narratives)"}
	for _, f := range c.Lint() {
		p.errorf("%s", f)
	}
	return p
}

// validateTipsCoverage requires at least one tip for every region in every
// month. An empty result means the assistant has no local guidance to offer.
func validateTipsCoverage(c *catalog.Catalog, tips *domain.TipsService) *phase {
	p := &phase{name: "Phase 2: Tips Coverage (region x month)"}
	for _, r := range c.AllRegions() {
		var empty []string
		for m := time.January; m <= time.December; m++ {
			if len(tips.Tips(&r, m.String())) == 0 {
				empty = append(empty, m.String()[:3])
			}
		}
		if len(empty) > 0 {
			p.errorf("%s: no tips for %s", r.Code, strings.Join(empty, ", "))
		}
	}
	return p
}

// validateDisasterCoverage requires a disaster description for every hazard a
// region can report, matched exactly by name.
func validateDisasterCoverage(c *catalog.Catalog) *phase {
	p := &phase{name: "Phase 3: Disaster Coverage (hazards)"}
	described := make(map[string]bool)
	for _, d := range c.AllDisasters() {
		described[d.Name] = true
	}
	seen := make(map[string]bool)
	for _, r := range c.AllRegions() {
		for m := time.January; m <= time.December; m++ {
			for _, h := range domain.ActiveHazards(r, m.String()) {
				if described[h] || seen[h] {
					continue
				}
				seen[h] = true
				p.errorf("hazard %q (first seen in %s, %s) has no disaster description", h, r.Code, m)
			}
		}
	}
	return p
}

// validateFallbackRouting asks the rule-based provider about each disaster by
// name and by keyword and checks that the answer describes that disaster.
// Overlapping keywords show up here as one disaster shadowing another.
func validateFallbackRouting(c *catalog.Catalog, tips *domain.TipsService) *phase {
	p := &phase{name: "Phase 4: Fallback Routing (disasters)"}
	provider := answer.NewRuleBasedProvider(c, tips)
	ctx := context.Background()
	ac := domain.AskContext{Month: time.April.String()}

	for _, d := range c.AllDisasters() {
		probes := append([]string{strings.ToLower(d.Name)}, d.Keywords...)
		for _, q := range probes {
			reply, err := provider.Ask(ctx, "what about "+q+"?", ac)
			if err != nil {
				p.errorf("%s: ask %q: %v", d.Name, q, err)
				continue
			}
			got, _, _ := strings.Cut(reply, "\n")
			if got != d.Name {
				p.errorf("%s: question about %q answered as %q", d.Name, q, got)
			}
		}
	}
	return p
}
