// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile applies the special-case remediation rules that keep
// the local archive consistent with the upstream's irregular layouts:
// split directories, date-shifted frames, mixed hemispheres, strays.
package reconcile

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// RulesFile is the on-disk shape of the special-cases YAML file.
type RulesFile struct {
	SpecialCases []types.SpecialCase `yaml:"special_cases"`
}

// LoadRules reads and validates a special-cases file.
func LoadRules(path string) ([]types.SpecialCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file %s: %w", path, err)
	}

	var rf RulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	for i, rule := range rf.SpecialCases {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rules file %s, entry %d: %w", path, i+1, err)
		}
	}
	return rf.SpecialCases, nil
}

// RulesFor returns the rules selecting the given flight and product.
// Rules with an empty product match every product.
func RulesFor(rules []types.SpecialCase, flight types.Flight, product types.ProductType) []types.SpecialCase {
	var out []types.SpecialCase
	for _, r := range rules {
		rf, err := r.Flight()
		if err != nil {
			continue
		}
		if rf.ID() != flight.ID() {
			continue
		}
		if r.Product != "" && r.Product != product {
			continue
		}
		out = append(out, r)
	}
	return out
}

// WantsNextDay reports whether any rule asks for a next-day merge on the
// flight and product.
func WantsNextDay(rules []types.SpecialCase, flight types.Flight, product types.ProductType) bool {
	for _, r := range RulesFor(rules, flight, product) {
		if r.Action == types.ActionFetchNextDay {
			return true
		}
	}
	return false
}
