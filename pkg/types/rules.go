// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// RuleAction names one remediation procedure from the special-cases file.
type RuleAction string

const (
	// ActionFetchNextDay merges the next day's listing into the flight
	// index; some runs store trailing frames under the following date.
	ActionFetchNextDay RuleAction = "fetch-next-day"

	// ActionConcatDirs concatenates the indexes of two subdirectories of
	// a flight that upstream split for no structural reason.
	ActionConcatDirs RuleAction = "concat-dirs"

	// ActionSplitHemisphere separates a directory holding both AN and GR
	// granules by sidecar latitude.
	ActionSplitHemisphere RuleAction = "split-hemisphere"

	// ActionMergeInto moves a stray directory's granules into the
	// canonical flight directory and rewrites the union index.
	ActionMergeInto RuleAction = "merge-into"
)

// SpecialCase is one remediation rule: a flight selector plus an action.
type SpecialCase struct {
	// Site and Date select the flight the rule applies to.
	Site Site   `json:"site" yaml:"site"`
	Date string `json:"date" yaml:"date"`

	// Product restricts the rule to one product family; empty matches all.
	Product ProductType `json:"product,omitempty" yaml:"product,omitempty"`

	// Action is the remediation to perform.
	Action RuleAction `json:"action" yaml:"action"`

	// Dirs names the subdirectories for concat-dirs (primary first) and
	// the source directory for merge-into.
	Dirs []string `json:"dirs,omitempty" yaml:"dirs,omitempty"`

	// Note is free-text operator context carried over from the archive notes.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Validate checks that the rule is well-formed.
func (r SpecialCase) Validate() error {
	if !r.Site.Valid() {
		return fmt.Errorf("rule for %s: site must be AN or GR", r.Date)
	}
	if _, err := ParseFlightDate(r.Date); err != nil {
		return fmt.Errorf("rule for site %s: %w", r.Site, err)
	}
	switch r.Action {
	case ActionFetchNextDay, ActionSplitHemisphere:
		// No arguments required.
	case ActionConcatDirs:
		if len(r.Dirs) != 2 {
			return fmt.Errorf("rule %s_%s: concat-dirs needs exactly two dirs", r.Site, r.Date)
		}
	case ActionMergeInto:
		if len(r.Dirs) != 1 {
			return fmt.Errorf("rule %s_%s: merge-into needs exactly one source dir", r.Site, r.Date)
		}
	default:
		return fmt.Errorf("rule %s_%s: unknown action %q", r.Site, r.Date, r.Action)
	}
	return nil
}

// Flight returns the flight the rule selects. Validate first.
func (r SpecialCase) Flight() (Flight, error) {
	d, err := ParseFlightDate(r.Date)
	if err != nil {
		return Flight{}, err
	}
	return Flight{Site: r.Site, Date: d}, nil
}
