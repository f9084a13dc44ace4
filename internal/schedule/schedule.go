// Package schedule holds the declarative workflow schedule and the persisted
// progress counter that drives the automated report workflow.
package schedule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry is one unit of work: a pair of report IDs plus the people who get
// the resulting summaries.
type Entry struct {
	Pair      []int    `yaml:"pair"`
	Receivers []string `yaml:"receivers"`
	CC        []string `yaml:"cc,omitempty"`
}

// Group is a named, ordered sequence of entries. Groups exist for operator
// bookkeeping; iteration order runs across the flattened entry list.
type Group struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries"`
}

// Schedule is the declarative schedule definition. Groups and entries are
// explicit YAML lists so that file order defines execution order.
type Schedule struct {
	Groups []Group `yaml:"groups"`
}

// FlatEntry is a schedule entry together with the name of its group.
type FlatEntry struct {
	Group string
	Entry
}

// Load reads and validates a schedule definition from a YAML file.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schedule file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule file %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks that every entry has a well-formed report pair and at
// least one receiver.
func (s *Schedule) Validate() error {
	for _, g := range s.Groups {
		if g.Name == "" {
			return fmt.Errorf("schedule group without a name")
		}
		for i, e := range g.Entries {
			if len(e.Pair) != 2 {
				return fmt.Errorf("group %q entry %d: pair must hold exactly 2 report IDs, got %d", g.Name, i+1, len(e.Pair))
			}
			if e.Pair[0] <= 0 || e.Pair[1] <= 0 {
				return fmt.Errorf("group %q entry %d: report IDs must be positive", g.Name, i+1)
			}
			if len(e.Receivers) == 0 {
				return fmt.Errorf("group %q entry %d: at least one receiver is required", g.Name, i+1)
			}
		}
	}
	return nil
}

// Flatten returns all entries in schedule order: groups in file order, each
// group's entries in file order.
func (s *Schedule) Flatten() []FlatEntry {
	var entries []FlatEntry
	for _, g := range s.Groups {
		for _, e := range g.Entries {
			entries = append(entries, FlatEntry{Group: g.Name, Entry: e})
		}
	}
	return entries
}

// Len returns the total number of entries across all groups.
func (s *Schedule) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Entries)
	}
	return n
}
