package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnitRule holds the static rules of a unit type loaded from YAML.
type UnitRule struct {
	Type           string   `yaml:"type"`
	SettleDuration uint64   `yaml:"settle_duration"` // frames
	CanSettle      bool     `yaml:"can_settle"`
	Can            []string `yaml:"can"`
	RequiredTons   uint64   `yaml:"required_tons"`
}

type ruleListFile struct {
	RuleSet         uint32     `yaml:"ruleset"`
	Tasks           []string   `yaml:"tasks"`
	Units           []UnitRule `yaml:"units"`
	StartupTerrains []string   `yaml:"startup_terrains"`
}

// RuleTable holds unit rules indexed by unit type name.
type RuleTable struct {
	ruleSet  uint32
	tasks    []string
	units    map[string]*UnitRule
	startups map[string]bool
}

// LoadRuleTable loads a rule set description from a YAML file.
func LoadRuleTable(path string) (*RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}
	return ParseRuleTable(raw)
}

func ParseRuleTable(raw []byte) (*RuleTable, error) {
	var f ruleListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	t := &RuleTable{
		ruleSet:  f.RuleSet,
		tasks:    f.Tasks,
		units:    make(map[string]*UnitRule, len(f.Units)),
		startups: make(map[string]bool, len(f.StartupTerrains)),
	}
	for i := range f.Units {
		u := &f.Units[i]
		if u.Type == "" {
			return nil, fmt.Errorf("parse rule table: unit %d has no type", i)
		}
		t.units[u.Type] = u
	}
	for _, terrain := range f.StartupTerrains {
		t.startups[terrain] = true
	}
	return t, nil
}

func (t *RuleTable) RuleSet() uint32 {
	return t.ruleSet
}

func (t *RuleTable) Tasks() []string {
	return t.tasks
}

// Get returns the rules of a unit type, or nil if not found.
func (t *RuleTable) Get(unitType string) *UnitRule {
	return t.units[unitType]
}

// StartupAllowed reports whether players may start on the named terrain.
func (t *RuleTable) StartupAllowed(terrain string) bool {
	return t.startups[terrain]
}

// Count returns the number of loaded unit rules.
func (t *RuleTable) Count() int {
	return len(t.units)
}
