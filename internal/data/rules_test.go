package data

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleRules = `
ruleset: 1
tasks: [Settle]
units:
  - type: Settlers
    settle_duration: 100
    can_settle: true
    can: [Settle]
    required_tons: 40
  - type: Warriors
    required_tons: 8
startup_terrains: [GrassLand, Plain]
`

func TestLoadRuleTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadRuleTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 || table.RuleSet() != 1 {
		t.Fatalf("count=%d ruleset=%d", table.Count(), table.RuleSet())
	}
	s := table.Get("Settlers")
	if s == nil || !s.CanSettle || s.SettleDuration != 100 || s.RequiredTons != 40 {
		t.Fatalf("settlers %+v", s)
	}
	if w := table.Get("Warriors"); w == nil || w.CanSettle {
		t.Fatalf("warriors %+v", w)
	}
	if table.Get("Archers") != nil {
		t.Fatal("unexpected unit")
	}
	if !table.StartupAllowed("Plain") || table.StartupAllowed("Ocean") {
		t.Fatal("startup terrains not loaded")
	}
}

func TestParseRuleTableRejectsAnonymousUnit(t *testing.T) {
	if _, err := ParseRuleTable([]byte("units:\n  - required_tons: 3\n")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRuleTableMissingFile(t *testing.T) {
	if _, err := LoadRuleTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
