package scripting

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

const rulesScript = `
function settle_duration(unit_type)
  if unit_type == "Settlers" then
    return 42
  end
  return 0
end

function can_be_startup(terrain)
  return terrain == "Plain"
end
`

func TestEngineCalls(t *testing.T) {
	e, err := NewEngineFromString(rulesScript, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	n, err := e.CallInt("settle_duration", "Settlers")
	if err != nil || n != 42 {
		t.Fatalf("got %d, %v", n, err)
	}
	ok, err := e.CallBool("can_be_startup", "Ocean")
	if err != nil || ok {
		t.Fatalf("got %v, %v", ok, err)
	}
	if !e.Defines("settle_duration") || e.Defines("required_tons") {
		t.Fatal("unexpected Defines result")
	}
	if _, err := e.CallInt("required_tons", "Unit(Warriors)"); !errors.Is(err, ErrNotDefined) {
		t.Fatalf("got %v", err)
	}
	if _, err := e.CallInt("can_be_startup", "Plain"); err == nil {
		t.Fatal("expected type error")
	}
}

func TestNewEngineLoadsRulesDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "rules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "rules", "std.lua"), []byte(rulesScript), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if !e.Defines("can_be_startup") {
		t.Fatal("script not loaded")
	}
}

func TestNewEngineBadScript(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(dir, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error")
	}
}
