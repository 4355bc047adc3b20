package task

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
)

const pfpt = game.ProductionFramesPerTons

func producingCity(product game.UnitType, rate game.Tons, start, end game.Frame) game.City {
	id := game.NewCityID()
	return game.City{
		ID:           id,
		Flag:         game.FlagAbkhazia,
		Name:         "CityName",
		Point:        space.NewPoint(0, 0),
		Production:   game.NewProduction(game.UnitProduct(product)),
		Exploitation: game.NewExploitation(rate),
		Tasks: game.CityTasks{Production: game.TaskRef{
			ID:    game.NewTaskID(),
			Kind:  game.TaskProduction,
			Start: start,
			End:   end,
		}},
	}
}

func TestProductionTaskFromStart(t *testing.T) {
	city := producingCity(game.UnitSettlers, 1, 0, 0)
	task, err := ProductionTask(rules.Std1{}, 0, city, 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Concern() != game.ConcernsCity(city.ID) {
		t.Errorf("concern = %s", task.Concern())
	}
	if task.Start != 0 || task.End != game.Frame(pfpt*40) {
		t.Errorf("task = %d..%d, want 0..%d", task.Start, task.End, pfpt*40)
	}
}

func TestChangeProduction(t *testing.T) {
	city := producingCity(game.UnitSettlers, 1, 0, 240_000)
	gen := CityGenerator{Rules: rules.Std1{}, Frame: 24_000}
	changed, task, err := gen.Generate(ChangeProduction{
		City:       city,
		Production: game.NewProduction(game.UnitProduct(game.UnitWarriors)),
	})
	if err != nil {
		t.Fatal(err)
	}
	// 4 tons were produced during the first 24000 frames.
	if want := game.Frame(24_000 + pfpt*4); task.Start != 24_000 || task.End != want {
		t.Errorf("task = %d..%d, want 24000..%d", task.Start, task.End, want)
	}
	if changed.ID != city.ID || changed.Point != city.Point || changed.Flag != city.Flag {
		t.Error("identity must be kept")
	}
	if changed.Production.Current() != game.UnitProduct(game.UnitWarriors) {
		t.Errorf("production = %v", changed.Production)
	}
	if changed.Tasks.Production.ID != task.ID {
		t.Error("city must reference its new task")
	}
}

func TestChangeExploitation(t *testing.T) {
	city := producingCity(game.UnitSettlers, 1, 0, 240_000)
	gen := CityGenerator{Rules: rules.Std1{}, Frame: 120_000}
	changed, task, err := gen.Generate(ChangeExploitation{City: city, Exploitation: game.NewExploitation(2)})
	if err != nil {
		t.Fatal(err)
	}
	if want := game.Frame(120_000 + pfpt*(20/2)); task.End != want {
		t.Errorf("end = %d, want %d", task.End, want)
	}
	if changed.Exploitation.Tons != 2 || task.Production.Tons != 2 {
		t.Error("new rate not applied")
	}

	if _, _, err := gen.Generate(ChangeExploitation{City: city}); !errors.Is(err, ErrNoExploitation) {
		t.Errorf("zero exploitation: got %v", err)
	}
}

func TestRequiredFrames(t *testing.T) {
	tests := []struct {
		required, accrued, rate game.Tons
		want                    uint64
	}{
		{40, 0, 1, pfpt * 40},
		{8, 4, 1, pfpt * 4},
		{40, 20, 2, pfpt * 10},
		{8, 10, 1, 0},
		{3, 0, 2, pfpt * 3 / 2},
	}
	for _, tt := range tests {
		if got := RequiredFrames(tt.required, tt.accrued, tt.rate); got != tt.want {
			t.Errorf("RequiredFrames(%d, %d, %d) = %d, want %d", tt.required, tt.accrued, tt.rate, got, tt.want)
		}
	}
}

func TestNewSettle(t *testing.T) {
	warriors := game.Unit{ID: game.NewUnitID(), Type: game.UnitWarriors}
	if _, err := NewSettle(rules.Std1{}, warriors, "Gagra", 0); !errors.Is(err, ErrCannotSettle) {
		t.Fatalf("got %v", err)
	}
	settlers := game.Unit{ID: game.NewUnitID(), Type: game.UnitSettlers}
	task, err := NewSettle(rules.Std1{}, settlers, "Gagra", 10)
	if err != nil {
		t.Fatal(err)
	}
	if task.Start != 10 || task.End != 110 || task.Concern() != game.ConcernsUnit(settlers.ID) {
		t.Fatalf("task = %s concern %s", task, task.Concern())
	}
}

func newContext(t *testing.T, s *state.State) Context {
	return Context{State: s, Rules: rules.Std1{}, Log: zaptest.NewLogger(t)}
}

func TestThenSettle(t *testing.T) {
	settler := game.Unit{
		ID:    game.NewUnitID(),
		Type:  game.UnitSettlers,
		Flag:  game.FlagAbkhazia,
		Point: space.NewPoint(1, 1),
	}
	settle, err := NewSettle(rules.Std1{}, settler, "CityName", 0)
	if err != nil {
		t.Fatal(err)
	}
	s, err := state.Restore(100, space.NewSize(2, 2), []game.Task{settle}, nil, []game.Unit{settler}, nil)
	if err != nil {
		t.Fatal(err)
	}

	effects, next, err := Then(settle, newContext(t, s))
	if err != nil {
		t.Fatal(err)
	}
	if len(effects) != 2 || len(next) != 1 {
		t.Fatalf("effects = %v, next = %v", effects, next)
	}
	if rm, ok := effects[0].(effect.UnitRemove); !ok || rm.Unit.ID != settler.ID {
		t.Fatalf("first effect = %#v", effects[0])
	}
	created, ok := effects[1].(effect.CityNew)
	if !ok {
		t.Fatalf("second effect = %#v", effects[1])
	}
	city := created.City
	if city.Name != "CityName" || city.Point != settler.Point || city.Flag != settler.Flag {
		t.Errorf("city = %+v", city)
	}
	if city.Production.Current() != game.UnitProduct(game.UnitWarriors) {
		t.Errorf("production = %v", city.Production)
	}
	if next[0].Concern() != game.ConcernsCity(city.ID) || city.Tasks.Production.ID != next[0].ID {
		t.Errorf("successor = %s", next[0])
	}
	if next[0].End != game.Frame(100+pfpt*8) {
		t.Errorf("successor end = %d", next[0].End)
	}

	effects = append([]effect.Effect{effect.TaskFinished{Task: settle}}, effects...)
	effects = append(effects, effect.TaskPush{Task: next[0]})
	if applied := s.Apply(effects); len(applied.Dropped) != 0 {
		t.Fatal(applied.Dropped)
	}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestThenSettleGoneUnit(t *testing.T) {
	settler := game.Unit{ID: game.NewUnitID(), Type: game.UnitSettlers}
	settle, err := NewSettle(rules.Std1{}, settler, "CityName", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Then(settle, newContext(t, state.New(space.NewSize(2, 2)))); !errors.Is(err, ErrConcernGone) {
		t.Fatalf("got %v", err)
	}
}

func TestThenProduction(t *testing.T) {
	city := producingCity(game.UnitWarriors, 1, 0, pfpt*8)
	city.Production = game.NewProduction(game.UnitProduct(game.UnitWarriors), game.UnitProduct(game.UnitSettlers))
	production, err := ProductionTask(rules.Std1{}, 0, city, 0)
	if err != nil {
		t.Fatal(err)
	}
	city.Tasks.Production = game.RefOf(production)
	s, err := state.Restore(pfpt*8, space.NewSize(2, 2), []game.Task{production}, []game.City{city}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	effects, next, err := Then(production, newContext(t, s))
	if err != nil {
		t.Fatal(err)
	}
	unit, ok := effects[0].(effect.UnitNew)
	if !ok || unit.Unit.Type != game.UnitWarriors || unit.Unit.Point != city.Point || unit.Unit.Flag != city.Flag {
		t.Fatalf("first effect = %#v", effects[0])
	}
	replaced, ok := effects[1].(effect.CityReplace)
	if !ok || replaced.City.Production.Current() != game.UnitProduct(game.UnitSettlers) {
		t.Fatalf("second effect = %#v", effects[1])
	}
	if replaced.City.Tasks.Production.ID != next[0].ID || next[0].Start != pfpt*8 || next[0].End != game.Frame(pfpt*8+pfpt*40) {
		t.Fatalf("successor = %s", next[0])
	}
}

type countingSink struct {
	calls int
	err   error
}

func (c *countingSink) WriteSnapshot(*state.State) error {
	c.calls++
	return c.err
}

func TestThenSnapshot(t *testing.T) {
	s, err := state.Restore(500, space.NewSize(1, 1), nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	sink := &countingSink{err: errors.New("disk full")}
	ctx := newContext(t, s)
	ctx.Sink = sink

	snap := NewSnapshot("world.snap", 400, 100)
	effects, next, err := Then(snap, ctx)
	if err != nil {
		t.Fatalf("write errors must not fail the task: %v", err)
	}
	if sink.calls != 1 || len(effects) != 0 {
		t.Fatalf("calls = %d, effects = %v", sink.calls, effects)
	}
	if next[0].Start != 500 || next[0].End != 600 || next[0].Snapshot.Target != "world.snap" {
		t.Fatalf("successor = %s", next[0])
	}
}

func TestProductionRebuildKeepsIndexConsistent(t *testing.T) {
	city := producingCity(game.UnitWarriors, 1, 0, 0)
	old, err := ProductionTask(rules.Std1{}, 0, city, 0)
	if err != nil {
		t.Fatal(err)
	}
	city.Tasks.Production = game.RefOf(old)
	s, err := state.Restore(pfpt*4, space.NewSize(1, 1), []game.Task{old}, []game.City{city}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	gen := CityGenerator{Rules: rules.Std1{}, Frame: s.Frame()}
	changed, task, err := gen.Generate(ChangeProduction{
		City:       city,
		Production: game.NewProduction(game.UnitProduct(game.UnitSettlers)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := s.Frame() + game.Frame(pfpt*(40-4)); task.End != want {
		t.Fatalf("end = %d, want %d", task.End, want)
	}
	applied := s.Apply([]effect.Effect{
		effect.CityReplace{City: changed},
		effect.TasksRemove{Concern: game.ConcernsCity(city.ID), IDs: city.TaskIDs()},
		effect.TasksAdd{Tasks: []game.Task{task}},
	})
	if len(applied.Dropped) != 0 {
		t.Fatal(applied.Dropped)
	}
	ids := s.Index().CityTasks(city.ID)
	if len(ids) != 1 || ids[0] != task.ID {
		t.Fatalf("city tasks = %v", ids)
	}
	if _, ok := s.Task(old.ID); ok {
		t.Fatal("old task still registered")
	}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
}
