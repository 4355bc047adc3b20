package handler

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/placer"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/space"
	"github.com/buxx/civ/internal/state"
	"github.com/buxx/civ/internal/task"
	"github.com/buxx/civ/internal/world"
)

type harness struct {
	t     *testing.T
	s     *state.State
	world *world.Reader
	d     *Dispatcher
}

func newHarness(t *testing.T, size space.Size, pl placer.Placer) *harness {
	t.Helper()
	w := world.Flat(size, world.GrassLand)
	return &harness{
		t:     t,
		s:     state.New(size),
		world: w,
		d: NewDispatcher(&Deps{
			Rules:  rules.Std1{},
			World:  w,
			Placer: pl,
			Log:    zaptest.NewLogger(t),
		}),
	}
}

// send dispatches msg, applies its effects and returns the reflected messages.
func (h *harness) send(client game.ClientID, msg message.ClientMessage) []state.Outbound {
	h.t.Helper()
	effects := h.d.Handle(h.s, client, msg)
	applied := h.s.Apply(effects)
	if err := errors.Join(applied.Dropped...); err != nil {
		h.t.Fatalf("%s: dropped effects: %v", msg.Kind(), err)
	}
	if err := h.s.Check(); err != nil {
		h.t.Fatalf("%s: invariants: %v", msg.Kind(), err)
	}
	return h.s.Reflect(effects, applied, h.world)
}

// join says hello and takes place under flag, returning the client.
func (h *harness) join(flag game.Flag) game.ClientID {
	h.t.Helper()
	client := game.NewClientID()
	res := space.NewResolution(3, 3)
	h.send(client, message.Hello{Client: client, Player: game.NewPlayerID(), Resolution: res})
	h.send(client, message.TakePlace{Flag: flag, Resolution: res})
	if _, ok := h.s.Clients().SessionOf(client); !ok {
		h.t.Fatalf("client did not take place under %s", flag)
	}
	return client
}

func (h *harness) unitOf(flag game.Flag) game.Unit {
	h.t.Helper()
	ids := h.s.Index().FlagUnits(flag)
	if len(ids) != 1 {
		h.t.Fatalf("%s units = %v", flag, ids)
	}
	u, _ := h.s.Unit(ids[0])
	return u
}

func messageTypes(out []state.Outbound) []string {
	names := make([]string, len(out))
	for i, o := range out {
		names[i] = typeName(o.Message)
	}
	return names
}

func typeName(m message.ServerMessage) string {
	switch m.(type) {
	case message.ServerResume:
		return "ServerResume"
	case message.TakePlaceRefused:
		return "TakePlaceRefused"
	case message.SetGameFrame:
		return "SetGameFrame"
	case message.SetGameSlice:
		return "SetGameSlice"
	case message.SetWindow:
		return "SetWindow"
	case message.SetCity:
		return "SetCity"
	case message.RemoveCity:
		return "RemoveCity"
	case message.SetUnit:
		return "SetUnit"
	case message.RemoveUnit:
		return "RemoveUnit"
	case message.AddTask:
		return "AddTask"
	case message.RemoveTask:
		return "RemoveTask"
	case message.Notification:
		return "Notification"
	default:
		return "?"
	}
}

func TestHelloThenTakePlace(t *testing.T) {
	h := newHarness(t, space.NewSize(2, 2), placer.Fixed{Point: space.NewPoint(0, 0)})
	client := game.NewClientID()
	res := space.NewResolution(3, 3)

	out := h.send(client, message.Hello{Client: client, Player: game.NewPlayerID(), Resolution: res})
	if len(out) != 1 {
		t.Fatalf("hello outbound = %v", messageTypes(out))
	}
	resume, ok := out[0].Message.(message.ServerResume)
	if !ok || resume.Flag != nil || len(resume.Resume.Flags) != 0 || resume.Resume.RuleSet != rules.Std1Type {
		t.Fatalf("resume = %#v", out[0].Message)
	}

	out = h.send(client, message.TakePlace{Flag: game.FlagAbkhazia, Resolution: res})
	want := []string{"SetUnit", "SetGameSlice", "SetWindow", "ServerResume"}
	if got := messageTypes(out); !slices.Equal(got, want) {
		t.Fatalf("take place outbound = %v, want %v", got, want)
	}
	for _, o := range out {
		if len(o.Clients) != 1 || o.Clients[0] != client {
			t.Fatalf("recipients of %s = %v", typeName(o.Message), o.Clients)
		}
	}

	wantWindow := space.NewWindow(space.NewPoint(-1, -1), space.NewPoint(1, 1))
	if w := out[2].Message.(message.SetWindow).Window; w != wantWindow {
		t.Fatalf("window = %+v, want %+v", w, wantWindow)
	}
	resume = out[3].Message.(message.ServerResume)
	if resume.Flag == nil || *resume.Flag != game.FlagAbkhazia {
		t.Fatalf("resume flag = %v", resume.Flag)
	}
	if !slices.Equal(resume.Resume.Flags, []game.Flag{game.FlagAbkhazia}) {
		t.Fatalf("resume flags = %v", resume.Resume.Flags)
	}

	slice := out[1].Message.(message.SetGameSlice).Slice
	if len(slice.Tiles) != 9 {
		t.Fatalf("slice tiles = %d", len(slice.Tiles))
	}
	unit := h.unitOf(game.FlagAbkhazia)
	if unit.Type != game.UnitSettlers || unit.Point != space.NewPoint(0, 0) {
		t.Fatalf("unit = %+v", unit)
	}
	if slice.Unit(unit.ID) == nil {
		t.Fatal("game slice lacks the settlers")
	}

	// Settle
	out = h.send(client, message.UnitSettle{Unit: unit.ID, CityName: "  Paris "})
	if got := messageTypes(out); !slices.Equal(got, []string{"SetUnit", "AddTask"}) {
		t.Fatalf("settle outbound = %v", got)
	}
	tasks := h.s.Tasks()
	if len(tasks) != 1 || tasks[0].Kind != game.TaskSettle || tasks[0].Settle.CityName != "Paris" {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].End != game.Frame(rules.Std1{}.SettleDuration(game.UnitSettlers)) {
		t.Fatalf("settle end = %d", tasks[0].End)
	}
	settler, _ := h.s.Unit(unit.ID)
	if settler.Task == nil || settler.Task.ID != tasks[0].ID {
		t.Fatalf("unit task cache = %+v", settler.Task)
	}
}

func TestSettleReplacesPreviousTask(t *testing.T) {
	h := newHarness(t, space.NewSize(2, 2), placer.Fixed{Point: space.NewPoint(1, 1)})
	client := h.join(game.FlagAbkhazia)
	unit := h.unitOf(game.FlagAbkhazia)

	h.send(client, message.UnitSettle{Unit: unit.ID, CityName: "Paris"})
	first := h.s.Tasks()[0].ID
	h.send(client, message.UnitSettle{Unit: unit.ID, CityName: "Lyon"})

	tasks := h.s.Tasks()
	if len(tasks) != 1 || tasks[0].ID == first || tasks[0].Settle.CityName != "Lyon" {
		t.Fatalf("tasks = %+v", tasks)
	}
	if ids := h.s.Index().UnitTasks(unit.ID); len(ids) != 1 || ids[0] != tasks[0].ID {
		t.Fatalf("index unit tasks = %v", ids)
	}

	h.send(client, message.UnitCancelTask{Unit: unit.ID})
	if h.s.TasksCount() != 0 {
		t.Fatalf("tasks after cancel = %d", h.s.TasksCount())
	}
	if u, _ := h.s.Unit(unit.ID); u.Task != nil {
		t.Fatalf("unit task after cancel = %+v", u.Task)
	}
}

func TestUnitCommandUnauthorized(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.NewRandom(1))
	h.join(game.FlagAbkhazia)
	other := h.join(game.FlagZulu)
	unit := h.unitOf(game.FlagAbkhazia)

	out := h.send(other, message.UnitSettle{Unit: unit.ID, CityName: "Paris"})
	if len(out) != 1 || len(out[0].Clients) != 1 || out[0].Clients[0] != other {
		t.Fatalf("outbound = %+v", out)
	}
	if n := out[0].Message.(message.Notification); n != message.Unauthorized() {
		t.Fatalf("notification = %+v", n)
	}
	if h.s.TasksCount() != 0 {
		t.Fatal("unauthorized request created a task")
	}
}

func TestTakePlaceNoPlace(t *testing.T) {
	h := newHarness(t, space.NewSize(2, 2), placer.Fixed{Err: placer.ErrNoPlaceFound})
	client := game.NewClientID()
	h.send(client, message.Hello{Client: client, Player: game.NewPlayerID(), Resolution: space.NewResolution(3, 3)})

	out := h.send(client, message.TakePlace{Flag: game.FlagAbkhazia, Resolution: space.NewResolution(3, 3)})
	if len(out) != 1 {
		t.Fatalf("outbound = %v", messageTypes(out))
	}
	if r := out[0].Message.(message.TakePlaceRefused); r.Reason != message.RefusedNoPlace {
		t.Fatalf("refused = %+v", r)
	}
	if h.s.UnitsCount() != 0 || h.s.Clients().PlayersCount() != 0 {
		t.Fatal("refused placement changed the state")
	}
}

func TestTakePlaceFlagTaken(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.NewRandom(7))
	h.join(game.FlagAbkhazia)

	client := game.NewClientID()
	h.send(client, message.Hello{Client: client, Player: game.NewPlayerID(), Resolution: space.NewResolution(3, 3)})
	out := h.send(client, message.TakePlace{Flag: game.FlagAbkhazia, Resolution: space.NewResolution(3, 3)})
	if len(out) != 1 {
		t.Fatalf("outbound = %v", messageTypes(out))
	}
	r := out[0].Message.(message.TakePlaceRefused)
	if r.Reason != message.RefusedFlagAlreadyTaken || r.Flag != game.FlagAbkhazia {
		t.Fatalf("refused = %+v", r)
	}
	if SessionStateOf(h.s, client) != StateLobby {
		t.Fatal("refused client must stay in lobby")
	}
}

func TestHelloResumesSession(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.Fixed{Point: space.NewPoint(2, 2)})
	client := game.NewClientID()
	player := game.NewPlayerID()
	res := space.NewResolution(3, 3)
	h.send(client, message.Hello{Client: client, Player: player, Resolution: res})
	h.send(client, message.TakePlace{Flag: game.FlagZulu, Resolution: res})
	h.send(client, message.Goodbye{})
	if SessionStateOf(h.s, client) != StateConnected {
		t.Fatal("goodbye must forget the connection")
	}

	again := game.NewClientID()
	out := h.send(again, message.Hello{Client: again, Player: player, Resolution: space.NewResolution(5, 5)})
	want := []string{"ServerResume", "SetWindow", "SetGameFrame", "SetGameSlice"}
	if got := messageTypes(out); !slices.Equal(got, want) {
		t.Fatalf("outbound = %v, want %v", got, want)
	}
	if f := out[0].Message.(message.ServerResume).Flag; f == nil || *f != game.FlagZulu {
		t.Fatalf("resume flag = %v", f)
	}
	session, _ := h.s.Clients().Session(player)
	if session.Resolution != space.NewResolution(5, 5) {
		t.Fatalf("resolution = %+v", session.Resolution)
	}
	if SessionStateOf(h.s, again) != StateInGame {
		t.Fatal("resumed client must be in game")
	}
}

func TestMessagesGatedBySessionState(t *testing.T) {
	h := newHarness(t, space.NewSize(2, 2), placer.Fixed{})
	client := game.NewClientID()

	if effects := h.d.Handle(h.s, client, message.TakePlace{Flag: game.FlagAbkhazia}); effects != nil {
		t.Fatalf("take place before hello = %+v", effects)
	}
	h.send(client, message.Hello{Client: client, Player: game.NewPlayerID()})
	if effects := h.d.Handle(h.s, client, message.SetWindowRequest{}); effects != nil {
		t.Fatalf("set window in lobby = %+v", effects)
	}
	if effects := h.d.Handle(h.s, client, message.Hello{Client: client}); effects != nil {
		t.Fatalf("second hello = %+v", effects)
	}
}

func TestSettleUnfeasible(t *testing.T) {
	h := newHarness(t, space.NewSize(2, 2), placer.Fixed{})
	client := h.join(game.FlagAbkhazia)
	unit := h.unitOf(game.FlagAbkhazia)

	out := h.send(client, message.UnitSettle{Unit: unit.ID, CityName: " \t"})
	if len(out) != 1 {
		t.Fatalf("outbound = %v", messageTypes(out))
	}
	n := out[0].Message.(message.Notification)
	if n.Level != message.LevelError || n.Text != task.ErrEmptyCityName.Error() {
		t.Fatalf("notification = %+v", n)
	}

	out = h.send(client, message.UnitSettle{Unit: game.NewUnitID(), CityName: "Paris"})
	if len(out) != 0 {
		t.Fatalf("vanished unit outbound = %v", messageTypes(out))
	}
}

func TestCitySetProduction(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.Fixed{Point: space.NewPoint(1, 1)})
	client := h.join(game.FlagAbkhazia)

	gen := task.CityGenerator{Rules: rules.Std1{}, Frame: h.s.Frame()}
	city, production, err := gen.Generate(task.Scratch{Name: "Paris", Flag: game.FlagAbkhazia, Point: space.NewPoint(2, 2)})
	if err != nil {
		t.Fatal(err)
	}
	h.s.Apply([]effect.Effect{effect.CityNew{City: city}, effect.TaskPush{Task: production}})

	queue := game.NewProduction(game.UnitProduct(game.UnitSettlers), game.UnitProduct(game.UnitWarriors))
	out := h.send(client, message.CitySetProduction{City: city.ID, Production: queue})
	if got := messageTypes(out); !slices.Equal(got, []string{"SetCity"}) {
		t.Fatalf("outbound = %v", got)
	}
	changed, _ := h.s.City(city.ID)
	if changed.Production.Current().Unit != game.UnitSettlers {
		t.Fatalf("production = %v", changed.Production)
	}
	ids := h.s.Index().CityTasks(city.ID)
	if len(ids) != 1 || ids[0] == production.ID || ids[0] != changed.Tasks.Production.ID {
		t.Fatalf("city tasks = %v, cache = %v", ids, changed.Tasks.Production.ID)
	}

	out = h.send(client, message.CitySetExploitation{City: city.ID, Exploitation: game.NewExploitation(0)})
	if len(out) != 1 || out[0].Message.(message.Notification).Level != message.LevelError {
		t.Fatalf("zero exploitation outbound = %+v", out)
	}
}

func TestCitySetExploitationUnauthorized(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.NewRandom(3))
	h.join(game.FlagAbkhazia)
	other := h.join(game.FlagZulu)

	gen := task.CityGenerator{Rules: rules.Std1{}, Frame: h.s.Frame()}
	city, production, err := gen.Generate(task.Scratch{Name: "Paris", Flag: game.FlagAbkhazia, Point: space.NewPoint(0, 0)})
	if err != nil {
		t.Fatal(err)
	}
	h.s.Apply([]effect.Effect{effect.CityNew{City: city}, effect.TaskPush{Task: production}})

	out := h.send(other, message.CitySetExploitation{City: city.ID, Exploitation: game.NewExploitation(5)})
	if len(out) != 1 || len(out[0].Clients) != 1 || out[0].Clients[0] != other {
		t.Fatalf("outbound = %+v", out)
	}
	if n := out[0].Message.(message.Notification); n != message.Unauthorized() {
		t.Fatalf("notification = %+v", n)
	}

	after, ok := h.s.City(city.ID)
	if !ok || after.Exploitation != city.Exploitation || after.Tasks.Production.ID != production.ID {
		t.Fatalf("city changed: %+v", after)
	}
	if ids := h.s.Index().CityTasks(city.ID); len(ids) != 1 || ids[0] != production.ID {
		t.Fatalf("city tasks = %v", ids)
	}
	if tasks := h.s.Tasks(); len(tasks) != 1 || tasks[0].ID != production.ID || tasks[0].End != production.End {
		t.Fatalf("tasks = %+v", tasks)
	}
}

func TestOversizeWindowsRefused(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.Fixed{Point: space.NewPoint(1, 1)})
	client := h.join(game.FlagAbkhazia)
	before, _ := h.s.Clients().SessionOf(client)

	windows := []space.Window{
		space.NewWindow(space.NewPoint(0, 0), space.NewPoint(1<<31, 1<<31)),
		space.NewWindow(space.NewPoint(0, 0), space.NewPoint(space.MaxWindowSide, 0)),
		space.NewWindow(space.NewPoint(math.MaxInt64-1, 0), space.NewPoint(math.MaxInt64, 0)),
	}
	for _, w := range windows {
		out := h.send(client, message.SetWindowRequest{Window: w})
		if len(out) != 1 || len(out[0].Clients) != 1 || out[0].Clients[0] != client {
			t.Fatalf("%s: outbound = %v", w, messageTypes(out))
		}
		if n := out[0].Message.(message.Notification); n.Level != message.LevelError {
			t.Fatalf("%s: notification = %+v", w, n)
		}
	}
	if after, _ := h.s.Clients().SessionOf(client); after.Window != before.Window {
		t.Fatalf("window = %s, want %s", after.Window, before.Window)
	}

	edge := space.NewWindow(space.NewPoint(-2, -2), space.NewPoint(5, 5))
	out := h.send(client, message.SetWindowRequest{Window: edge})
	if got := messageTypes(out); !slices.Equal(got, []string{"SetGameSlice"}) {
		t.Fatalf("outbound = %v", got)
	}
}

func TestOversizeResolutionRefused(t *testing.T) {
	h := newHarness(t, space.NewSize(4, 4), placer.Fixed{Point: space.NewPoint(1, 1)})
	huge := space.NewResolution(math.MaxUint64, 1<<32)

	client := game.NewClientID()
	out := h.send(client, message.Hello{Client: client, Player: game.NewPlayerID(), Resolution: huge})
	if got := messageTypes(out); !slices.Equal(got, []string{"Notification"}) {
		t.Fatalf("hello outbound = %v", got)
	}
	if SessionStateOf(h.s, client) != StateConnected {
		t.Fatal("refused hello registered the client")
	}

	h.send(client, message.Hello{Client: client, Player: game.NewPlayerID(), Resolution: space.NewResolution(3, 3)})
	out = h.send(client, message.TakePlace{Flag: game.FlagAbkhazia, Resolution: huge})
	if got := messageTypes(out); !slices.Equal(got, []string{"Notification"}) {
		t.Fatalf("take place outbound = %v", got)
	}
	if h.s.UnitsCount() != 0 || SessionStateOf(h.s, client) != StateLobby {
		t.Fatal("refused placement changed the state")
	}
}

func TestRegistryRecoversPanics(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.Register(message.KindGoodbye, []SessionState{StateLobby}, func(Request, message.ClientMessage) ([]effect.Effect, error) {
		panic("boom")
	})
	effects, err := reg.Dispatch(Request{}, StateLobby, message.Goodbye{})
	if err == nil || effects != nil {
		t.Fatalf("dispatch = %v, %v", effects, err)
	}

	if _, err := reg.Dispatch(Request{}, StateInGame, message.Goodbye{}); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
	if effects, err := reg.Dispatch(Request{}, StateLobby, message.Hello{}); effects != nil || err != nil {
		t.Fatalf("unregistered kind = %v, %v", effects, err)
	}
}

func TestNormalizeCityName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Paris", want: "Paris"},
		{in: "  Tbilisi\n", want: "Tbilisi"},
		{in: "Saint E\u0301tienne", want: "Saint \u00c9tienne"},
		{in: "   ", wantErr: true},
		{in: strings.Repeat("a", MaxCityNameLength+1), wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeCityName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NormalizeCityName(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("NormalizeCityName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
