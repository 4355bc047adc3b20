package handler

import (
	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"github.com/buxx/civ/internal/task"
)

// HandleSetWindow moves the client window. Any player may look anywhere,
// through a window no larger than space.MaxWindowSide on each side.
func HandleSetWindow(req Request, m message.SetWindowRequest) ([]effect.Effect, error) {
	if err := m.Window.Validate(); err != nil {
		return nil, unfeasible(err)
	}
	return []effect.Effect{effect.ClientSetWindow{Client: req.Client, Window: m.Window}}, nil
}

// HandleUnitSettle replaces the current task of the unit by a settle task.
func HandleUnitSettle(req Request, m message.UnitSettle, deps *Deps) ([]effect.Effect, error) {
	unit, err := unitFor(req, m.Unit)
	if err != nil {
		return nil, err
	}
	name, err := NormalizeCityName(m.CityName)
	if err != nil {
		return nil, unfeasible(err)
	}
	settle, err := task.NewSettle(deps.Rules, unit, name, req.State.Frame())
	if err != nil {
		return nil, unfeasible(err)
	}

	ref := game.RefOf(settle)
	effects := []effect.Effect{
		effect.UnitReplace{Unit: unit.WithTask(&ref)},
		effect.TaskPush{Task: settle},
	}
	return append(effects, removeUnitTasks(req, unit.ID)...), nil
}

// HandleUnitCancelTask stops whatever the unit is doing.
func HandleUnitCancelTask(req Request, m message.UnitCancelTask) ([]effect.Effect, error) {
	unit, err := unitFor(req, m.Unit)
	if err != nil {
		return nil, err
	}
	effects := []effect.Effect{effect.UnitReplace{Unit: unit.WithTask(nil)}}
	return append(effects, removeUnitTasks(req, unit.ID)...), nil
}

func removeUnitTasks(req Request, id game.UnitID) []effect.Effect {
	ids := req.State.Index().UnitTasks(id)
	effects := make([]effect.Effect, 0, len(ids))
	for _, tid := range ids {
		effects = append(effects, effect.TaskRemove{ID: tid, Concern: game.ConcernsUnit(id)})
	}
	return effects
}

// HandleCitySetProduction rebuilds the city production task for the new
// queue. Tons already produced are kept.
func HandleCitySetProduction(req Request, m message.CitySetProduction, deps *Deps) ([]effect.Effect, error) {
	city, err := cityFor(req, m.City)
	if err != nil {
		return nil, err
	}
	return changeCity(req, deps, task.ChangeProduction{City: city, Production: m.Production})
}

func HandleCitySetExploitation(req Request, m message.CitySetExploitation, deps *Deps) ([]effect.Effect, error) {
	city, err := cityFor(req, m.City)
	if err != nil {
		return nil, err
	}
	return changeCity(req, deps, task.ChangeExploitation{City: city, Exploitation: m.Exploitation})
}

func changeCity(req Request, deps *Deps, from task.BuildCityFrom) ([]effect.Effect, error) {
	gen := task.CityGenerator{Rules: deps.Rules, Frame: req.State.Frame()}
	city, production, err := gen.Generate(from)
	if err != nil {
		return nil, unfeasible(err)
	}
	return []effect.Effect{
		effect.CityReplace{City: city},
		effect.TasksRemove{Concern: game.ConcernsCity(city.ID), IDs: req.State.Index().CityTasks(city.ID)},
		effect.TasksAdd{Tasks: []game.Task{production}},
	}, nil
}
