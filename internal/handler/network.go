package handler

import (
	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/message"
	"go.uber.org/zap"
)

// HandleHello registers the client and sends it the server resume. A player
// coming back to an existing session also receives its window, the current
// frame and a fresh game slice.
func HandleHello(req Request, m message.Hello, deps *Deps) ([]effect.Effect, error) {
	if err := m.Resolution.Validate(); err != nil {
		return nil, unfeasible(err)
	}
	effects := []effect.Effect{
		effect.ClientInsert{Client: req.Client, Player: m.Player},
	}
	resume := req.State.Resume(deps.Rules.Type())

	session, placed := req.State.Clients().Session(m.Player)
	if !placed {
		effects = append(effects, effect.Shining(message.ServerResume{Resume: resume}, req.Client))
		return effects, nil
	}

	flag := session.Flag
	to := []game.ClientID{req.Client}
	effects = append(effects,
		effect.ClientSetResolution{Client: req.Client, Resolution: m.Resolution},
		effect.Shines{Items: []effect.Shine{
			{Message: message.ServerResume{Resume: resume, Flag: &flag}, Clients: to},
			{Message: message.SetWindow{Window: session.Window}, Clients: to},
			{Message: message.SetGameFrame{Frame: req.State.Frame()}, Clients: to},
			{Message: message.SetGameSlice{Slice: req.State.GameSlice(deps.World, session.Window)}, Clients: to},
		}},
	)
	deps.Log.Info("player resumed session",
		zap.Stringer("player", m.Player),
		zap.Stringer("flag", flag),
	)
	return effects, nil
}

// HandleGoodbye forgets the connection. The player session stays for a
// later Hello.
func HandleGoodbye(req Request) ([]effect.Effect, error) {
	return []effect.Effect{effect.ClientRemove{Client: req.Client}}, nil
}
