package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/buxx/civ/internal/core/system"
	"github.com/buxx/civ/internal/net"
	"github.com/buxx/civ/internal/state"
)

// Stats is what the StatsSystem reports each second.
type Stats struct {
	Ticks    int
	Frame    uint64
	Tasks    int
	Clients  int
	Players  int
	Units    int
	Cities   int
	Sessions int
}

// StatsSystem logs a summary of the simulation once per second.
// Phase 4 (Cleanup).
type StatsSystem struct {
	shared  *state.Shared
	store   *net.SessionStore
	every   time.Duration
	elapsed time.Duration
	ticks   int
	last    Stats
	log     *zap.Logger
}

func NewStatsSystem(shared *state.Shared, store *net.SessionStore, log *zap.Logger) *StatsSystem {
	return &StatsSystem{shared: shared, store: store, every: time.Second, log: log}
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *StatsSystem) Update(dt time.Duration) {
	s.ticks++
	s.elapsed += dt
	if s.elapsed < s.every {
		return
	}

	st := Stats{Ticks: s.ticks}
	s.shared.Read(func(gs *state.State) {
		st.Frame = uint64(gs.Frame())
		st.Tasks = gs.TasksCount()
		st.Clients = gs.Clients().ActiveCount()
		st.Players = gs.Clients().PlayersCount()
		st.Units = gs.UnitsCount()
		st.Cities = gs.CitiesCount()
	})
	if s.store != nil {
		st.Sessions = s.store.Len()
	}
	s.last = st
	s.ticks = 0
	s.elapsed -= s.every

	s.log.Info("stats",
		zap.Int("ticks", st.Ticks),
		zap.Uint64("frame", st.Frame),
		zap.Int("tasks", st.Tasks),
		zap.Int("clients", st.Clients),
		zap.Int("players", st.Players),
		zap.Int("units", st.Units),
		zap.Int("cities", st.Cities),
		zap.Int("sessions", st.Sessions),
	)
}

// Last returns the most recent report.
func (s *StatsSystem) Last() Stats {
	return s.last
}
