package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/buxx/civ/internal/config"
	coresys "github.com/buxx/civ/internal/core/system"
	"github.com/buxx/civ/internal/effect"
	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/handler"
	gonet "github.com/buxx/civ/internal/net"
	"github.com/buxx/civ/internal/persist"
	"github.com/buxx/civ/internal/placer"
	"github.com/buxx/civ/internal/rules"
	"github.com/buxx/civ/internal/scripting"
	"github.com/buxx/civ/internal/snapshot"
	"github.com/buxx/civ/internal/state"
	"github.com/buxx/civ/internal/system"
	"github.com/buxx/civ/internal/task"
	"github.com/buxx/civ/internal/world"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// 1. Load config, flags override the file
	fs := flag.NewFlagSet("civserver", flag.ContinueOnError)
	cfgPath := fs.String("config", config.Path(), "config file path (env "+config.EnvPath+")")
	snapshotPath := fs.String("snapshot", "", "snapshot file, selects the file store")
	snapshotInterval := fs.Uint64("snapshot-interval", 0, "frames between snapshots, 0 disables")
	tcpListen := fs.String("tcp-listen", "", "TCP listen address")
	wsListen := fs.String("ws-listen", "", "WebSocket listen address")
	worldPath := fs.String("world", "", "world directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "snapshot":
			cfg.Snapshot.Store = "file"
			cfg.Snapshot.Path = *snapshotPath
		case "snapshot-interval":
			cfg.Snapshot.Interval = *snapshotInterval
		case "tcp-listen":
			cfg.Network.TCPListen = *tcpListen
		case "ws-listen":
			cfg.Network.WSListen = *wsListen
		case "world":
			cfg.World.Path = *worldPath
		}
	})

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Rules
	printSection("rules")
	rs, closeRules, err := loadRules(cfg.Rules, log)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	defer closeRules()
	printStat("rule set", int(rs.Type()))
	printStat("task kinds", len(rs.Tasks()))

	// 4. World
	printSection("world")
	w, err := loadWorld(cfg.World.Path, log)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	printStat("width", int(w.Width()))
	printStat("height", int(w.Height()))

	// 5. Snapshot store and state
	printSection("state")
	ctx := context.Background()
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}
	s, err := loadState(ctx, store, w, log)
	if err != nil {
		return err
	}
	printStat("frame", int(s.Frame()))
	printStat("players", s.Clients().PlayersCount())
	printStat("cities", s.CitiesCount())
	printStat("units", s.UnitsCount())

	// 6. Fresh snapshot task
	var sink task.Sink
	if store != nil {
		sink = &snapshot.Sink{Store: store, Timeout: cfg.Snapshot.Timeout, Log: log.With(zap.String("component", "snapshot"))}
	}
	scheduleSnapshot(s, store, cfg.Snapshot.Interval, log)
	printStat("tasks", s.TasksCount())
	fmt.Println()

	// 7. Listeners and systems
	shared := state.NewShared(s)
	opts := gonet.SessionOptions{
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
	}
	if cfg.RateLimit.Enabled {
		opts.MessagesPerSecond = cfg.RateLimit.MessagesPerSecond
		opts.Burst = cfg.RateLimit.Burst
	}

	var acceptors []gonet.Acceptor
	var tcp *gonet.Server
	if cfg.Network.TCPListen != "" {
		tcp, err = gonet.NewServer(cfg.Network.TCPListen, opts, log)
		if err != nil {
			return fmt.Errorf("tcp listen: %w", err)
		}
		acceptors = append(acceptors, tcp)
	}
	var ws *gonet.WSServer
	if cfg.Network.WSListen != "" {
		ws, err = gonet.NewWSServer(cfg.Network.WSListen, cfg.Network.WSPath, opts, log)
		if err != nil {
			if tcp != nil {
				tcp.Shutdown()
			}
			return fmt.Errorf("websocket listen: %w", err)
		}
		acceptors = append(acceptors, ws)
	}

	seed := cfg.Simulation.PlacerSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	sessions := gonet.NewSessionStore()
	pipeline := system.NewPipeline(w, sessions, log.With(zap.String("component", "pipeline")))
	dispatcher := handler.NewDispatcher(&handler.Deps{
		Rules:  rs,
		World:  w,
		Placer: placer.NewRandom(seed),
		Log:    log,
	})
	pool := system.NewPool(cfg.Simulation.Workers, shared, rs, sink, log)
	defer pool.Stop()

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(acceptors, sessions, shared, dispatcher, pipeline, cfg.Network.MaxMessagesPerTick, log.With(zap.String("component", "input"))))
	runner.Register(system.NewTaskSystem(pool, shared, pipeline, log))
	runner.Register(system.NewFrameSystem(shared, pipeline, cfg.Simulation.TicksPerFrame()))
	runner.Register(system.NewOutputSystem(sessions))
	runner.Register(system.NewStatsSystem(shared, sessions, log.With(zap.String("component", "stats"))))
	loop := coresys.NewLoop(runner, cfg.Simulation.TickBasePeriod, log)

	printSection("ready")
	if tcp != nil {
		printReady(fmt.Sprintf("tcp %s", tcp.Addr()))
	}
	if ws != nil {
		printReady(fmt.Sprintf("websocket %s%s", ws.Addr(), cfg.Network.WSPath))
	}
	printReady(fmt.Sprintf("tick %s, %d workers, %d ticks per frame", loop.Period(), pool.Size(), cfg.Simulation.TicksPerFrame()))
	fmt.Println()

	// 8. Run until a signal or a fault
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)
	if tcp != nil {
		g.Go(func() error {
			tcp.AcceptLoop()
			return nil
		})
	}
	if ws != nil {
		g.Go(ws.Serve)
	}
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		if tcp != nil {
			tcp.Shutdown()
		}
		if ws != nil {
			grace := time.Duration(cfg.Network.ShutdownGraceSeconds) * time.Second
			shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			if err := ws.Shutdown(shutdownCtx); err != nil {
				log.Warn("websocket shutdown", zap.Error(err))
			}
		}
		return nil
	})
	runErr := g.Wait()

	sessions.ForEach(func(sess *gonet.Session) {
		sess.FlushOutput()
		sess.Close()
	})

	// 9. Final snapshot, only after a clean stop
	if runErr == nil && sink != nil {
		var err error
		shared.Read(func(s *state.State) {
			err = sink.WriteSnapshot(s)
		})
		if err != nil {
			log.Error("final snapshot failed", zap.Error(err))
		} else {
			log.Info("final snapshot written", zap.String("target", store.Target()))
		}
	}
	log.Info("server stopped", zap.Uint64("ticks", runner.Ticks()))
	return runErr
}

func loadRules(cfg config.RulesConfig, log *zap.Logger) (rules.RuleSet, func(), error) {
	var rs rules.RuleSet = rules.Std1{}
	if cfg.Table != "" {
		table, err := rules.LoadTable(cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		rs = table
		printOK(fmt.Sprintf("rule table %s", cfg.Table))
	}
	if cfg.Scripts == "" {
		return rs, func() {}, nil
	}
	engine, err := scripting.NewEngine(cfg.Scripts, log.With(zap.String("component", "scripting")))
	if err != nil {
		return nil, nil, err
	}
	printOK(fmt.Sprintf("rule scripts %s", cfg.Scripts))
	return rules.NewScripted(rs, engine, log), engine.Close, nil
}

func loadWorld(dir string, log *zap.Logger) (*world.Reader, error) {
	progress := make(chan world.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			log.Debug("world chunk loaded", zap.Uint64("loaded", p.Loaded), zap.Uint64("total", p.Total))
		}
	}()
	start := time.Now()
	w, err := world.Load(dir, progress)
	close(progress)
	<-done
	if err != nil {
		return nil, err
	}
	log.Info("world loaded", zap.String("path", dir), zap.Duration("took", time.Since(start)))
	return w, nil
}

// openStore returns nil when snapshots are disabled.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (snapshot.Store, error) {
	switch cfg.Snapshot.Store {
	case "file":
		printOK(fmt.Sprintf("snapshot file %s", cfg.Snapshot.Path))
		return snapshot.NewFileStore(cfg.Snapshot.Path), nil
	case "sqlite":
		store, err := persist.OpenSQLite(ctx, cfg.Database.SQLitePath, persist.DefaultKeep, log)
		if err != nil {
			return nil, err
		}
		printOK(fmt.Sprintf("snapshot sqlite %s", cfg.Database.SQLitePath))
		return store, nil
	case "postgres":
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := persist.RunMigrations(dbCtx, db.Pool); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		printOK("snapshot postgres")
		return persist.NewPostgresStore(db, persist.DefaultKeep), nil
	default:
		return nil, nil
	}
}

func loadState(ctx context.Context, store snapshot.Store, w *world.Reader, log *zap.Logger) (*state.State, error) {
	if store == nil {
		return state.New(w.Size()), nil
	}
	s, err := snapshot.Load(ctx, store)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		log.Info("no snapshot, starting an empty state", zap.String("target", store.Target()))
		return state.New(w.Size()), nil
	}
	if err != nil {
		return nil, err
	}
	if s.Size() != w.Size() {
		return nil, fmt.Errorf("snapshot of a %dx%d world, world is %dx%d",
			s.Size().Width, s.Size().Height, w.Width(), w.Height())
	}
	log.Info("snapshot loaded", zap.String("target", store.Target()), zap.Uint64("frame", uint64(s.Frame())))
	return s, nil
}

// scheduleSnapshot replaces any restored snapshot task by one due interval
// frames from now.
func scheduleSnapshot(s *state.State, store snapshot.Store, interval uint64, log *zap.Logger) {
	var effects []effect.Effect
	for _, t := range s.Tasks() {
		if t.Kind == game.TaskSnapshot {
			effects = append(effects, effect.TaskRemove{ID: t.ID, Concern: t.Concern()})
		}
	}
	if store != nil && interval > 0 {
		effects = append(effects, effect.TaskPush{Task: task.NewSnapshot(store.Target(), s.Frame(), interval)})
	}
	applied := s.Apply(effects)
	for _, err := range applied.Dropped {
		log.Error("snapshot task not scheduled", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
