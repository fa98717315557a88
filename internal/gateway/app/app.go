package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"codelab/internal/curriculum"
	"codelab/internal/declaration"
	"codelab/internal/gateway/analysis"
	"codelab/internal/gateway/config"
	"codelab/internal/gateway/handler"
	"codelab/internal/gateway/repository/snapshot"
	"codelab/internal/gateway/server"
	"codelab/internal/session"
)

type App struct {
	server    *server.Server
	store     *session.Store
	runner    *session.EffectRunner
	snapshots *snapshot.Store
	logger    *slog.Logger
	cancel    context.CancelFunc
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	course, err := curriculum.LoadFile(cfg.Curriculum)
	if err != nil {
		return nil, fmt.Errorf("failed to load curriculum: %w", err)
	}

	// Dependencies
	gate := declaration.NewGate()
	bridge := analysis.NewBridge(gate, logger.With("component", "analysis"))
	synchronizer := declaration.NewSynchronizer(gate, declaration.Options{
		Policy: declaration.ParseCollisionPolicy(cfg.Collision),
		Logger: logger.With("component", "declarations"),
	})
	snapshots := snapshot.Open(cfg.Session.Path, cfg.Session.PgDSN, logger)
	relay, err := newFeedbackRelay(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := session.NewEffectRunner(session.RunnerOptions{
		Declarations: synchronizer,
		Feedback:     relay,
		Snapshots:    snapshots,
		Logger:       logger.With("component", "effects"),
	})
	trigger := session.NewRunTrigger(nil, logger.With("component", "run"))
	store := session.NewStore(session.Options{
		Fresh:     freshSession(cfg, course),
		Reducer:   session.NewReducer(trigger, cfg.Feedback.Path),
		Runner:    runner,
		Snapshots: snapshots,
		Key:       cfg.Session.Key,
		Logger:    logger.With("component", "session"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)
	go registerAmbient(ctx, synchronizer, course.Ambient, logger)

	if err := startSession(ctx, store); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	sessionHandler := handler.NewSessionHandler(store, logger)
	debugHandler := handler.NewDebugHandler(synchronizer, gate)

	// Routing & Server
	mux := server.NewMux(sessionHandler, debugHandler, bridge.HandleWS)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:    srv,
		store:     store,
		runner:    runner,
		snapshots: snapshots,
		logger:    logger,
		cancel:    cancel,
	}, nil
}

func freshSession(cfg *config.Config, course *curriculum.Curriculum) func() curriculum.SessionConfig {
	app := curriculum.AppConfig{
		Name:             course.Name,
		FeedbackEnabled:  cfg.Feedback.Enabled,
		PreserveState:    cfg.App.PreserveState(),
		Debug:            cfg.App.Debug,
		Test:             cfg.App.Test,
		PresentationMode: cfg.App.PresentationMode,
	}
	return func() curriculum.SessionConfig {
		return curriculum.NewSession(app, course)
	}
}

// startSession runs INIT and then opens the selected milestone when its
// exercise has not been visited, the way a fresh page load lands on it.
func startSession(ctx context.Context, store *session.Store) error {
	state, err := store.Dispatch(ctx, session.Init{})
	if err != nil {
		return err
	}
	ex, err := state.SelectedExercise()
	if err != nil || ex.Materialized() {
		return err
	}
	_, err = store.Dispatch(ctx, session.SelectMilestone{Index: state.SelectedMilestoneIndex})
	return err
}

// registerAmbient waits for the editor, then loads the curriculum's shared
// declarations once.
func registerAmbient(ctx context.Context, synchronizer *declaration.Synchronizer, ambient []curriculum.AmbientDeclaration, logger *slog.Logger) {
	for _, decl := range ambient {
		if err := synchronizer.RegisterAmbient(ctx, decl.URI, decl.Code); err != nil {
			logger.Warn("ambient declaration not registered", "uri", decl.URI, "error", err)
		}
	}
}

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the listener, then gives pending effects until ctx ends to
// finish so the last snapshot reaches storage.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if drainErr := a.runner.Drain(ctx); drainErr != nil {
		a.logger.Warn("pending effects dropped at shutdown", "error", drainErr)
	}
	a.cancel()
	if closeErr := a.snapshots.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
