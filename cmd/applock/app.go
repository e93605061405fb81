package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/config"
	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/infra"
	"github.com/eliteGoblin/focusd/app_lock/internal/policy"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
)

// app is the wired object graph shared by the service and one-shot commands.
type app struct {
	cfg        config.Config
	store      *infra.KVStore
	locks      *infra.LockStore
	creds      *infra.PinCredentialStore
	classifier *policy.Classifier
	scheduler  *infra.TimerScheduler
	engine     *usecase.Engine
	logger     *zap.Logger
}

func openApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := infra.OpenStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	locks, err := infra.NewLockStore(store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load lock state: %w", err)
	}

	a := &app{
		cfg:        cfg,
		store:      store,
		locks:      locks,
		creds:      infra.NewPinCredentialStore(store, logger),
		classifier: newClassifier(cfg),
		scheduler:  infra.NewTimerScheduler(),
		logger:     logger,
	}

	collab := infra.NewCommandCollaborator(cfg.Templates(), logger)
	a.engine = usecase.NewEngine(
		usecase.EngineConfig{GateDelay: cfg.GateDelay},
		a.locks,
		a.creds,
		a.classifier,
		usecase.Collaborators{Suppressor: collab, Presenter: collab, Launcher: collab},
		a.scheduler,
		logger,
	)
	return a, nil
}

func (a *app) Close() {
	a.scheduler.Stop()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}

// newClassifier registers the built-in shell policies plus configured rules.
func newClassifier(cfg config.Config) *policy.Classifier {
	registry := policy.NewRegistry()
	ex := cfg.Exemptions
	if len(ex.Exact)+len(ex.Prefix)+len(ex.Contains) > 0 {
		registry.Register(policy.NewConfigPolicy(ex.Exact, ex.Prefix, ex.Contains))
	}
	return policy.NewClassifier(domain.AppID(cfg.SelfID), registry)
}

// withApp loads configuration and runs fn against a freshly wired app.
func withApp(fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, cliLogger())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
