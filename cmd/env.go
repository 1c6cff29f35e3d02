package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skulwise/skulwise/internal/config"
	"github.com/skulwise/skulwise/internal/connectivity"
	"github.com/skulwise/skulwise/internal/logging"
	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/remote"
	"github.com/skulwise/skulwise/internal/store"
	"github.com/skulwise/skulwise/internal/study"
)

// env is everything a command needs to record and sync activity. Opening
// it takes the queue lock, so only one process owns the queue at a time.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	remoteDB *store.Store
	lock     *store.Lock
	signal   *connectivity.Signal
	prober   *connectivity.Prober
	manager  *offline.Manager
	study    *study.Service

	closers []func() error
}

// loadConfig resolves the config file from --config and applies --db.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, _, _, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Storage.Path = p
	}
	return cfg, nil
}

func dbPath(cfg *config.Config) (string, error) {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path, store.EnsureDir(cfg.Storage.Path)
	}
	return store.DefaultDBPath()
}

// openEnv wires config, logging, the local store, the applier, the
// connectivity signal, the queue manager and the study service. When
// probe is set the remote is probed once so the signal starts accurate.
func openEnv(cmd *cobra.Command, probe bool) (_ *env, err error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	logger, closeLog, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	e.logger = logger
	e.closers = append(e.closers, closeLog)

	path, err := dbPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	if e.lock, err = store.Acquire(store.LockPath(path)); err != nil {
		if errors.Is(err, store.ErrLocked) {
			return nil, fmt.Errorf("%w; stop the running daemon or wait for it to finish", err)
		}
		return nil, err
	}
	if e.store, err = store.Open(path); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	applier, err := e.openApplier(ctx)
	if err != nil {
		return nil, err
	}

	// A local mirror needs no probe; it is reachable whenever it opened.
	e.signal = connectivity.NewSignal(cfg.Remote.Kind == config.RemoteSQLite)
	if cfg.Connectivity.ProbeURL != "" && cfg.Remote.Kind == config.RemoteREST {
		e.prober = connectivity.NewProber(cfg.Connectivity.ProbeURL, cfg.ProbeInterval(), e.signal, logger)
		if probe {
			e.prober.Check(ctx)
		}
	}

	e.manager = offline.NewManager(cfg.Offline(), e.store.KV(), applier, e.signal,
		offline.WithLogger(logger),
		offline.WithErrorKind(remote.Kind))
	if err := e.manager.Load(ctx); err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	e.study = study.NewService(cfg.User.ID, e.store.KV(), e.manager, study.WithLogger(logger))
	return e, nil
}

func (e *env) openApplier(ctx context.Context) (offline.Applier, error) {
	switch e.cfg.Remote.Kind {
	case config.RemoteSQLite:
		db, err := store.Open(e.cfg.Remote.Path)
		if err != nil {
			return nil, fmt.Errorf("open remote mirror: %w", err)
		}
		e.remoteDB = db
		return remote.NewSQL(ctx, db.DB(), e.logger)
	default:
		return remote.NewREST(remote.RESTConfig{
			BaseURL:       e.cfg.Remote.URL,
			APIKey:        e.cfg.Remote.APIKey,
			AccessToken:   e.cfg.Remote.AccessToken,
			RatePerSecond: e.cfg.Remote.RatePerSecond,
			Timeout:       e.cfg.RemoteTimeout(),
		}, e.logger)
	}
}

// Close waits for background syncs, then releases everything in reverse
// order of acquisition.
func (e *env) Close() error {
	var errs []error
	if e.manager != nil {
		errs = append(errs, e.manager.Close())
	}
	if e.remoteDB != nil {
		errs = append(errs, e.remoteDB.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	errs = append(errs, e.lock.Release())
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

// settle lets a sync started by an enqueue finish before the process
// exits.
func (e *env) settle() {
	e.manager.Wait()
}
