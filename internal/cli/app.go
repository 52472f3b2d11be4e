package cli

import (
	"context"
	"fmt"

	"github.com/dailydraw/streak-bot/config"
	"github.com/dailydraw/streak-bot/internal/domain/streak"
	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence"
	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence/postgres"
	rediscache "github.com/dailydraw/streak-bot/internal/infrastructure/persistence/redis"
	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence/sqlite"
	"github.com/dailydraw/streak-bot/pkg/keymutex"
	"github.com/dailydraw/streak-bot/pkg/logger"
	"github.com/dailydraw/streak-bot/pkg/timeutil"
)

// Store is a record store that also accepts bulk imports.
type Store interface {
	streak.Repository
	Import(ctx context.Context, records []*streak.Record) (int, error)
}

// App holds the infrastructure every command shares.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Clock  *timeutil.Clock

	Store        Store
	StoreOptions persistence.Options
	Locker       streak.Locker
	Cache        streak.ScoreboardCache

	// Redis is nil when running without Redis.
	Redis *rediscache.Cache

	migrate func(ctx context.Context) (string, error)
	closers []func()
}

// newApp loads the configuration and opens the record store and Redis.
func newApp(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{
		Level:      logger.ParseLevel(cfg.Observability.LogLevel),
		Format:     cfg.Observability.LogFormat,
		FilePath:   cfg.Observability.LogFile,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogMaxBackups,
		MaxAgeDays: cfg.Observability.LogMaxAgeDays,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)

	app := &App{
		Config: cfg,
		Log:    log,
		Clock:  timeutil.NewClock(cfg.App.Location),
		StoreOptions: persistence.Options{
			TimeFormat:   cfg.Streak.TimeFormat,
			Location:     cfg.App.Location,
			QueryTimeout: cfg.Database.QueryTimeout,
		}.Normalize(),
	}

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openRedis(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (a *App) openStore(ctx context.Context) error {
	db := a.Config.Database

	switch db.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig(db.URL)
		if db.MaxConns > 0 {
			pgCfg.MaxConns = int32(db.MaxConns)
		}
		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, conn.Close)

		migrator := postgres.NewMigrator(conn)
		a.migrate = func(ctx context.Context) (string, error) {
			n, err := migrator.Migrate(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("applied %d postgres migration(s)", n), nil
		}
		a.Store = postgres.NewStreakRepository(conn, a.StoreOptions)

	case config.DriverSQLite:
		store, err := sqlite.Open(db.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })

		// Open already brings the schema up to date.
		a.migrate = func(ctx context.Context) (string, error) {
			v, err := store.SchemaVersion(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("sqlite schema at version %d", v), nil
		}
		a.Store = sqlite.NewStreakRepository(store, a.StoreOptions)

	default:
		return fmt.Errorf("unknown database driver %q", db.Driver)
	}

	a.Log.Info("record store opened", logger.String("driver", db.Driver))
	return nil
}

// openRedis falls back to in-process locks and no scoreboard cache when
// Redis is disabled or not configured.
func (a *App) openRedis(ctx context.Context) error {
	rc := a.Config.Redis
	if rc.Disabled || rc.URL == "" {
		a.Log.Info("redis disabled, using in-process record locks")
		a.Locker = keymutex.New()
		a.Cache = streak.NopScoreboardCache{}
		return nil
	}

	cache, err := rediscache.NewCache(ctx, rc.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = cache.Close() })

	a.Redis = cache
	a.Locker = rediscache.NewRecordLocker(cache, rc.LockTTL)
	a.Cache = rediscache.NewScoreboardCache(cache, rc.ScoreboardTTL)
	a.Log.Info("redis connected")
	return nil
}

// Migrate brings the store schema up to date and describes the result.
func (a *App) Migrate(ctx context.Context) (string, error) {
	return a.migrate(ctx)
}

// Close releases everything in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.Log != nil {
		_ = a.Log.Sync()
	}
}
