package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dailydraw/streak-bot/config"
	"github.com/dailydraw/streak-bot/internal/application/command"
	"github.com/dailydraw/streak-bot/internal/application/query"
	"github.com/dailydraw/streak-bot/internal/domain/access"
	"github.com/dailydraw/streak-bot/internal/domain/notification"
	"github.com/dailydraw/streak-bot/internal/domain/submission"
	discordapi "github.com/dailydraw/streak-bot/internal/infrastructure/external/discord"
	"github.com/dailydraw/streak-bot/internal/infrastructure/scheduler"
	"github.com/dailydraw/streak-bot/internal/infrastructure/scheduler/jobs"
	discordbot "github.com/dailydraw/streak-bot/internal/interface/discord"
	"github.com/dailydraw/streak-bot/internal/interface/discord/handler"
	"github.com/dailydraw/streak-bot/internal/interface/discord/middleware"
	httpapi "github.com/dailydraw/streak-bot/internal/interface/http"
	"github.com/dailydraw/streak-bot/internal/interface/http/handlers"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve until interrupted",
		Long: `Connect to the Discord gateway, track posts and commands in the listen
channels, run the daily reset on schedule and, when enabled, serve the
read-only HTTP API. SIGINT or SIGTERM shuts everything down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), rootOpts)
		},
	}
}

func runBot(ctx context.Context, opts *RootOptions) error {
	app, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	log := app.Log

	if err := cfg.RequireDiscord(); err != nil {
		return err
	}
	result, err := app.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema ready", logger.String("result", result))

	// ─────────────────────────────────────────────────────────────────────────
	// Discord
	// ─────────────────────────────────────────────────────────────────────────
	session, err := discordbot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	client := discordapi.NewClient(session, discordapi.ClientConfig{
		NotifyChannel: cfg.NotifyChannelName(),
		Logger:        log,
	})

	svc := newServices(app, client, client)
	router := newRouter(app, svc, client, client, client)
	bot := discordbot.NewBot(session, client, router, discordbot.BotConfig{Logger: log})

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.CronScheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewCronScheduler(
			scheduler.WithLocation(cfg.App.Location),
			scheduler.WithLogger(log),
			scheduler.WithJobTimeout(cfg.Scheduler.JobTimeout),
		)
		resetJob := jobs.NewDailyResetJob(svc.reset)
		if err := sched.AddJob(cfg.Scheduler.ResetCron, resetJob); err != nil {
			return fmt.Errorf("schedule daily reset: %w", err)
		}
		if status, ok := sched.GetJobStatus(resetJob.Name()); ok {
			log.Info("daily reset scheduled",
				logger.Time("next_run", status.NextRun),
				logger.String("location", sched.Location().String()),
			)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP
	// ─────────────────────────────────────────────────────────────────────────
	var server *httpapi.Server
	if cfg.HTTP.Enabled {
		httpCfg, err := httpConfig(cfg.HTTP)
		if err != nil {
			return err
		}
		health := handlers.NewHealthChecker(cfg.App.Version, 0)
		health.AddCheck("store", handlers.PingCheck(app.Store))
		if app.Redis != nil {
			health.AddCheck("redis", handlers.PingCheck(app.Redis))
		}
		server = httpapi.NewServer(httpCfg, httpapi.Dependencies{
			GetScore:      svc.score,
			GetScoreboard: svc.scoreboard,
			Health:        health,
			Logger:        log,
		})
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Lifecycle
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting streak bot",
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.Any("listen_channels", cfg.Discord.ListenChannels),
		logger.Bool("scheduler", sched != nil),
		logger.Bool("http", server != nil),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(gctx)
	})

	if sched != nil {
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	}

	if server != nil {
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("streak bot stopped with error", logger.Err(err))
		return err
	}
	log.Info("streak bot stopped")
	return nil
}

// services are the application handlers shared by the chat and HTTP surfaces.
type services struct {
	submissions *command.ProcessSubmissionHandler
	overrides   *command.AdminOverrideHandler
	reset       *command.DailyResetHandler
	score       *query.GetScoreHandler
	scoreboard  *query.GetScoreboardHandler
}

func newServices(app *App, notifier notification.Notifier, directory notification.Directory) *services {
	return &services{
		submissions: command.NewProcessSubmissionHandler(app.Store, app.Locker, app.Cache, command.ProcessSubmissionConfig{
			BaseXP: app.Config.Streak.BaseXP,
			Clock:  app.Clock,
		}),
		overrides:  command.NewAdminOverrideHandler(app.Store, app.Locker, app.Cache, directory),
		reset:      command.NewDailyResetHandler(app.Store, app.Cache, notifier, app.Clock),
		score:      query.NewGetScoreHandler(app.Store),
		scoreboard: query.NewGetScoreboardHandler(app.Store, app.Cache, directory, app.Config.Streak.ScoreboardSize),
	}
}

// newRouter registers every chat command.
func newRouter(
	app *App,
	svc *services,
	notifier notification.Notifier,
	directory notification.Directory,
	perms middleware.PermissionChecker,
) *discordbot.Router {
	cfg := app.Config

	router := discordbot.NewRouter(discordbot.RouterConfig{
		Prefix:         cfg.Discord.CommandPrefix,
		ListenChannels: cfg.Discord.ListenChannels,
		Logger:         app.Log,
	}, discordbot.Dependencies{
		Classifier:  submission.NewClassifier(cfg.Streak.FileTypes),
		Submissions: handler.NewSubmissionHandler(svc.submissions),
		Notifier:    notifier,
		Resolver:    middleware.NewCapabilityResolver(access.NewPolicy(cfg.Discord.AdminRoleIDs), perms),
		Limiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			PerSecond: cfg.Discord.CommandRate,
			Burst:     cfg.Discord.CommandBurst,
		}),
	})

	router.Register("score", handler.NewScoreHandler(svc.score, directory))
	router.Register("scoreboard", handler.NewScoreboardHandler(svc.scoreboard))
	router.RegisterPrivileged("set_xp", handler.NewOverrideHandler(command.ActionSetXP, svc.overrides))
	router.RegisterPrivileged("set_streak", handler.NewOverrideHandler(command.ActionSetStreak, svc.overrides))
	router.RegisterPrivileged("set_safe", handler.NewOverrideHandler(command.ActionSetSafe, svc.overrides))
	router.RegisterPrivileged("daily_reset", handler.NewResetHandler(svc.reset))

	return router
}

// httpConfig turns the HTTP section, with a listen address such as ":8080",
// into server settings.
func httpConfig(hc config.HTTPConfig) (httpapi.Config, error) {
	cfg := httpapi.DefaultConfig()
	host, port, err := net.SplitHostPort(hc.Addr)
	if err != nil {
		return cfg, fmt.Errorf("invalid http address %q: %w", hc.Addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return cfg, fmt.Errorf("invalid http port %q: %w", port, err)
	}
	cfg.Host = host
	cfg.Port = p
	cfg.APIKeys = hc.APIKeys
	return cfg, nil
}
