package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/gork/internal/channel"
	"github.com/soyeahso/gork/internal/channel/discord"
	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/gateway"
	"github.com/soyeahso/gork/internal/hooks"
	"github.com/soyeahso/gork/internal/linkinfo"
	"github.com/soyeahso/gork/internal/normalize"
	"github.com/soyeahso/gork/internal/presence"
	"github.com/soyeahso/gork/internal/ratelimit"
	"github.com/soyeahso/gork/internal/routing"
	"github.com/soyeahso/gork/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		port      int
		bind      string
		noGateway bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and answer messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if noGateway {
				cfg.Gateway.Enabled = false
			}
			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("create data directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hookMgr := hooks.NewManager(log)

			limiter, closeStore, err := newLimiter(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			var titles normalize.TitleLookup
			if key := cfg.LinkInfo.YouTubeAPIKey; key != "" {
				yt, err := linkinfo.NewYouTube(ctx, key)
				if err != nil {
					return fmt.Errorf("youtube lookup: %w", err)
				}
				titles = yt
				log.Info().Msg("YouTube title lookup enabled")
			}

			runner, err := newRunner(ctx, cfg)
			if err != nil {
				return err
			}

			dc, err := discord.New(cfg.Discord.Token, hookMgr, log)
			if err != nil {
				return err
			}
			channels := channel.NewRegistry(log)
			channels.Register(dc)

			router := routing.NewRouter(cfg.Bot, dc, normalize.New(titles, log), limiter, runner, hookMgr, log)
			router.Wire(ctx, dc)

			if err := channels.StartAll(ctx); err != nil {
				return fmt.Errorf("starting channels: %w", err)
			}

			rotator, err := newPresenceRotator(cfg.Bot, channels, hookMgr)
			if err != nil {
				log.Warn().Err(err).Msg("presence messages disabled")
			}
			if rotator != nil {
				rotator.Start()
			}

			log.Info().
				Str("model", cfg.AI.Model).
				Bool("stream", cfg.Bot.StreamOutput).
				Bool("testing", cfg.AI.TestingMode).
				Msg("message routing active")

			gatewayErr := make(chan error, 1)
			if cfg.Gateway.Enabled {
				srv := gateway.New(cfg, log,
					gateway.WithChannels(channels),
					gateway.WithHooks(hookMgr),
					gateway.WithLimiter(limiter),
				)
				go func() { gatewayErr <- srv.Start(ctx) }()
			}

			select {
			case <-ctx.Done():
				err = nil
			case err = <-gatewayErr:
				stop()
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if rotator != nil {
				rotator.Stop(shutdownCtx)
			}
			channels.StopAll(shutdownCtx)
			router.Wait()
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override gateway bind mode (loopback, lan)")
	cmd.Flags().BoolVar(&noGateway, "no-gateway", false, "do not start the control-plane gateway")

	return cmd
}

// newLimiter builds the rate limiter over SQLite when the store is enabled
// and over memory otherwise. The returned func closes the database.
func newLimiter(ctx context.Context, cfg config.Config) (*ratelimit.Limiter, func(), error) {
	lcfg := ratelimit.Config{
		Allowed:  cfg.Bot.AllowedMessagesPerInterval,
		Interval: cfg.Bot.RateInterval(),
	}
	if !cfg.Store.Enabled {
		log.Info().Msg("using in-memory rate-limit state")
		return ratelimit.New(lcfg, ratelimit.NewMemoryStore()), func() {}, nil
	}

	dbPath := paths.Resolve(cfg.Store.Path)
	if dbPath == "" {
		dbPath = paths.DatabasePath()
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	states := store.NewRateStateStore(db)
	if n, err := states.Prune(ctx, time.Now().Add(-lcfg.Interval)); err != nil {
		log.Warn().Err(err).Msg("failed to prune rate-limit state")
	} else if n > 0 {
		log.Debug().Int64("removed", n).Msg("pruned expired rate-limit windows")
	}
	log.Info().Str("path", dbPath).Msg("using SQLite rate-limit state")
	return ratelimit.New(lcfg, states), func() { _ = db.Close() }, nil
}

// newPresenceRotator returns nil when no presence file is configured. A
// rotation also fires whenever a channel (re)connects.
func newPresenceRotator(bot config.BotConfig, channels *channel.Registry, hookMgr *hooks.Manager) (*presence.Rotator, error) {
	if bot.PresenceMessagePath == "" {
		return nil, nil
	}
	lines, err := presence.Load(paths.Resolve(bot.PresenceMessagePath))
	if err != nil {
		return nil, err
	}
	interval := time.Duration(bot.PresenceMessageIntervalMins) * time.Minute
	rotator := presence.NewRotator(lines, interval, channels.Presence(), log)
	hookMgr.On(hooks.EventChannelConnected, "presence", func(context.Context, hooks.Payload) error {
		rotator.Rotate()
		return nil
	})
	return rotator, nil
}
