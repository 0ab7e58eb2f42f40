package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ictlabs/watchctl/internal/backtest"
	"github.com/ictlabs/watchctl/internal/command"
	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/journal"
	"github.com/ictlabs/watchctl/internal/live"
	"github.com/ictlabs/watchctl/internal/macroecon"
	"github.com/ictlabs/watchctl/internal/notify"
	"github.com/ictlabs/watchctl/internal/polygon"
	"github.com/ictlabs/watchctl/internal/sched"
	"github.com/ictlabs/watchctl/internal/sectors"
	"github.com/ictlabs/watchctl/internal/server"
	"github.com/ictlabs/watchctl/internal/watchlist"
)

// buildRegistry wires every runnable command. The registry is immutable
// after this returns.
func buildRegistry(cfg config.Settings) *command.Registry {
	reg := command.NewRegistry()

	reg.Register("idle", idleHandler)
	reg.Register("premarket", watchlistHandler(cfg, "premarket"))
	reg.Register("evening", watchlistHandler(cfg, "evening"))
	reg.Register("weekly", watchlistHandler(cfg, "weekly"))
	reg.Register("macro", macroHandler(cfg))
	reg.Register("scheduler", schedulerHandler(cfg))
	reg.Register("live", liveHandler(cfg))
	reg.Register("api", apiHandler(cfg))
	reg.Register("backtest", backtestHandler(cfg))
	reg.Register("diag", diagHandler(cfg))

	return reg
}

// idleHandler keeps the container alive with no work until it is signalled
// to stop. A clean shutdown exits zero.
func idleHandler(ctx context.Context) error {
	log.Info().Msg("idle: waiting for shutdown signal")
	<-ctx.Done()
	log.Info().Msg("idle: shutting down")
	return nil
}

func newPolygon(cfg config.Settings) (*polygon.Client, error) {
	if err := cfg.RequirePolygonKey(); err != nil {
		return nil, fmt.Errorf("%w: %v", command.ErrInvalidConfig, err)
	}
	return polygon.NewClient(cfg.PolygonAPIKey)
}

func newCalendar(cfg config.Settings) *macroecon.Calendar {
	return macroecon.NewCalendar(cfg.MacroICSURL, cfg.Location(), cfg.MacroBlockMin, cfg.MacroBlockEnable)
}

func watchlistHandler(cfg config.Settings, kind string) command.Handler {
	return func(ctx context.Context) error {
		md, err := newPolygon(cfg)
		if err != nil {
			return err
		}
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		poster := watchlist.NewPoster(cfg,
			watchlist.NewGenerator(cfg, md),
			notify.NewClient(),
			newCalendar(cfg),
			md,
			store,
		)
		return poster.Run(ctx, kind)
	}
}

func macroHandler(cfg config.Settings) command.Handler {
	return func(ctx context.Context) error {
		if cfg.WebhookMacro == "" {
			log.Info().Msg("macro: no webhook configured, nothing to post")
			return nil
		}
		cal := newCalendar(cfg)
		now := time.Now().In(cfg.Location())
		events, _, err := cal.TodayEvents(ctx, now)
		if err != nil {
			log.Warn().Err(err).Msg("macro calendar unavailable")
		}

		sectorsLine := "Sectors: n/a"
		if md, err := newPolygon(cfg); err == nil {
			sectorsLine = sectors.Header(ctx, md)
		}

		title := fmt.Sprintf("Macro Update – %s", now.Format("2006-01-02 15:04 PT"))
		return notify.NewClient().SendMacroUpdate(ctx, cfg.WebhookMacro, title, cal.Header(events), sectorsLine)
	}
}

func schedulerHandler(cfg config.Settings) command.Handler {
	return func(ctx context.Context) error {
		s := sched.New(cfg.Location())
		s.Add(sched.Job{Name: "premarket", Days: sched.Weekdays, Hour: 6, Minute: 0,
			Run: watchlistHandler(cfg, "premarket")})
		s.Add(sched.Job{Name: "evening", Days: sched.Weekdays, Hour: 17, Minute: 30,
			Run: watchlistHandler(cfg, "evening")})
		s.Add(sched.Job{Name: "weekly", Days: []time.Weekday{time.Sunday}, Hour: 8, Minute: 0,
			Run: watchlistHandler(cfg, "weekly")})
		return s.Run(ctx)
	}
}

func liveHandler(cfg config.Settings) command.Handler {
	return func(ctx context.Context) error {
		md, err := newPolygon(cfg)
		if err != nil {
			return err
		}
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		mon := live.NewMonitor(cfg,
			watchlist.NewGenerator(cfg, md),
			md,
			notify.NewClient(),
			newCalendar(cfg),
			store,
		)
		return mon.Run(ctx)
	}
}

func apiHandler(cfg config.Settings) command.Handler {
	return func(ctx context.Context) error {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return server.New(cfg, store).Serve(ctx)
	}
}

func backtestHandler(cfg config.Settings) command.Handler {
	return func(ctx context.Context) error {
		md, err := newPolygon(cfg)
		if err != nil {
			return err
		}
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runner := backtest.NewRunner(cfg, store, md, notify.NewClient())
		outcomes, summary, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("trades", summary.Trades).
			Float64("winrate_pct", summary.WinratePct).
			Float64("avg_r", summary.AvgR).
			Float64("max_drawdown_r", summary.MaxDrawdownR).
			Int("wins", summary.Wins).
			Int("losses", summary.Losses).
			Int("flats", summary.Flats).
			Msg("backtest summary")
		for _, o := range outcomes {
			log.Debug().
				Str("symbol", o.Trade.Symbol).
				Str("direction", o.Trade.Direction).
				Float64("realized_r", o.RealizedR).
				Strs("hits", o.HitSeq).
				Bool("stopped", o.Stopped).
				Msg("backtest trade")
		}
		if cfg.WebhookWatchlist != "" {
			return runner.PostSummary(ctx, summary)
		}
		return nil
	}
}

// diagHandler sanity-checks the market-data key without leaking it.
func diagHandler(cfg config.Settings) command.Handler {
	return func(ctx context.Context) error {
		key := cfg.PolygonAPIKey
		masked := ""
		if len(key) >= 8 {
			masked = key[:4] + "..." + key[len(key)-4:]
		}
		log.Info().
			Int("key_length", len(key)).
			Str("key_shape", masked).
			Msg("diag: polygon key")

		md, err := newPolygon(cfg)
		if err != nil {
			return err
		}
		if err := md.KeyCheck(ctx); err != nil {
			return fmt.Errorf("polygon key check failed: %w", err)
		}
		log.Info().Msg("diag: polygon key check passed")
		return nil
	}
}
