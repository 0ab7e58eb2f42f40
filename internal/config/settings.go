package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrMissingPolygonKey = errors.New("config: POLYGON_API_KEY is not set")

// Settings carries the environment-driven runtime configuration. Webhook
// fallbacks follow the deployment convention: entries and macro channels fall
// back to the watchlist webhook when unset.
type Settings struct {
	WebhookWatchlist string `env:"DISCORD_WEBHOOK_WATCHLIST"`
	WebhookEntries   string `env:"DISCORD_WEBHOOK_ENTRIES"`
	WebhookMacro     string `env:"DISCORD_WEBHOOK_MACRO"`

	PolygonAPIKey string `env:"POLYGON_API_KEY"`
	JournalAPIKey string `env:"JOURNAL_API_KEY"`
	JournalPath   string `env:"JOURNAL_PATH" envDefault:"/mnt/data/journal.db"`
	UniversePath  string `env:"UNIVERSE_PATH" envDefault:"data/universe.toml"`
	Timezone      string `env:"TZ" envDefault:"America/Los_Angeles"`

	MaxSymbols     int     `env:"MAX_SYMBOLS" envDefault:"40"`
	MaxConcurrency int     `env:"MAX_CONCURRENCY" envDefault:"6"`
	MinScore       float64 `env:"MIN_SCORE" envDefault:"90"`

	ProjDays int     `env:"PROJ_DAYS" envDefault:"10"`
	ProjMin  float64 `env:"PROJ_MIN" envDefault:"0.05"`
	ProjMax  float64 `env:"PROJ_MAX" envDefault:"0.10"`

	DTEMin           int     `env:"DTE_MIN" envDefault:"7"`
	DTEMax           int     `env:"DTE_MAX" envDefault:"14"`
	DeltaTarget      float64 `env:"DELTA_TARGET" envDefault:"0.35"`
	DeltaBand        float64 `env:"DELTA_BAND" envDefault:"0.10"`
	DeltaFallbackMin float64 `env:"DELTA_FALLBACK_MIN" envDefault:"0.20"`
	DeltaFallbackMax float64 `env:"DELTA_FALLBACK_MAX" envDefault:"0.50"`
	OIMin            int     `env:"OI_MIN" envDefault:"1000"`
	SpreadMax        float64 `env:"SPREAD_MAX" envDefault:"0.10"`

	EarningsFlagDays int     `env:"EARNINGS_FLAG_DAYS" envDefault:"7"`
	GexWindowPct     float64 `env:"GEX_WINDOW_PCT" envDefault:"0.15"`
	GexOIMin         int     `env:"GEX_OI_MIN" envDefault:"500"`
	GexSpreadMax     float64 `env:"GEX_SPREAD_MAX" envDefault:"0.20"`

	MacroICSURL      string `env:"MACRO_ICS_URL"`
	MacroBlockMin    int    `env:"MACRO_BLOCK_MIN" envDefault:"30"`
	MacroBlockEnable bool   `env:"MACRO_BLOCK_ENABLE" envDefault:"true"`

	LiveMaxSymbols int     `env:"LIVE_MAX_SYMBOLS" envDefault:"20"`
	LivePollSec    int     `env:"LIVE_POLL_SEC" envDefault:"15"`
	LiveTolPct     float64 `env:"LIVE_TOL_PCT" envDefault:"0.0005"`
	LiveStartPT    string  `env:"LIVE_START_PT" envDefault:"06:30"`
	LiveEndPT      string  `env:"LIVE_END_PT" envDefault:"13:00"`

	BacktestDays        int `env:"BACKTEST_DAYS" envDefault:"5"`
	BacktestTFMin       int `env:"BACKTEST_TF_MIN" envDefault:"5"`
	BacktestLimit       int `env:"BACKTEST_LIMIT" envDefault:"50"`
	BacktestConcurrency int `env:"BACKTEST_CONCURRENCY" envDefault:"5"`

	APIAddr     string   `env:"API_ADDR" envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// Load parses settings from the environment and applies webhook fallbacks.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("config parse failed: %w", err)
	}
	s.applyFallbacks()
	return s, nil
}

func (s *Settings) applyFallbacks() {
	s.WebhookWatchlist = strings.TrimSpace(s.WebhookWatchlist)
	s.WebhookEntries = strings.TrimSpace(s.WebhookEntries)
	s.WebhookMacro = strings.TrimSpace(s.WebhookMacro)
	if s.WebhookEntries == "" {
		s.WebhookEntries = s.WebhookWatchlist
	}
	if s.WebhookMacro == "" {
		s.WebhookMacro = s.WebhookWatchlist
	}
	s.PolygonAPIKey = strings.TrimSpace(s.PolygonAPIKey)
	s.JournalAPIKey = strings.TrimSpace(s.JournalAPIKey)
}

// RequirePolygonKey fails when no market-data key is configured. Commands that
// only deliver messages do not call this.
func (s Settings) RequirePolygonKey() error {
	if s.PolygonAPIKey == "" {
		return ErrMissingPolygonKey
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC when the
// name cannot be loaded.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LiveTolerance normalizes the live entry tolerance. Operators often set 0.20
// meaning 0.20%, not 20%; values >= 1 are treated as percentages.
func (s Settings) LiveTolerance() float64 {
	if s.LiveTolPct >= 1.0 {
		return s.LiveTolPct / 100.0
	}
	return s.LiveTolPct
}
