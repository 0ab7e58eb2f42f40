package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ictlabs/watchctl/internal/config"
)

type fileConfig struct {
	WebhookWatchlist string   `toml:"webhook_watchlist"`
	WebhookEntries   string   `toml:"webhook_entries"`
	WebhookMacro     string   `toml:"webhook_macro"`
	JournalPath      string   `toml:"journal_path"`
	UniversePath     string   `toml:"universe_path"`
	Timezone         string   `toml:"timezone"`
	MaxSymbols       int      `toml:"max_symbols"`
	MinScore         float64  `toml:"min_score"`
	ProjMin          float64  `toml:"proj_min"`
	ProjMax          float64  `toml:"proj_max"`
	MacroICSURL      string   `toml:"macro_ics_url"`
	MacroBlockMin    int      `toml:"macro_block_min"`
	APIAddr          string   `toml:"api_addr"`
	CORSOrigins      []string `toml:"cors_origins"`
}

// applyFileConfig layers TOML overrides onto the environment settings. Only
// keys present in the file are applied.
func applyFileConfig(cfg config.Settings, path string) (config.Settings, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Settings{}, fmt.Errorf("load watchctl config: %w", err)
	}

	if meta.IsDefined("webhook_watchlist") {
		cfg.WebhookWatchlist = strings.TrimSpace(raw.WebhookWatchlist)
	}
	if meta.IsDefined("webhook_entries") {
		cfg.WebhookEntries = strings.TrimSpace(raw.WebhookEntries)
	}
	if meta.IsDefined("webhook_macro") {
		cfg.WebhookMacro = strings.TrimSpace(raw.WebhookMacro)
	}
	if meta.IsDefined("journal_path") {
		cfg.JournalPath = strings.TrimSpace(raw.JournalPath)
	}
	if meta.IsDefined("universe_path") {
		cfg.UniversePath = strings.TrimSpace(raw.UniversePath)
	}
	if meta.IsDefined("timezone") {
		cfg.Timezone = strings.TrimSpace(raw.Timezone)
	}
	if meta.IsDefined("max_symbols") {
		if raw.MaxSymbols <= 0 {
			return config.Settings{}, fmt.Errorf("load watchctl config: max_symbols must be positive")
		}
		cfg.MaxSymbols = raw.MaxSymbols
	}
	if meta.IsDefined("min_score") {
		cfg.MinScore = raw.MinScore
	}
	if meta.IsDefined("proj_min") {
		cfg.ProjMin = raw.ProjMin
	}
	if meta.IsDefined("proj_max") {
		cfg.ProjMax = raw.ProjMax
	}
	if meta.IsDefined("macro_ics_url") {
		cfg.MacroICSURL = strings.TrimSpace(raw.MacroICSURL)
	}
	if meta.IsDefined("macro_block_min") {
		cfg.MacroBlockMin = raw.MacroBlockMin
	}
	if meta.IsDefined("api_addr") {
		cfg.APIAddr = strings.TrimSpace(raw.APIAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		out = append(out, o)
	}
	return out
}
