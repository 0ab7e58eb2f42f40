package config

import (
	"errors"
	"testing"

	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func TestLoadDefaults(t *testing.T) {
	testlog.Start(t)
	t.Setenv("TZ", "America/Los_Angeles")
	s, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.MaxSymbols != 40 || s.MaxConcurrency != 6 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.MinScore != 90 {
		t.Fatalf("unexpected min score: %v", s.MinScore)
	}
	if s.DTEMin != 7 || s.DTEMax != 14 {
		t.Fatalf("unexpected DTE window: %d..%d", s.DTEMin, s.DTEMax)
	}
	if s.Timezone != "America/Los_Angeles" {
		t.Fatalf("unexpected timezone: %q", s.Timezone)
	}
}

func TestWebhookFallbacks(t *testing.T) {
	testlog.Start(t)
	t.Setenv("DISCORD_WEBHOOK_WATCHLIST", "https://discord.test/wl")
	t.Setenv("DISCORD_WEBHOOK_ENTRIES", "")
	t.Setenv("DISCORD_WEBHOOK_MACRO", "")

	s, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.WebhookEntries != "https://discord.test/wl" {
		t.Fatalf("entries should fall back to watchlist, got %q", s.WebhookEntries)
	}
	if s.WebhookMacro != "https://discord.test/wl" {
		t.Fatalf("macro should fall back to watchlist, got %q", s.WebhookMacro)
	}
}

func TestRequirePolygonKey(t *testing.T) {
	testlog.Start(t)
	t.Setenv("POLYGON_API_KEY", "   ")
	s, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := s.RequirePolygonKey(); !errors.Is(err, ErrMissingPolygonKey) {
		t.Fatalf("expected ErrMissingPolygonKey, got %v", err)
	}

	t.Setenv("POLYGON_API_KEY", "pk_test")
	s, err = Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := s.RequirePolygonKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLiveToleranceNormalization(t *testing.T) {
	testlog.Start(t)
	s := Settings{LiveTolPct: 0.0005}
	if got := s.LiveTolerance(); got != 0.0005 {
		t.Fatalf("fractional tolerance changed: %v", got)
	}
	s = Settings{LiveTolPct: 1.5}
	if got := s.LiveTolerance(); got != 0.015 {
		t.Fatalf("percent tolerance not normalized: %v", got)
	}
}
