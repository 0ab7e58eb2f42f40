package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func capture(t *testing.T, status int) (*httptest.Server, *message) {
	t.Helper()
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSendWatchlistPayload(t *testing.T) {
	testlog.Start(t)
	srv, got := capture(t, http.StatusNoContent)

	c := NewClient()
	err := c.SendWatchlist(context.Background(), srv.URL, "Premarket Watchlist", []string{
		"SPY LONG – Entry 600.10 | Stop 598.00",
		"QQQ SHORT – Entry 520.00 | Stop 522.40",
	})
	if err != nil {
		t.Fatalf("send watchlist failed: %v", err)
	}
	if got.Username != "ICT Watchlists 👀" {
		t.Fatalf("unexpected username: %q", got.Username)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("unexpected embed count: %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Premarket Watchlist" {
		t.Fatalf("unexpected title: %q", e.Title)
	}
	if len(e.Fields) != 2 || e.Fields[0].Name != "1." || e.Fields[1].Name != "2." {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
	if e.Footer == nil || e.Footer.Text != "Not financial advice" {
		t.Fatalf("missing disclaimer footer: %+v", e.Footer)
	}
}

func TestSendEntryDetailPayload(t *testing.T) {
	testlog.Start(t)
	srv, got := capture(t, http.StatusOK)

	c := NewClient()
	err := c.SendEntryDetail(context.Background(), srv.URL, EntryDetail{
		Symbol:      "NVDA",
		Direction:   "long",
		Entry:       120.50,
		Stop:        118.00,
		Targets:     []float64{123.0, 125.5, 128.0, 130.5},
		Score:       92,
		ProjMovePct: 4.2,
		Bias: Bias{
			DDOI:           "bullish",
			OpexWeek:       true,
			EarningsSoon:   true,
			EarningsDate:   "2025-08-27",
			EarningsDaysTo: 2,
			ERDir:          "Up",
			ERConf:         0.72,
		},
		Option: &Option{
			Type: "CALL", Strike: 125, Expiry: "2025-09-05",
			Delta: 0.42, Premium: 3.15, ROIPct: 180.0, DTE: 11, Spread: 0.04,
		},
	})
	if err != nil {
		t.Fatalf("send entry failed: %v", err)
	}
	e := got.Embeds[0]
	if e.Title != "ENTRY – NVDA LONG" {
		t.Fatalf("unexpected title: %q", e.Title)
	}
	byName := map[string]string{}
	for _, f := range e.Fields {
		byName[f.Name] = f.Value
	}
	if !strings.Contains(byName["Entry/Stop"], "1R=2.50") {
		t.Fatalf("entry/stop field = %q", byName["Entry/Stop"])
	}
	if !strings.Contains(byName["Targets"], "T4 130.50") {
		t.Fatalf("targets field = %q", byName["Targets"])
	}
	if !strings.Contains(byName["Bias"], "OPEX week") || !strings.Contains(byName["Bias"], "ER:Up 72%") {
		t.Fatalf("bias field = %q", byName["Bias"])
	}
	if !strings.Contains(byName["Option"], "CALL 125.00 exp 2025-09-05") {
		t.Fatalf("option field = %q", byName["Option"])
	}
	if e.Footer == nil || !strings.Contains(e.Footer.Text, "50/25/15/10") {
		t.Fatalf("scale footer missing: %+v", e.Footer)
	}
}

func TestSendMacroUpdatePayload(t *testing.T) {
	testlog.Start(t)
	srv, got := capture(t, http.StatusOK)

	c := NewClient()
	err := c.SendMacroUpdate(context.Background(), srv.URL, "Macro Update",
		"Macro: CPI @ 5:30am PT", "Sectors: Tech↑")
	if err != nil {
		t.Fatalf("send macro failed: %v", err)
	}
	if got.Username != "Macro Bot 🗓️" {
		t.Fatalf("unexpected username: %q", got.Username)
	}
}

func TestPostMissingWebhook(t *testing.T) {
	testlog.Start(t)
	c := NewClient()
	err := c.SendWatchlist(context.Background(), "  ", "title", nil)
	if err != ErrNoWebhook {
		t.Fatalf("expected ErrNoWebhook, got %v", err)
	}
}

func TestPostBadStatus(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendWatchlist(context.Background(), srv.URL, "title", []string{"line"})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}
