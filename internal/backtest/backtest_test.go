package backtest

import (
	"context"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/journal"
	"github.com/ictlabs/watchctl/internal/market"
	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func longTrade() Trade {
	return Trade{
		Time:      time.Date(2025, 8, 25, 6, 30, 0, 0, time.UTC),
		Symbol:    "SPY",
		Direction: "long",
		Entry:     100,
		Stop:      98,
		T1:        102,
		T2:        104,
		T3:        106,
		T4:        108,
	}
}

func bar(hi, lo, close float64) market.Bar {
	return market.Bar{High: hi, Low: lo, Close: close}
}

func approx(t *testing.T, got, want float64, label string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
}

func TestSimulateFullScaleOut(t *testing.T) {
	testlog.Start(t)
	bars := market.Bars{
		bar(102.5, 100, 102),
		bar(104.5, 101, 104),
		bar(106.5, 102, 106),
	}
	out := Simulate(longTrade(), bars)
	// 0.5*1R + 0.25*2R + 0.25*3R
	approx(t, out.RealizedR, 2.25, "realized R")
	if !reflect.DeepEqual(out.HitSeq, []string{"T1", "T2", "T3"}) {
		t.Fatalf("hit sequence = %v", out.HitSeq)
	}
	if out.Stopped {
		t.Fatal("fully scaled trade must not report a stop")
	}
}

func TestSimulateStopFirst(t *testing.T) {
	testlog.Start(t)
	out := Simulate(longTrade(), market.Bars{bar(100.5, 97.9, 98)})
	approx(t, out.RealizedR, -1.0, "realized R")
	if !out.Stopped {
		t.Fatal("stop run must be flagged")
	}
	if len(out.HitSeq) != 0 {
		t.Fatalf("hit sequence = %v", out.HitSeq)
	}
}

func TestSimulateBreakevenAfterT1(t *testing.T) {
	testlog.Start(t)
	bars := market.Bars{
		bar(102.5, 100.5, 102),
		bar(101, 99.9, 100),
	}
	out := Simulate(longTrade(), bars)
	// half off at +1R, rest stopped at breakeven
	approx(t, out.RealizedR, 0.5, "realized R")
	if !out.Stopped {
		t.Fatal("breakeven stop must be flagged")
	}
	if !reflect.DeepEqual(out.HitSeq, []string{"T1"}) {
		t.Fatalf("hit sequence = %v", out.HitSeq)
	}
}

func TestSimulateMarkAtWindowEnd(t *testing.T) {
	testlog.Start(t)
	out := Simulate(longTrade(), market.Bars{bar(101, 100, 101)})
	approx(t, out.RealizedR, 0.5, "realized R")
	if out.Stopped || len(out.HitSeq) != 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestSimulateShortRunnerAtT4(t *testing.T) {
	testlog.Start(t)
	tr := Trade{
		Symbol: "QQQ", Direction: "short",
		Entry: 100, Stop: 102,
		T1: 98, T2: 96, T3: 94, T4: 92,
	}
	// one wide bar gaps through T4 but past T3 as well; runner exits at T3
	out := Simulate(tr, market.Bars{bar(100, 91.5, 92)})
	// 0.5*1R + 0.25*2R + 0.25*3R
	approx(t, out.RealizedR, 1.75, "realized R")
	if !reflect.DeepEqual(out.HitSeq, []string{"T1", "T2", "T3"}) {
		t.Fatalf("hit sequence = %v", out.HitSeq)
	}
}

func TestSummarize(t *testing.T) {
	testlog.Start(t)
	outcomes := []Outcome{
		{RealizedR: 1},
		{RealizedR: -1},
		{RealizedR: 0},
		{RealizedR: 2},
	}
	s := Summarize(outcomes)
	if s.Trades != 4 || s.Wins != 2 || s.Losses != 1 || s.Flats != 1 {
		t.Fatalf("counts = %+v", s)
	}
	approx(t, s.AvgR, 0.5, "avg R")
	approx(t, s.WinratePct, 50.0, "winrate")
	approx(t, s.MaxDrawdownR, -1.0, "max drawdown")
}

func TestLoadTradesFiltersRows(t *testing.T) {
	testlog.Start(t)
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	good := journal.Entry{
		TimestampPT: "2025-08-25 06:30:00",
		Kind:        "entry",
		Symbol:      "spy",
		Direction:   "long",
		Entry:       100, Stop: 98,
		T1: 102, T2: 104, T3: 106, T4: 108,
	}
	noTargets := good
	noTargets.Symbol = "QQQ"
	noTargets.T3 = 0
	zeroRisk := good
	zeroRisk.Symbol = "AMD"
	zeroRisk.Stop = 100
	badTime := good
	badTime.Symbol = "NVDA"
	badTime.TimestampPT = "yesterday"

	for _, e := range []journal.Entry{good, noTargets, zeroRisk, badTime} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	cfg := config.Settings{
		Timezone:      "America/Los_Angeles",
		BacktestLimit: 50,
	}
	r := NewRunner(cfg, store, nil, nil)
	trades, err := r.LoadTrades(ctx)
	if err != nil {
		t.Fatalf("load trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trade count = %d (%+v)", len(trades), trades)
	}
	if trades[0].Symbol != "SPY" {
		t.Fatalf("symbol = %q", trades[0].Symbol)
	}
}
