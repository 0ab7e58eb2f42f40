package detect

import (
	"testing"
	"time"

	"github.com/ictlabs/watchctl/internal/market"
	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func bar(o, h, l, c float64) market.Bar {
	return market.Bar{Open: o, High: h, Low: l, Close: c}
}

func stamped(bars []market.Bar) market.Bars {
	base := time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)
	for i := range bars {
		bars[i].Time = base.Add(time.Duration(i) * 5 * time.Minute)
	}
	return bars
}

func TestSwingPoints(t *testing.T) {
	testlog.Start(t)
	bars := stamped([]market.Bar{
		bar(10, 11, 9, 10),
		bar(10, 12, 10, 11),
		bar(11, 15, 11, 14), // pivot high at 2
		bar(14, 13, 10, 11),
		bar(11, 12, 8, 9), // pivot low at 4
		bar(9, 11, 9, 10),
		bar(10, 12, 10, 11),
	})
	highs, lows := SwingPoints(bars, 2)
	if len(highs) != 1 || highs[0] != 2 {
		t.Fatalf("unexpected highs: %v", highs)
	}
	if len(lows) != 1 || lows[0] != 4 {
		t.Fatalf("unexpected lows: %v", lows)
	}
}

func TestFairValueGapsBull(t *testing.T) {
	testlog.Start(t)
	bars := stamped([]market.Bar{
		bar(10, 10.5, 9.8, 10.2),
		bar(10.2, 10.6, 10.0, 10.5),
		bar(11.5, 12.0, 11.2, 11.9), // low 11.2 > high[0] 10.5: bull gap
		bar(11.9, 12.1, 11.6, 12.0),
	})
	zones := FairValueGaps(bars, 0.1)
	if len(zones) == 0 {
		t.Fatal("expected a bull fvg")
	}
	z := zones[0]
	if z.Dir != Bull || z.Low != 10.5 || z.High != 11.2 {
		t.Fatalf("unexpected zone: %+v", z)
	}
}

func TestBreaksOfStructureBull(t *testing.T) {
	testlog.Start(t)
	bars := make([]market.Bar, 0, 24)
	// quiet range so the ATR proxy stays small
	for i := 0; i < 10; i++ {
		bars = append(bars, bar(10, 10.2, 9.9, 10.1))
	}
	bars = append(bars, bar(10.1, 10.8, 10.0, 10.4)) // swing high at 10
	for i := 0; i < 8; i++ {
		bars = append(bars, bar(10.2, 10.4, 10.0, 10.2))
	}
	bars = append(bars, bar(10.3, 12.5, 10.3, 12.4)) // displacement close above 10.8
	series := stamped(bars)

	highs, lows := SwingPoints(series, 3)
	breaks := BreaksOfStructure(series, highs, lows, 0.5)
	if len(breaks) == 0 {
		t.Fatal("expected a bull break of structure")
	}
	last := breaks[len(breaks)-1]
	if last.Dir != Bull {
		t.Fatalf("unexpected direction: %s", last.Dir)
	}
	if last.Index != len(series)-1 {
		t.Fatalf("unexpected break index: %d", last.Index)
	}
	if last.Displacement <= 0 {
		t.Fatalf("displacement must be positive: %v", last.Displacement)
	}
}

func TestOrderBlocksUseLastOppositeBody(t *testing.T) {
	testlog.Start(t)
	bars := stamped([]market.Bar{
		bar(10, 10.5, 9.5, 10.2),
		bar(10.2, 10.4, 9.8, 9.9), // down candle: body 9.9..10.2
		bar(9.9, 12.0, 9.9, 11.8),
	})
	breaks := []Break{{Index: 2, Dir: Bull, RefIndex: 0, Displacement: 1.0}}
	zones := OrderBlocks(bars, breaks)
	if len(zones) != 1 {
		t.Fatalf("unexpected zone count: %d", len(zones))
	}
	z := zones[0]
	if z.Low != 9.9 || z.High != 10.2 {
		t.Fatalf("unexpected body band: %+v", z)
	}
}

func TestOrderBlocksNoOppositeCandle(t *testing.T) {
	testlog.Start(t)
	bars := stamped([]market.Bar{
		bar(10, 10.5, 9.9, 10.4),
		bar(10.4, 10.8, 10.3, 10.7),
		bar(10.7, 12.0, 10.6, 11.9),
	})
	breaks := []Break{{Index: 2, Dir: Bull}}
	if zones := OrderBlocks(bars, breaks); len(zones) != 0 {
		t.Fatalf("expected no zones, got %v", zones)
	}
}

func TestEqualHighsLows(t *testing.T) {
	testlog.Start(t)
	bars := stamped([]market.Bar{
		bar(10, 10.0, 9.0, 9.5),
		bar(9.5, 12.0, 9.2, 11.0),
		bar(11, 12.005, 9.2005, 11.5), // high within 0.1% of prior, low within tolerance of prior
		bar(11.5, 11.8, 10.0, 11.0),
	})
	eqh, eql := EqualHighsLows(bars, 0.001)
	if len(eqh) != 1 || eqh[0] != 12.005 {
		t.Fatalf("unexpected equal highs: %v", eqh)
	}
	if len(eql) != 1 || eql[0] != 9.2 {
		t.Fatalf("unexpected equal lows: %v", eql)
	}
}
