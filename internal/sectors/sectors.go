// Package sectors builds the one-line sector breadth header from daily
// closes of the SPDR sector ETFs.
package sectors

import (
	"context"
	"strings"
	"time"

	"github.com/ictlabs/watchctl/internal/market"
)

// AggsFetcher is the slice of the market-data client this package needs.
type AggsFetcher interface {
	Aggs(ctx context.Context, ticker string, multiplier int, timespan, from, to string) (market.Bars, error)
}

type sector struct {
	Symbol string
	Label  string
}

var sectorList = []sector{
	{"XLC", "CommSvcs"},
	{"XLY", "Disc"},
	{"XLP", "Staples"},
	{"XLE", "Energy"},
	{"XLF", "Fin"},
	{"XLV", "Health"},
	{"XLI", "Indust"},
	{"XLB", "Mat"},
	{"XLRE", "RE"},
	{"XLK", "Tech"},
	{"XLU", "Utils"},
}

// changeThreshold is the daily move that earns an up/down arrow.
const changeThreshold = 0.003

// Header renders "Sectors: CommSvcs↑ Disc– ...". Fetch failures or short
// series render a placeholder dot for that sector.
func Header(ctx context.Context, f AggsFetcher) string {
	now := time.Now().UTC()
	to := now.Format("2006-01-02")
	from := now.AddDate(0, 0, -15).Format("2006-01-02")

	parts := make([]string, 0, len(sectorList))
	for _, s := range sectorList {
		bars, err := f.Aggs(ctx, s.Symbol, 1, "day", from, to)
		if err != nil || len(bars) < 2 {
			parts = append(parts, s.Label+"·")
			continue
		}
		prev := bars[len(bars)-2].Close
		last := bars[len(bars)-1].Close
		if prev == 0 {
			parts = append(parts, s.Label+"·")
			continue
		}
		parts = append(parts, s.Label+arrow(last/prev-1.0))
	}
	return "Sectors: " + strings.Join(parts, "  ")
}

func arrow(pct float64) string {
	switch {
	case pct > changeThreshold:
		return "↑"
	case pct < -changeThreshold:
		return "↓"
	default:
		return "–"
	}
}
