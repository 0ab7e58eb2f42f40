package watchlist

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/polygon"
)

// PickOption selects the contract for a setup: calls for longs, puts for
// shorts, constrained by the DTE window, open interest and spread, then
// ranked by distance from the delta target. Returns nil when nothing
// qualifies.
func PickOption(chain polygon.Chain, direction string, now time.Time, cfg config.Settings) *OptionPick {
	wantCall := direction == "long"
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var kept []OptionPick
	for _, c := range chain.Results {
		if wantCall != c.IsCall() {
			continue
		}
		if c.Details.ExpirationDate == "" {
			continue
		}
		exp, err := time.Parse("2006-01-02", c.Details.ExpirationDate)
		if err != nil {
			continue
		}
		dte := int(exp.Sub(today).Hours() / 24)
		if dte < cfg.DTEMin || dte > cfg.DTEMax {
			continue
		}
		mid := c.LastQuote.Mid()
		if mid <= 0 {
			continue
		}
		spread := c.LastQuote.SpreadPct()
		if int(c.OpenInterest) < cfg.OIMin || spread > cfg.SpreadMax {
			continue
		}
		delta := 0.0
		if c.Greeks.Delta != nil {
			delta = math.Abs(*c.Greeks.Delta)
		}
		kept = append(kept, OptionPick{
			Type:    strings.ToUpper(c.Details.ContractType),
			Strike:  c.Details.StrikePrice,
			Expiry:  c.Details.ExpirationDate,
			Delta:   round2(delta),
			Premium: round2(mid),
			DTE:     dte,
			Spread:  math.Round(spread*1000) / 1000,
			OI:      int(c.OpenInterest),
		})
	}
	if len(kept) == 0 {
		return nil
	}

	inBand := func(lo, hi float64) []OptionPick {
		var out []OptionPick
		for _, c := range kept {
			if c.Delta >= lo && c.Delta <= hi {
				out = append(out, c)
			}
		}
		return out
	}
	cand := inBand(cfg.DeltaTarget-cfg.DeltaBand, cfg.DeltaTarget+cfg.DeltaBand)
	if len(cand) == 0 {
		cand = inBand(cfg.DeltaFallbackMin, cfg.DeltaFallbackMax)
	}
	if len(cand) == 0 {
		cand = kept
	}

	sort.SliceStable(cand, func(i, j int) bool {
		di := math.Abs(cand[i].Delta - cfg.DeltaTarget)
		dj := math.Abs(cand[j].Delta - cfg.DeltaTarget)
		if di != dj {
			return di < dj
		}
		if cand[i].Spread != cand[j].Spread {
			return cand[i].Spread < cand[j].Spread
		}
		return cand[i].DTE < cand[j].DTE
	})
	best := cand[0]
	return &best
}
