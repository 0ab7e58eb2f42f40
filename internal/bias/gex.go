package bias

import (
	"github.com/ictlabs/watchctl/internal/polygon"
)

// GexParams filter which contracts contribute to the exposure sum.
type GexParams struct {
	WindowPct float64 // strike window around spot
	OIMin     int
	SpreadMax float64
}

// Gex summarizes dealer gamma exposure around spot. SqueezeMetrics sign
// convention: calls positive, puts negative.
type Gex struct {
	Spot          float64
	ContractsUsed int
	Total         float64
	Calls         float64
	Puts          float64
	Tilt          float64
	PeakStrike    float64
	PeakSide      string
	PeakValue     float64
}

// EarningsMove is the heuristic post-earnings direction read from GEX.
type EarningsMove struct {
	Direction  string // "Pin", "Up", "Down" or "Two-sided"
	Confidence float64
}

type strikeSide struct {
	strike float64
	side   string
}

// ComputeGex sums gamma * OI * 100 * spot^2 per contract within the strike
// window, subject to OI and spread filters. Contracts missing gamma are
// skipped.
func ComputeGex(chain polygon.Chain, spot float64, p GexParams) Gex {
	out := Gex{Spot: spot}
	perStrike := make(map[strikeSide]float64)

	low, high := spot*(1-p.WindowPct), spot*(1+p.WindowPct)
	for _, c := range chain.Results {
		if c.Greeks.Gamma == nil || c.Details.StrikePrice == 0 {
			continue
		}
		strike := c.Details.StrikePrice
		if strike < low || strike > high {
			continue
		}
		if c.OpenInterest < float64(p.OIMin) {
			continue
		}
		if c.LastQuote.SpreadPct() > p.SpreadMax {
			continue
		}

		gex := *c.Greeks.Gamma * c.OpenInterest * 100.0 * spot * spot
		switch {
		case c.IsCall():
			out.Calls += gex
			perStrike[strikeSide{strike, "call"}] += gex
		case c.IsPut():
			out.Puts += gex
			perStrike[strikeSide{strike, "put"}] += gex
		default:
			continue
		}
		out.ContractsUsed++
	}

	out.Total = out.Calls - out.Puts
	// Strictly greater: when every strike nets to zero there is no peak.
	for k, v := range perStrike {
		if absf(v) > absf(out.PeakValue) {
			out.PeakStrike, out.PeakSide, out.PeakValue = k.strike, k.side, v
		}
	}
	denom := absf(out.Calls) + absf(out.Puts) + 1e-9
	out.Tilt = (out.Calls - absf(out.Puts)) / denom
	return out
}

// PredictEarningsMove maps the exposure summary to a direction call:
// positive net GEX pins, negative GEX moves with the tilt.
func PredictEarningsMove(g Gex, daysToEarnings int) EarningsMove {
	var dir string
	if g.Total > 0 {
		dir = "Pin"
	} else {
		switch {
		case g.Tilt >= 0.2:
			dir = "Up"
		case g.Tilt <= -0.2:
			dir = "Down"
		default:
			dir = "Two-sided"
		}
	}

	base := absf(g.Tilt)
	if base > 1 {
		base = 1
	}
	extra := 0.0
	if daysToEarnings >= 0 && daysToEarnings <= 3 {
		extra = 0.05
	}
	conf := 0.55 + 0.4*base + extra
	if conf < 0.5 {
		conf = 0.5
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return EarningsMove{Direction: dir, Confidence: conf}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
