// Package detect implements the intraday structure detectors the watchlist
// pipeline is built on: swing points, breaks of structure, fair value gaps,
// order blocks and equal-high/low liquidity pools.
package detect

import (
	"sort"

	"github.com/ictlabs/watchctl/internal/market"
)

type Direction string

const (
	Bull Direction = "bull"
	Bear Direction = "bear"
)

// Break is a break of structure: a close displacing beyond the last swing
// point by more than atrMult times the ATR proxy.
type Break struct {
	Index        int
	Dir          Direction
	RefIndex     int
	Displacement float64
}

// Zone is a price band of interest (fair value gap or order block).
type Zone struct {
	Dir   Direction
	Index int
	Low   float64
	High  float64
}

// SwingPoints returns indices of n-bar pivot highs and lows.
func SwingPoints(bars market.Bars, n int) (highs, lows []int) {
	for i := n; i < len(bars)-n; i++ {
		maxH, minL := bars[i-n].High, bars[i-n].Low
		for j := i - n + 1; j <= i+n; j++ {
			if bars[j].High > maxH {
				maxH = bars[j].High
			}
			if bars[j].Low < minL {
				minL = bars[j].Low
			}
		}
		if bars[i].High == maxH && bars[i].High > bars[i-1].High && bars[i].High > bars[i+1].High {
			highs = append(highs, i)
		}
		if bars[i].Low == minL && bars[i].Low < bars[i-1].Low && bars[i].Low < bars[i+1].Low {
			lows = append(lows, i)
		}
	}
	return highs, lows
}

// BreaksOfStructure scans for closes displacing beyond the most recent swing
// high/low. Swing references update as the scan passes each pivot.
func BreaksOfStructure(bars market.Bars, highs, lows []int, atrMult float64) []Break {
	atr := bars.EWMRange(14)

	lastHi, lastLo := -1, -1
	if len(highs) > 0 {
		lastHi = highs[0]
	}
	if len(lows) > 0 {
		lastLo = lows[0]
	}

	hiSet := indexSet(highs)
	loSet := indexSet(lows)

	var out []Break
	for i, bar := range bars {
		if lastHi >= 0 {
			ref := bars[lastHi].High
			if bar.Close > ref && bar.Close-ref > atr[i]*atrMult {
				out = append(out, Break{Index: i, Dir: Bull, RefIndex: lastHi, Displacement: bar.Close - ref})
			}
		}
		if lastLo >= 0 {
			ref := bars[lastLo].Low
			if bar.Close < ref && ref-bar.Close > atr[i]*atrMult {
				out = append(out, Break{Index: i, Dir: Bear, RefIndex: lastLo, Displacement: ref - bar.Close})
			}
		}
		if hiSet[i] {
			lastHi = i
		}
		if loSet[i] {
			lastLo = i
		}
	}
	return out
}

// FairValueGaps finds three-bar imbalances at least atrMult ATRs wide.
func FairValueGaps(bars market.Bars, atrMult float64) []Zone {
	atr := bars.EWMRange(14)

	var out []Zone
	for i := 2; i < len(bars); i++ {
		if bars[i].Low > bars[i-2].High {
			gap := bars[i].Low - bars[i-2].High
			if gap >= atr[i]*atrMult {
				out = append(out, Zone{Dir: Bull, Index: i, Low: bars[i-2].High, High: bars[i].Low})
			}
		}
		if bars[i].High < bars[i-2].Low {
			gap := bars[i-2].Low - bars[i].High
			if gap >= atr[i]*atrMult {
				out = append(out, Zone{Dir: Bear, Index: i, Low: bars[i].High, High: bars[i-2].Low})
			}
		}
	}
	return out
}

// OrderBlocks returns the body of the last opposite-direction candle within
// ten bars before each break of structure.
func OrderBlocks(bars market.Bars, breaks []Break) []Zone {
	var out []Zone
	for _, b := range breaks {
		start := b.Index - 10
		if start < 0 {
			start = 0
		}
		for j := b.Index - 1; j >= start; j-- {
			c := bars[j]
			opposite := (b.Dir == Bull && c.Close < c.Open) || (b.Dir == Bear && c.Close > c.Open)
			if !opposite {
				continue
			}
			low, high := c.Open, c.Close
			if low > high {
				low, high = high, low
			}
			out = append(out, Zone{Dir: b.Dir, Index: b.Index, Low: low, High: high})
			break
		}
	}
	return out
}

// EqualHighsLows finds consecutive highs/lows within tol (fractional) of
// each other. Resting liquidity levels used as targets.
func EqualHighsLows(bars market.Bars, tol float64) (eqh, eql []float64) {
	hs := make(map[float64]struct{})
	ls := make(map[float64]struct{})
	for i := 2; i < len(bars); i++ {
		h0, h1 := bars[i].High, bars[i-1].High
		if h0 > 0 && abs(h0-h1)/h0 <= tol {
			hs[max(h0, h1)] = struct{}{}
		}
		l0, l1 := bars[i].Low, bars[i-1].Low
		if l0 > 0 && abs(l0-l1)/l0 <= tol {
			ls[min(l0, l1)] = struct{}{}
		}
	}
	return sortedKeys(hs), sortedKeys(ls)
}

func indexSet(idx []int) map[int]bool {
	out := make(map[int]bool, len(idx))
	for _, i := range idx {
		out[i] = true
	}
	return out
}

func sortedKeys(m map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
