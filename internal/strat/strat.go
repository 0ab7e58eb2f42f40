// Package strat classifies bars into Strat candle types and scans the
// closing bars for 2-bar and 3-bar reversal/continuation patterns.
package strat

import "github.com/ictlabs/watchctl/internal/market"

// Candle types: "1" inside, "2u"/"2d" directional, "3" outside.
const (
	Inside  = "1"
	TwoUp   = "2u"
	TwoDown = "2d"
	Outside = "3"
)

// Pattern is a recognized Strat combination on the last closed bars.
type Pattern struct {
	Name  string
	Dir   string // "bull" or "bear"
	Types []string
}

var patterns2 = map[[2]string]Pattern{
	{TwoDown, TwoUp}:   {Name: "2-2 Reversal Up", Dir: "bull"},
	{TwoUp, TwoDown}:   {Name: "2-2 Reversal Down", Dir: "bear"},
	{TwoUp, TwoUp}:     {Name: "2-2 Continuation Up", Dir: "bull"},
	{TwoDown, TwoDown}: {Name: "2-2 Continuation Down", Dir: "bear"},
	{Inside, TwoUp}:    {Name: "1-2 Upside Break", Dir: "bull"},
	{Inside, TwoDown}:  {Name: "1-2 Downside Break", Dir: "bear"},
	{Outside, TwoUp}:   {Name: "3-2 Upside", Dir: "bull"},
	{Outside, TwoDown}: {Name: "3-2 Downside", Dir: "bear"},
}

var patterns3 = map[[3]string]Pattern{
	{TwoDown, Inside, TwoUp}:    {Name: "2-1-2 Up", Dir: "bull"},
	{TwoUp, Inside, TwoDown}:    {Name: "2-1-2 Down", Dir: "bear"},
	{Inside, Inside, TwoUp}:     {Name: "1-1-2 Up", Dir: "bull"},
	{Inside, Inside, TwoDown}:   {Name: "1-1-2 Down", Dir: "bear"},
	{Outside, Inside, TwoUp}:    {Name: "3-1-2 Up", Dir: "bull"},
	{Outside, Inside, TwoDown}:  {Name: "3-1-2 Down", Dir: "bear"},
	{Outside, TwoUp, TwoUp}:     {Name: "3-2-2 Up", Dir: "bull"},
	{Outside, TwoDown, TwoDown}: {Name: "3-2-2 Down", Dir: "bear"},
}

// CandleTypes classifies each bar against its predecessor. The first bar has
// no predecessor and defaults to inside.
func CandleTypes(bars market.Bars) []string {
	out := make([]string, len(bars))
	for i := range bars {
		if i == 0 {
			out[i] = Inside
			continue
		}
		cur, prev := bars[i], bars[i-1]
		tookHigh := cur.High > prev.High
		tookLow := cur.Low < prev.Low
		switch {
		case tookHigh && tookLow:
			out[i] = Outside
		case tookHigh:
			out[i] = TwoUp
		case tookLow:
			out[i] = TwoDown
		default:
			out[i] = Inside
		}
	}
	return out
}

// Detect returns the most recent pattern ending on the last closed bar, with
// 3-bar combinations taking precedence, or nil when none matches.
func Detect(bars market.Bars) *Pattern {
	if len(bars) < 3 {
		return nil
	}
	types := CandleTypes(bars)

	last3 := [3]string{types[len(types)-3], types[len(types)-2], types[len(types)-1]}
	if p, ok := patterns3[last3]; ok {
		p.Types = last3[:]
		return &p
	}
	last2 := [2]string{types[len(types)-2], types[len(types)-1]}
	if p, ok := patterns2[last2]; ok {
		p.Types = last2[:]
		return &p
	}
	return nil
}

// HTFBias reads higher-timeframe direction from the last closed bar.
func HTFBias(bars market.Bars) string {
	if len(bars) < 2 {
		return "flat"
	}
	types := CandleTypes(bars)
	last := bars[len(bars)-1]
	switch types[len(types)-1] {
	case TwoUp:
		return "bull"
	case TwoDown:
		return "bear"
	case Outside:
		if last.Close > last.Open {
			return "bull"
		}
		return "bear"
	}
	return "flat"
}

// MTFAlign reports whether a pattern direction agrees with the HTF bias.
func MTFAlign(patternDir, biasDir string) bool {
	if patternDir != "bull" && patternDir != "bear" {
		return false
	}
	if biasDir == "flat" {
		return false
	}
	return patternDir == biasDir
}
