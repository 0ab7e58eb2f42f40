// Package rank scores candidate setups on a 0-100 scale from structure
// confluence and options bias.
package rank

// Confluence flags which structure detectors fired for a symbol.
type Confluence struct {
	BOS         bool
	FVG         bool
	OrderBlock  bool
	EqLiquidity bool
}

// BiasInput carries the options-bias signals that shade the score.
type BiasInput struct {
	DDOI         string // "pos", "neg" or "flat"
	OpexWeek     bool
	EarningsSoon bool
}

// Score combines confluence, bias and a liquidity proxy into [0, 100].
func Score(c Confluence, b BiasInput, spreadOK bool) float64 {
	s := 0.0
	if c.BOS {
		s += 20
	}
	if c.FVG {
		s += 20
	}
	if c.OrderBlock {
		s += 20
	}
	if c.EqLiquidity {
		s += 10
	}

	switch b.DDOI {
	case "pos":
		s += 10
	case "neg":
		s -= 10
	}
	if b.OpexWeek {
		s += 5
	}
	if b.EarningsSoon {
		s -= 20
	}

	if spreadOK {
		s += 5
	}

	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return s
}
