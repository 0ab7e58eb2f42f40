package market

import "time"

// Bar is a single OHLCV aggregate.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bars is a time-ordered series of aggregates.
type Bars []Bar

func (b Bars) LastClose() float64 {
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1].Close
}

// InLocation returns a copy with every timestamp converted to loc.
func (b Bars) InLocation(loc *time.Location) Bars {
	out := make(Bars, len(b))
	for i, bar := range b {
		bar.Time = bar.Time.In(loc)
		out[i] = bar
	}
	return out
}

// EWMRange is the exponentially weighted mean of the bar range (high-low),
// span-parameterized, seeded from the first value. Used as the ATR proxy by
// the structure detectors.
func (b Bars) EWMRange(span int) []float64 {
	out := make([]float64, len(b))
	if len(b) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = b[0].High - b[0].Low
	for i := 1; i < len(b); i++ {
		r := b[i].High - b[i].Low
		out[i] = (1-alpha)*out[i-1] + alpha*r
	}
	return out
}

// MeanRange averages high-low over the last n bars.
func (b Bars) MeanRange(n int) float64 {
	if len(b) == 0 || n <= 0 {
		return 0
	}
	start := len(b) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, bar := range b[start:] {
		sum += bar.High - bar.Low
	}
	return sum / float64(len(b)-start)
}

// ATRPercent is the true-range ATR over period bars as a fraction of the
// last close. Returns 0 when fewer than period+1 bars are available.
func (b Bars) ATRPercent(period int) float64 {
	if period <= 0 || len(b) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(b) - period; i < len(b); i++ {
		tr := b[i].High - b[i].Low
		if d := abs(b[i].High - b[i-1].Close); d > tr {
			tr = d
		}
		if d := abs(b[i].Low - b[i-1].Close); d > tr {
			tr = d
		}
		sum += tr
	}
	last := b.LastClose()
	if last <= 0 {
		return 0
	}
	return (sum / float64(period)) / last
}

// ProjectionPct fits a linear trend to the trailing closes and extrapolates
// days bars ahead, returning the projected fractional move from the last
// close. Too-short series project 0.
func (b Bars) ProjectionPct(days int) float64 {
	need := days + 5
	if need < 20 {
		need = 20
	}
	if len(b) < need {
		return 0
	}
	window := days + 20
	if window > len(b) {
		window = len(b)
	}
	y := b[len(b)-window:]

	// least squares fit of close against bar index
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, bar := range y {
		x := float64(i)
		sumX += x
		sumY += bar.Close
		sumXY += x * bar.Close
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	last := y[len(y)-1].Close
	if last == 0 {
		return 0
	}
	proj := slope*(n-1+float64(days)) + intercept
	return proj/last - 1.0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
