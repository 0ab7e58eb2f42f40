// Package watchlist turns market structure, options bias and ranking into
// the posted premarket/evening/weekly watchlists.
package watchlist

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ictlabs/watchctl/internal/bias"
	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/detect"
	"github.com/ictlabs/watchctl/internal/market"
	"github.com/ictlabs/watchctl/internal/observability"
	"github.com/ictlabs/watchctl/internal/polygon"
	"github.com/ictlabs/watchctl/internal/rank"
	"github.com/ictlabs/watchctl/internal/strat"
	"github.com/ictlabs/watchctl/internal/universe"
)

// MarketData is the slice of the Polygon client the analyzer needs.
type MarketData interface {
	Aggs(ctx context.Context, ticker string, multiplier int, timespan, from, to string) (market.Bars, error)
	OptionsChain(ctx context.Context, ticker string) (polygon.Chain, error)
	NextEarningsDate(ctx context.Context, ticker string) (string, error)
}

// BiasFlags carries the options-bias annotations attached to a setup.
type BiasFlags struct {
	DDOI           string
	OpexWeek       bool
	EarningsSoon   bool
	EarningsDate   string
	EarningsDaysTo int

	GexTotal      float64
	GexTilt       float64
	GexPeakStrike float64
	GexPeakSide   string
	ERDir         string
	ERConf        float64
}

// OptionPick is the contract selected for a setup, with ROI projected to T1.
type OptionPick struct {
	Type    string
	Strike  float64
	Expiry  string
	Delta   float64
	Premium float64
	DTE     int
	Spread  float64
	OI      int
	ROIPct  float64
}

// Setup is one ranked watchlist row.
type Setup struct {
	Symbol      string
	Direction   string // "long" or "short"
	Entry       float64
	Stop        float64
	Targets     []float64
	Score       float64
	ProjMovePct float64
	ZoneLow     float64
	ZoneHigh    float64
	Pattern     string // aligned Strat combination, when one closed the series
	Bias        BiasFlags
	Option      *OptionPick
}

// Generator runs the per-symbol analysis across the configured universe.
type Generator struct {
	cfg config.Settings
	md  MarketData
	now func() time.Time
}

func NewGenerator(cfg config.Settings, md MarketData) *Generator {
	return &Generator{cfg: cfg, md: md, now: time.Now}
}

// WithClock overrides the clock. Test hook.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// AnalyzeSymbol runs the full structure + bias analysis for one symbol on
// 5-minute bars over the trailing 10 days. A nil setup with nil error means
// the symbol produced no qualifying setup.
func (g *Generator) AnalyzeSymbol(ctx context.Context, sym string) (*Setup, error) {
	now := g.now().UTC()
	to := now.Format("2006-01-02")
	from := now.AddDate(0, 0, -10).Format("2006-01-02")

	bars, err := g.md.Aggs(ctx, sym, 5, "minute", from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) < 80 {
		return nil, nil
	}
	bars = bars.InLocation(g.cfg.Location())

	highs, lows := detect.SwingPoints(bars, 3)
	breaks := detect.BreaksOfStructure(bars, highs, lows, 0.5)
	gaps := detect.FairValueGaps(bars, 0.1)
	blocks := detect.OrderBlocks(bars, breaks)
	eqh, eql := detect.EqualHighsLows(bars, 0.001)

	direction, zone := pickZone(breaks, gaps, blocks)
	if direction == "" {
		return nil, nil
	}

	setup := &Setup{
		Symbol:    sym,
		Direction: direction,
		Entry:     round2((zone.Low + zone.High) / 2),
		ZoneLow:   zone.Low,
		ZoneHigh:  zone.High,
	}
	if direction == "long" {
		setup.Stop = round2(zone.Low)
	} else {
		setup.Stop = round2(zone.High)
	}

	wantDir := "bull"
	if direction == "short" {
		wantDir = "bear"
	}
	if pat := strat.Detect(bars); pat != nil && pat.Dir == wantDir &&
		strat.MTFAlign(pat.Dir, strat.HTFBias(bars)) {
		setup.Pattern = pat.Name
	}

	// Chain failures degrade to an empty chain; structure alone can still rank.
	chain, err := g.md.OptionsChain(ctx, sym)
	if err != nil {
		log.Debug().Err(err).Str("symbol", sym).Msg("options chain unavailable")
		chain = polygon.Chain{}
	}

	ddoi := bias.DDOIFromChain(chain)
	setup.Bias = BiasFlags{
		DDOI:     ddoi.Tilt(),
		OpexWeek: bias.IsOpexWeek(now),
	}
	g.annotateEarnings(ctx, setup, chain, bars.LastClose(), now)

	liq := mergeLiquidity(eqh, eql)
	setup.Targets = TargetsFromR(setup.Entry, setup.Stop, liq)

	sc := rank.Score(
		rank.Confluence{
			BOS:         len(breaks) > 0,
			FVG:         len(gaps) > 0,
			OrderBlock:  len(blocks) > 0,
			EqLiquidity: len(liq) > 0,
		},
		rank.BiasInput{
			DDOI:         setup.Bias.DDOI,
			OpexWeek:     setup.Bias.OpexWeek,
			EarningsSoon: setup.Bias.EarningsSoon,
		},
		true,
	)
	if sc < g.cfg.MinScore {
		observability.RecordSymbolAnalyzed("below_min_score")
		return nil, nil
	}
	setup.Score = sc

	proj := bars.ProjectionPct(g.cfg.ProjDays)
	if proj < g.cfg.ProjMin || proj > g.cfg.ProjMax {
		observability.RecordSymbolAnalyzed("projection_out_of_band")
		return nil, nil
	}
	setup.ProjMovePct = round1(100 * proj)

	if pick := PickOption(chain, direction, now, g.cfg); pick != nil {
		move := math.Abs(setup.Targets[0] - setup.Entry)
		delta := pick.Delta
		if delta == 0 {
			delta = g.cfg.DeltaTarget
		}
		prem := pick.Premium
		if prem < 0.01 {
			prem = 0.01
		}
		pick.ROIPct = round1(100 * delta * move / prem)
		setup.Option = pick
	}

	observability.RecordSymbolAnalyzed("setup")
	return setup, nil
}

// Generate analyzes the leading universe slice concurrently and returns
// qualifying setups sorted by score, best first.
func (g *Generator) Generate(ctx context.Context, kind string) ([]Setup, error) {
	syms, err := universe.Load(g.cfg.UniversePath)
	if err != nil {
		return nil, err
	}
	if len(syms) > g.cfg.MaxSymbols {
		syms = syms[:g.cfg.MaxSymbols]
	}

	results := make([]*Setup, len(syms))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.MaxConcurrency)
	for i, sym := range syms {
		i, sym := i, sym
		eg.Go(func() error {
			setup, err := g.AnalyzeSymbol(egCtx, sym)
			if err != nil {
				// One bad symbol never sinks the run.
				log.Warn().Err(err).Str("symbol", sym).Msg("symbol analysis failed")
				observability.RecordSymbolAnalyzed("error")
				return nil
			}
			results[i] = setup
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	setups := make([]Setup, 0, len(results))
	for _, s := range results {
		if s != nil {
			setups = append(setups, *s)
		}
	}
	sort.SliceStable(setups, func(i, j int) bool { return setups[i].Score > setups[j].Score })

	log.Info().Str("kind", kind).Int("universe", len(syms)).Int("setups", len(setups)).
		Msg("watchlist generated")
	return setups, nil
}

// pickZone chooses the working direction from the last three structure
// breaks and returns the freshest aligned zone, gaps before blocks.
func pickZone(breaks []detect.Break, gaps, blocks []detect.Zone) (string, detect.Zone) {
	var longBias, shortBias bool
	tail := breaks
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	for _, b := range tail {
		if b.Dir == detect.Bull {
			longBias = true
		} else {
			shortBias = true
		}
	}

	var want detect.Direction
	var direction string
	switch {
	case longBias:
		want, direction = detect.Bull, "long"
	case shortBias:
		want, direction = detect.Bear, "short"
	default:
		return "", detect.Zone{}
	}

	var pool []detect.Zone
	for _, z := range gaps {
		if z.Dir == want {
			pool = append(pool, z)
		}
	}
	for _, z := range blocks {
		if z.Dir == want {
			pool = append(pool, z)
		}
	}
	if len(pool) == 0 {
		return "", detect.Zone{}
	}
	return direction, pool[len(pool)-1]
}

func (g *Generator) annotateEarnings(ctx context.Context, s *Setup, chain polygon.Chain, spot float64, now time.Time) {
	edate, err := g.md.NextEarningsDate(ctx, s.Symbol)
	if err != nil || edate == "" {
		return
	}
	ed, err := time.Parse("2006-01-02", edate)
	if err != nil {
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daysTo := int(ed.Sub(today).Hours() / 24)
	s.Bias.EarningsDate = edate
	s.Bias.EarningsDaysTo = daysTo
	s.Bias.EarningsSoon = daysTo >= 0 && daysTo <= g.cfg.EarningsFlagDays
	if !s.Bias.EarningsSoon {
		return
	}

	g2 := bias.ComputeGex(chain, spot, bias.GexParams{
		WindowPct: g.cfg.GexWindowPct,
		OIMin:     g.cfg.GexOIMin,
		SpreadMax: g.cfg.GexSpreadMax,
	})
	pred := bias.PredictEarningsMove(g2, daysTo)
	s.Bias.GexTotal = g2.Total
	s.Bias.GexTilt = g2.Tilt
	s.Bias.GexPeakStrike = g2.PeakStrike
	s.Bias.GexPeakSide = g2.PeakSide
	s.Bias.ERDir = pred.Direction
	s.Bias.ERConf = pred.Confidence
}

// TargetsFromR builds T1-T4: the nearest one or two equal-liquidity levels
// beyond entry, then R multiples for the rest.
func TargetsFromR(entry, stop float64, liq []float64) []float64 {
	r := math.Abs(entry - stop)
	up := entry > stop

	rTargets := make([]float64, 4)
	for i := range rTargets {
		step := float64(i+1) * r
		if up {
			rTargets[i] = entry + step
		} else {
			rTargets[i] = entry - step
		}
	}

	var beyond []float64
	for _, x := range liq {
		if (up && x > entry) || (!up && x < entry) {
			beyond = append(beyond, x)
		}
	}
	sort.Slice(beyond, func(i, j int) bool {
		return math.Abs(beyond[i]-entry) < math.Abs(beyond[j]-entry)
	})

	t1, t2 := rTargets[0], rTargets[1]
	if len(beyond) > 0 {
		t1 = beyond[0]
	}
	if len(beyond) > 1 {
		t2 = beyond[1]
	}
	return []float64{round2(t1), round2(t2), round2(rTargets[2]), round2(rTargets[3])}
}

func mergeLiquidity(eqh, eql []float64) []float64 {
	seen := make(map[float64]struct{}, len(eqh)+len(eql))
	out := make([]float64, 0, len(eqh)+len(eql))
	for _, v := range append(append([]float64{}, eqh...), eql...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
