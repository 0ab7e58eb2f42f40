// Package backtest replays journaled entries against subsequent price
// action and scores them in R multiples.
package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/journal"
	"github.com/ictlabs/watchctl/internal/market"
	"github.com/ictlabs/watchctl/internal/notify"
)

// Trade is a journaled entry eligible for replay.
type Trade struct {
	Time      time.Time
	Symbol    string
	Direction string
	Entry     float64
	Stop      float64
	T1        float64
	T2        float64
	T3        float64
	T4        float64
}

// RiskR is the 1R distance for the trade.
func (t Trade) RiskR() float64 {
	return math.Abs(t.Entry - t.Stop)
}

// IsLong treats long/bull/buy spellings as long, everything else as short.
func (t Trade) IsLong() bool {
	switch strings.ToLower(t.Direction) {
	case "long", "bull", "bullish", "buy":
		return true
	}
	return false
}

// Outcome is one simulated trade result.
type Outcome struct {
	Trade     Trade
	RealizedR float64
	HitSeq    []string
	Stopped   bool
}

// Summary aggregates a replay run.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	Flats        int
	WinratePct   float64
	AvgR         float64
	MaxDrawdownR float64
}

// Simulate walks a trade forward through bars, scaling out 50% at T1
// (stop to breakeven), 25% at T2 and the final 25% at the first of T3/T4.
// The stop is evaluated before targets on each bar. Whatever remains at
// the end of the window is marked at the last close.
func Simulate(tr Trade, bars market.Bars) Outcome {
	out := Outcome{Trade: tr}
	if len(bars) == 0 {
		return out
	}
	r := tr.RiskR()
	if r <= 0 {
		return out
	}

	long := tr.IsLong()
	profitR := func(price float64) float64 {
		if long {
			return (price - tr.Entry) / r
		}
		return (tr.Entry - price) / r
	}
	reaches := func(hi, lo, level float64) bool {
		if long {
			return hi >= level
		}
		return lo <= level
	}

	remain := 1.0
	stop := tr.Stop
	t1Done, t2Done := false, false
	runnerLeft := 0.25
	for _, bar := range bars {
		hi, lo := bar.High, bar.Low

		if (long && lo <= stop) || (!long && hi >= stop) {
			out.RealizedR += profitR(stop) * remain
			out.Stopped = true
			return out
		}

		if remain > 0 && !t1Done && reaches(hi, lo, tr.T1) {
			out.RealizedR += profitR(tr.T1) * 0.5
			remain -= 0.5
			out.HitSeq = append(out.HitSeq, "T1")
			stop = tr.Entry
			t1Done = true
		}
		if remain > 0 && !t2Done && reaches(hi, lo, tr.T2) {
			out.RealizedR += profitR(tr.T2) * 0.25
			remain -= 0.25
			out.HitSeq = append(out.HitSeq, "T2")
			t2Done = true
		}
		if remain > 0 && runnerLeft > 0 {
			hit3 := reaches(hi, lo, tr.T3)
			hit4 := reaches(hi, lo, tr.T4)
			if hit3 || hit4 {
				level, label := tr.T3, "T3"
				if hit4 && !hit3 {
					level, label = tr.T4, "T4"
				}
				out.RealizedR += profitR(level) * runnerLeft
				remain -= runnerLeft
				runnerLeft = 0
				out.HitSeq = append(out.HitSeq, label)
			}
		}
		if remain <= 1e-6 {
			return out
		}
	}
	out.RealizedR += profitR(bars[len(bars)-1].Close) * remain
	return out
}

// Summarize computes the aggregate stats over outcomes in replay order.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Trades: len(outcomes)}
	if s.Trades == 0 {
		return s
	}
	var sum, equity, peak, mdd float64
	for _, o := range outcomes {
		sum += o.RealizedR
		switch {
		case o.RealizedR > 0:
			s.Wins++
		case o.RealizedR < 0:
			s.Losses++
		default:
			s.Flats++
		}
		equity += o.RealizedR
		if equity > peak {
			peak = equity
		}
		if dd := equity - peak; dd < mdd {
			mdd = dd
		}
	}
	s.AvgR = math.Round(sum/float64(s.Trades)*1000) / 1000
	s.WinratePct = math.Round(1000*float64(s.Wins)/float64(s.Trades)) / 10
	s.MaxDrawdownR = math.Round(mdd*1000) / 1000
	return s
}

// BarFetcher is the aggregates slice of the market-data client.
type BarFetcher interface {
	Aggs(ctx context.Context, ticker string, multiplier int, timespan, from, to string) (market.Bars, error)
}

// Runner replays the journal tail and optionally posts the summary.
type Runner struct {
	cfg      config.Settings
	store    *journal.Store
	md       BarFetcher
	notifier *notify.Client
}

func NewRunner(cfg config.Settings, store *journal.Store, md BarFetcher, notifier *notify.Client) *Runner {
	return &Runner{cfg: cfg, store: store, md: md, notifier: notifier}
}

// LoadTrades reads the newest journal rows and keeps the replayable ones,
// oldest first.
func (r *Runner) LoadTrades(ctx context.Context) ([]Trade, error) {
	rows, err := r.store.ReadLast(ctx, r.cfg.BacktestLimit)
	if err != nil {
		return nil, err
	}
	loc := r.cfg.Location()
	trades := make([]Trade, 0, len(rows))
	for _, row := range rows {
		tr, ok := tradeFromRow(row, loc)
		if !ok {
			continue
		}
		trades = append(trades, tr)
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].Time.Before(trades[j].Time) })
	return trades, nil
}

func tradeFromRow(row journal.Entry, loc *time.Location) (Trade, bool) {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", row.TimestampPT, loc)
	if err != nil {
		return Trade{}, false
	}
	tr := Trade{
		Time:      ts,
		Symbol:    strings.ToUpper(row.Symbol),
		Direction: row.Direction,
		Entry:     row.Entry,
		Stop:      row.Stop,
		T1:        row.T1,
		T2:        row.T2,
		T3:        row.T3,
		T4:        row.T4,
	}
	if tr.Symbol == "" || tr.Direction == "" || tr.RiskR() <= 0 {
		return Trade{}, false
	}
	if tr.T1 == 0 || tr.T2 == 0 || tr.T3 == 0 || tr.T4 == 0 {
		return Trade{}, false
	}
	return tr, true
}

// Run replays the journal tail against bars fetched from the trade time
// forward and returns the outcomes with their summary.
func (r *Runner) Run(ctx context.Context) ([]Outcome, Summary, error) {
	trades, err := r.LoadTrades(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("backtest journal load failed: %w", err)
	}
	if len(trades) == 0 {
		return nil, Summary{}, nil
	}

	var mu sync.Mutex
	outcomes := make([]Outcome, 0, len(trades))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.BacktestConcurrency)
	for _, tr := range trades {
		tr := tr
		eg.Go(func() error {
			bars, err := r.fetchWindow(egCtx, tr)
			if err != nil {
				log.Warn().Err(err).Str("symbol", tr.Symbol).Msg("backtest bars unavailable")
				return nil
			}
			out := Simulate(tr, bars)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, Summary{}, err
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Trade.Time.Before(outcomes[j].Trade.Time)
	})
	return outcomes, Summarize(outcomes), nil
}

func (r *Runner) fetchWindow(ctx context.Context, tr Trade) (market.Bars, error) {
	from := tr.Time.AddDate(0, 0, -1).Format("2006-01-02")
	to := tr.Time.AddDate(0, 0, r.cfg.BacktestDays+1).Format("2006-01-02")
	bars, err := r.md.Aggs(ctx, tr.Symbol, r.cfg.BacktestTFMin, "minute", from, to)
	if err != nil {
		return nil, err
	}
	bars = bars.InLocation(r.cfg.Location())
	kept := bars[:0:0]
	for _, b := range bars {
		if !b.Time.Before(tr.Time) {
			kept = append(kept, b)
		}
	}
	return kept, nil
}

// PostSummary sends the run summary to the watchlist webhook.
func (r *Runner) PostSummary(ctx context.Context, s Summary) error {
	title := fmt.Sprintf("Backtest – %d trades (tf %dm, %dd window, cap %d)",
		s.Trades, r.cfg.BacktestTFMin, r.cfg.BacktestDays, r.cfg.BacktestLimit)
	if s.Trades == 0 {
		return r.notifier.SendWatchlist(ctx, r.cfg.WebhookWatchlist, title,
			[]string{"No trades found in journal."})
	}
	lines := []string{
		fmt.Sprintf("Win rate: %.1f%%", s.WinratePct),
		fmt.Sprintf("Avg R / trade: %.3f", s.AvgR),
		fmt.Sprintf("Expectancy (R): %.3f", s.AvgR),
		fmt.Sprintf("Max drawdown (R): %.3f", s.MaxDrawdownR),
		fmt.Sprintf("W/L/F: %d/%d/%d", s.Wins, s.Losses, s.Flats),
	}
	return r.notifier.SendWatchlist(ctx, r.cfg.WebhookWatchlist, title, lines)
}
