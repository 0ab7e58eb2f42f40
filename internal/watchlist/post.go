package watchlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/journal"
	"github.com/ictlabs/watchctl/internal/macroecon"
	"github.com/ictlabs/watchctl/internal/notify"
	"github.com/ictlabs/watchctl/internal/observability"
	"github.com/ictlabs/watchctl/internal/sectors"
)

const (
	snapshotRows = 20
	entryRows    = 5
)

// Poster assembles and delivers a complete watchlist run: the ranked list,
// macro and sector headers, the journal snapshot and the top entry alerts.
type Poster struct {
	cfg      config.Settings
	gen      *Generator
	notifier *notify.Client
	calendar *macroecon.Calendar
	fetcher  sectors.AggsFetcher
	store    *journal.Store
	now      func() time.Time
}

func NewPoster(cfg config.Settings, gen *Generator, notifier *notify.Client,
	calendar *macroecon.Calendar, fetcher sectors.AggsFetcher, store *journal.Store) *Poster {
	return &Poster{
		cfg:      cfg,
		gen:      gen,
		notifier: notifier,
		calendar: calendar,
		fetcher:  fetcher,
		store:    store,
		now:      time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (p *Poster) WithClock(now func() time.Time) *Poster {
	p.now = now
	return p
}

// Run generates and posts one watchlist of the given kind. Entry alerts are
// suppressed while a macro release is inside the blocking window; the
// watchlist itself always posts.
func (p *Poster) Run(ctx context.Context, kind string) error {
	setups, err := p.gen.Generate(ctx, kind)
	if err != nil {
		observability.RecordWatchlistRun(kind, "error")
		return fmt.Errorf("watchlist %s generation failed: %w", kind, err)
	}

	now := p.now().In(p.cfg.Location())
	events, blocking, err := p.calendar.TodayEvents(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("macro calendar unavailable")
	}
	macroLine := p.calendar.Header(events)
	sectorsLine := sectors.Header(ctx, p.fetcher)

	title := fmt.Sprintf("%s Watchlist – %s", titleCase(kind), now.Format("2006-01-02 15:04 PT"))
	lines := append([]string{macroLine, sectorsLine}, p.bodyLines(setups)...)
	if err := p.notifier.SendWatchlist(ctx, p.cfg.WebhookWatchlist, title, lines); err != nil {
		observability.RecordWatchlistRun(kind, "error")
		return fmt.Errorf("watchlist %s post failed: %w", kind, err)
	}

	if len(setups) > 0 {
		top := setups
		if len(top) > snapshotRows {
			top = top[:snapshotRows]
		}
		rows := make([]journal.Entry, 0, len(top))
		for _, s := range top {
			rows = append(rows, ToJournalEntry(kind, s, now))
		}
		if err := p.store.AppendAll(ctx, rows); err != nil {
			log.Error().Err(err).Msg("journal snapshot failed")
		}
	}

	if len(blocking) > 0 {
		log.Info().Int("events", len(blocking)).Msg("macro window active, entry alerts held")
		observability.RecordWatchlistRun(kind, "posted_blocked")
		return nil
	}

	entries := setups
	if len(entries) > entryRows {
		entries = entries[:entryRows]
	}
	for _, s := range entries {
		if err := p.notifier.SendEntryDetail(ctx, p.cfg.WebhookEntries, ToEntryDetail(s)); err != nil {
			log.Error().Err(err).Str("symbol", s.Symbol).Msg("entry alert failed")
			continue
		}
		if err := p.store.Append(ctx, ToJournalEntry("entry", s, now)); err != nil {
			log.Error().Err(err).Str("symbol", s.Symbol).Msg("entry journal failed")
		}
	}

	observability.RecordWatchlistRun(kind, "posted")
	return nil
}

func (p *Poster) bodyLines(setups []Setup) []string {
	if len(setups) == 0 {
		return []string{fmt.Sprintf("No Setups (min score %d, proj %d–%d%% over %dd)",
			int(p.cfg.MinScore), int(p.cfg.ProjMin*100), int(p.cfg.ProjMax*100), p.cfg.ProjDays)}
	}
	limit := len(setups)
	if limit > snapshotRows {
		limit = snapshotRows
	}
	lines := make([]string, 0, limit)
	for _, s := range setups[:limit] {
		lines = append(lines, FormatLine(s))
	}
	return lines
}

// FormatLine renders one watchlist row the way it appears on Discord.
func FormatLine(s Setup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s – Entry %.2f | Stop %.2f | T1 %.2f | Score %d",
		s.Symbol, strings.ToUpper(s.Direction), s.Entry, s.Stop, s.Targets[0], int(s.Score))
	fmt.Fprintf(&b, " • Proj:%.1f%%", s.ProjMovePct)
	if s.Pattern != "" {
		fmt.Fprintf(&b, " • %s", s.Pattern)
	}
	if s.Bias.EarningsSoon {
		fmt.Fprintf(&b, " • E:%s (%dd)", s.Bias.EarningsDate, s.Bias.EarningsDaysTo)
		if s.Bias.ERDir != "" {
			fmt.Fprintf(&b, " • ER:%s %d%%", s.Bias.ERDir, int(s.Bias.ERConf*100+0.5))
		}
	}
	return b.String()
}

// ToEntryDetail converts a setup into the entry alert payload.
func ToEntryDetail(s Setup) notify.EntryDetail {
	d := notify.EntryDetail{
		Symbol:      s.Symbol,
		Direction:   s.Direction,
		Entry:       s.Entry,
		Stop:        s.Stop,
		Targets:     s.Targets,
		Score:       s.Score,
		ProjMovePct: s.ProjMovePct,
		Bias: notify.Bias{
			DDOI:           s.Bias.DDOI,
			OpexWeek:       s.Bias.OpexWeek,
			EarningsSoon:   s.Bias.EarningsSoon,
			EarningsDate:   s.Bias.EarningsDate,
			EarningsDaysTo: s.Bias.EarningsDaysTo,
			ERDir:          s.Bias.ERDir,
			ERConf:         s.Bias.ERConf,
		},
	}
	if s.Option != nil {
		d.Option = &notify.Option{
			Type:    s.Option.Type,
			Strike:  s.Option.Strike,
			Expiry:  s.Option.Expiry,
			Delta:   s.Option.Delta,
			Premium: s.Option.Premium,
			ROIPct:  s.Option.ROIPct,
			DTE:     s.Option.DTE,
			Spread:  s.Option.Spread,
		}
	}
	return d
}

// ToJournalEntry flattens a setup into a journal row.
func ToJournalEntry(kind string, s Setup, now time.Time) journal.Entry {
	e := journal.Entry{
		TimestampPT: now.Format("2006-01-02 15:04:05"),
		Kind:        kind,
		Symbol:      s.Symbol,
		Direction:   s.Direction,
		Entry:       s.Entry,
		Stop:        s.Stop,
		Score:       s.Score,
		ProjMovePct: s.ProjMovePct,

		DDOI:           s.Bias.DDOI,
		OpexWeek:       s.Bias.OpexWeek,
		EarningsSoon:   s.Bias.EarningsSoon,
		EarningsDate:   s.Bias.EarningsDate,
		EarningsDaysTo: s.Bias.EarningsDaysTo,
		ERDir:          s.Bias.ERDir,
		ERConf:         s.Bias.ERConf,
		GexPeakStrike:  s.Bias.GexPeakStrike,
		GexPeakSide:    s.Bias.GexPeakSide,
		GexTotal:       s.Bias.GexTotal,
	}
	if len(s.Targets) == 4 {
		e.T1, e.T2, e.T3, e.T4 = s.Targets[0], s.Targets[1], s.Targets[2], s.Targets[3]
	}
	if s.Option != nil {
		e.OptionType = s.Option.Type
		e.OptionStrike = s.Option.Strike
		e.OptionExpiry = s.Option.Expiry
		e.OptionDelta = s.Option.Delta
		e.OptionPremium = s.Option.Premium
		e.OptionROIPct = s.Option.ROIPct
		e.OptionDTE = s.Option.DTE
		e.OptionSpread = s.Option.Spread
	}
	return e
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
