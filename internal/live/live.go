// Package live watches ranked setups intraday and fires entry alerts when
// price tags an entry level.
package live

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ictlabs/watchctl/internal/config"
	"github.com/ictlabs/watchctl/internal/journal"
	"github.com/ictlabs/watchctl/internal/macroecon"
	"github.com/ictlabs/watchctl/internal/notify"
	"github.com/ictlabs/watchctl/internal/watchlist"
)

var ErrBadClock = errors.New("live: session clock must be HH:MM")

const idleSleep = 30 * time.Second

// Clock is a minutes-since-midnight wall time in the configured location.
type Clock int

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return Clock(hh*60 + mm), nil
}

func clockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// InSession reports whether t falls on a weekday inside [start, end).
func InSession(t time.Time, start, end Clock) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	c := clockOf(t)
	return c >= start && c < end
}

// Triggered reports whether price has tagged the entry, with tolerance:
// longs trigger when price pulls back to within tol below entry, shorts the
// mirror image.
func Triggered(price, entry float64, direction string, tol float64) bool {
	if price <= 0 {
		return false
	}
	if direction == "long" {
		return price >= entry*(1.0-tol)
	}
	return price <= entry*(1.0+tol)
}

// Monitor polls last prices for the top ranked setups and posts each entry
// at most once.
type Monitor struct {
	cfg      config.Settings
	gen      *watchlist.Generator
	md       watchlist.MarketData
	notifier *notify.Client
	calendar *macroecon.Calendar
	store    *journal.Store
	now      func() time.Time
}

func NewMonitor(cfg config.Settings, gen *watchlist.Generator, md watchlist.MarketData,
	notifier *notify.Client, calendar *macroecon.Calendar, store *journal.Store) *Monitor {
	return &Monitor{
		cfg:      cfg,
		gen:      gen,
		md:       md,
		notifier: notifier,
		calendar: calendar,
		store:    store,
		now:      time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Run generates the watch set once and polls until every symbol has fired
// or the context ends.
func (m *Monitor) Run(ctx context.Context) error {
	start, err := ParseClock(m.cfg.LiveStartPT)
	if err != nil {
		return err
	}
	end, err := ParseClock(m.cfg.LiveEndPT)
	if err != nil {
		return err
	}

	setups, err := m.gen.Generate(ctx, "premarket")
	if err != nil {
		return fmt.Errorf("live watch set generation failed: %w", err)
	}
	if len(setups) > m.cfg.LiveMaxSymbols {
		setups = setups[:m.cfg.LiveMaxSymbols]
	}
	if len(setups) == 0 {
		log.Info().Msg("live: no setups to monitor")
		return nil
	}

	tol := m.cfg.LiveTolerance()
	poll := time.Duration(m.cfg.LivePollSec) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}
	log.Info().Int("symbols", len(setups)).Float64("tolerance", tol).
		Dur("poll", poll).Msg("live monitor started")

	posted := make(map[string]bool, len(setups))
	loc := m.cfg.Location()
	for {
		now := m.now().In(loc)
		switch {
		case !InSession(now, start, end):
			if err := sleep(ctx, idleSleep); err != nil {
				return nil
			}
			continue
		case m.macroBlocked(ctx, now):
			if err := sleep(ctx, poll); err != nil {
				return nil
			}
			continue
		}

		for _, s := range setups {
			if posted[s.Symbol] {
				continue
			}
			price, err := m.lastPrice(ctx, s.Symbol)
			if err != nil {
				log.Debug().Err(err).Str("symbol", s.Symbol).Msg("live price unavailable")
				continue
			}
			if !Triggered(price, s.Entry, s.Direction, tol) {
				continue
			}
			m.fire(ctx, s, now)
			posted[s.Symbol] = true
		}

		if len(posted) == len(setups) {
			log.Info().Msg("live monitor finished, all symbols triggered")
			return nil
		}
		if err := sleep(ctx, poll); err != nil {
			return nil
		}
	}
}

func (m *Monitor) macroBlocked(ctx context.Context, now time.Time) bool {
	_, blocking, err := m.calendar.TodayEvents(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("macro calendar unavailable")
		return false
	}
	return len(blocking) > 0
}

// lastPrice reads the newest close from a 15 minute window of 1m bars.
// Millisecond bounds keep the request to the window instead of a full day.
func (m *Monitor) lastPrice(ctx context.Context, sym string) (float64, error) {
	to := m.now().UTC()
	from := to.Add(-15 * time.Minute)
	bars, err := m.md.Aggs(ctx, sym, 1, "minute",
		strconv.FormatInt(from.UnixMilli(), 10), strconv.FormatInt(to.UnixMilli(), 10))
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, errors.New("live: no recent bars")
	}
	return bars.LastClose(), nil
}

func (m *Monitor) fire(ctx context.Context, s watchlist.Setup, now time.Time) {
	if err := m.notifier.SendEntryDetail(ctx, m.cfg.WebhookEntries, watchlist.ToEntryDetail(s)); err != nil {
		log.Error().Err(err).Str("symbol", s.Symbol).Msg("live entry alert failed")
	}
	if err := m.store.Append(ctx, watchlist.ToJournalEntry("entry-live", s, now)); err != nil {
		log.Error().Err(err).Str("symbol", s.Symbol).Msg("live entry journal failed")
	}
	log.Info().Str("symbol", s.Symbol).Str("direction", s.Direction).
		Float64("entry", s.Entry).Msg("live entry triggered")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
