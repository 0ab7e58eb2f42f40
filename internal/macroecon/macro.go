// Package macroecon reads the economic-calendar ICS feed and decides when
// high-impact releases should block entry alerts.
package macroecon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Keywords mark the releases that matter to the blocking window.
var keywords = []string{
	"CPI", "Consumer Price Index",
	"Core CPI",
	"PPI", "Producer Price Index",
	"Core PPI",
	"PCE", "Core PCE",
	"Nonfarm", "NFP", "Employment Situation", "Unemployment Rate",
	"FOMC", "Fed Interest Rate", "Federal Funds Rate", "Fed Statement",
	"FOMC Minutes", "Fed Chair", "Powell Press Conference",
	"ISM Services", "ISM Manufacturing",
}

var keywordRE = func() *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
}()

// Event is a calendar entry already converted to the configured location.
type Event struct {
	Title string
	Start time.Time
}

// Calendar fetches and filters the macro events feed.
type Calendar struct {
	url          string
	loc          *time.Location
	blockWindow  time.Duration
	blockEnabled bool
	httpc        *http.Client
}

func NewCalendar(url string, loc *time.Location, blockMin int, blockEnabled bool) *Calendar {
	return &Calendar{
		url:          strings.TrimSpace(url),
		loc:          loc,
		blockWindow:  time.Duration(blockMin) * time.Minute,
		blockEnabled: blockEnabled,
		httpc:        &http.Client{Timeout: 20 * time.Second},
	}
}

// WithHTTPClient swaps the transport. Test hook.
func (c *Calendar) WithHTTPClient(httpc *http.Client) *Calendar {
	c.httpc = httpc
	return c
}

// TodayEvents returns today's keyword-matched events and the subset whose
// start lies within the blocking window of now. An unconfigured feed yields
// empty results, never an error; the watchlist must post either way.
func (c *Calendar) TodayEvents(ctx context.Context, now time.Time) (events, blocking []Event, err error) {
	if c.url == "" {
		return nil, nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("macro feed request build failed: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("macro feed fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("macro feed fetch failed: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("macro feed read failed: %w", err)
	}

	now = now.In(c.loc)
	for _, ev := range ParseICS(string(raw), c.loc) {
		if ev.Start.Year() != now.Year() || ev.Start.YearDay() != now.YearDay() {
			continue
		}
		events = append(events, ev)
		if c.blockEnabled && c.blockWindow > 0 {
			delta := ev.Start.Sub(now)
			if delta < 0 {
				delta = -delta
			}
			if delta <= c.blockWindow {
				blocking = append(blocking, ev)
			}
		}
	}
	return events, blocking, nil
}

// Header renders the one-line macro summary for watchlist posts.
func (c *Calendar) Header(events []Event) string {
	if len(events) == 0 {
		return "Macro: none"
	}
	limit := len(events)
	if limit > 4 {
		limit = 4
	}
	parts := make([]string, 0, limit+1)
	for _, ev := range events[:limit] {
		parts = append(parts, fmt.Sprintf("%s @ %s PT", ev.Title, clockLabel(ev.Start)))
	}
	if len(events) > 4 {
		parts = append(parts, fmt.Sprintf("+%d more", len(events)-4))
	}
	line := "Macro: " + strings.Join(parts, "; ")
	if c.blockEnabled && c.blockWindow > 0 {
		line += fmt.Sprintf(" (block ±%dm)", int(c.blockWindow.Minutes()))
	}
	return line
}

// clockLabel formats 05:30 as "5:30am" and 05:00 as "5am".
func clockLabel(t time.Time) string {
	label := strings.ToLower(t.Format("3:04PM"))
	return strings.Replace(label, ":00", "", 1)
}

// ParseICS extracts keyword-matched events from an ICS document, unfolding
// continuation lines and honoring DTSTART TZID parameters.
func ParseICS(raw string, loc *time.Location) []Event {
	lines := unfold(strings.Split(raw, "\n"))

	var events []Event
	inEvent := false
	var summary, dtstart, tzid string
	for _, ln := range lines {
		switch {
		case ln == "BEGIN:VEVENT":
			inEvent = true
			summary, dtstart, tzid = "", "", ""
		case ln == "END:VEVENT":
			inEvent = false
			if summary == "" || !keywordRE.MatchString(summary) {
				continue
			}
			start, ok := parseICSTime(dtstart, tzid, loc)
			if !ok {
				continue
			}
			events = append(events, Event{Title: summary, Start: start})
		case !inEvent:
		case strings.HasPrefix(ln, "DTSTART;TZID="):
			rest := strings.TrimPrefix(ln, "DTSTART;TZID=")
			if idx := strings.Index(rest, ":"); idx >= 0 {
				tzid = rest[:idx]
				dtstart = strings.TrimSpace(rest[idx+1:])
			}
		case strings.HasPrefix(ln, "DTSTART:"):
			dtstart = strings.TrimSpace(strings.TrimPrefix(ln, "DTSTART:"))
			tzid = ""
		case strings.HasPrefix(ln, "SUMMARY:"):
			summary = strings.TrimSpace(strings.TrimPrefix(ln, "SUMMARY:"))
		}
	}
	return events
}

func unfold(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimRight(ln, "\r")
		if (strings.HasPrefix(ln, " ") || strings.HasPrefix(ln, "\t")) && len(out) > 0 {
			out[len(out)-1] += strings.TrimSpace(ln)
			continue
		}
		out = append(out, ln)
	}
	return out
}

func parseICSTime(raw, tzid string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(raw, "Z") {
		t, err := time.Parse("20060102T150405Z", raw)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(loc), true
	}

	layout := "20060102T150405"
	if len(raw) == 13 {
		layout = "20060102T1504"
	}
	src := time.UTC
	if tzid != "" {
		if parsed, err := time.LoadLocation(tzid); err == nil {
			src = parsed
		}
	}
	t, err := time.ParseInLocation(layout, raw, src)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}
