// Package notify delivers watchlist and entry messages to Discord webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ictlabs/watchctl/internal/observability"
)

var ErrNoWebhook = errors.New("notify: webhook url is not configured")

const footerDisclaimer = "Not financial advice"

// Client posts embed payloads to Discord webhooks.
type Client struct {
	httpc *http.Client
}

func NewClient() *Client {
	return &Client{httpc: &http.Client{Timeout: 20 * time.Second}}
}

// WithHTTPClient swaps the transport. Test hook.
func (c *Client) WithHTTPClient(httpc *http.Client) *Client {
	c.httpc = httpc
	return c
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type footer struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Fields      []field `json:"fields,omitempty"`
	Footer      *footer `json:"footer,omitempty"`
}

type message struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Bias carries the flags rendered on entry embeds.
type Bias struct {
	DDOI           string
	OpexWeek       bool
	EarningsSoon   bool
	EarningsDate   string
	EarningsDaysTo int
	ERDir          string
	ERConf         float64
}

// Option is the selected contract line for an entry embed.
type Option struct {
	Type    string
	Strike  float64
	Expiry  string
	Delta   float64
	Premium float64
	ROIPct  float64
	DTE     int
	Spread  float64
}

// EntryDetail is a triggered or ranked setup rendered as an entry alert.
type EntryDetail struct {
	Symbol      string
	Direction   string
	Entry       float64
	Stop        float64
	Targets     []float64
	Score       float64
	ProjMovePct float64
	Bias        Bias
	Option      *Option
}

// SendWatchlist posts the ranked watchlist with one numbered field per line.
func (c *Client) SendWatchlist(ctx context.Context, webhook, title string, lines []string) error {
	fields := make([]field, 0, len(lines))
	for i, line := range lines {
		fields = append(fields, field{Name: fmt.Sprintf("%d.", i+1), Value: line})
	}
	msg := message{
		Username: "ICT Watchlists 👀",
		Embeds: []embed{{
			Title:  title,
			Fields: fields,
			Footer: &footer{Text: footerDisclaimer},
		}},
	}
	return c.post(ctx, "watchlist", webhook, msg)
}

// SendEntryDetail posts a full entry alert for one setup.
func (c *Client) SendEntryDetail(ctx context.Context, webhook string, e EntryDetail) error {
	r := e.Entry - e.Stop
	if r < 0 {
		r = -r
	}
	fields := []field{
		{Name: "Entry/Stop", Value: fmt.Sprintf("%.2f / %.2f (1R=%.2f)", e.Entry, e.Stop, r)},
		{Name: "Targets", Value: targetsLine(e.Targets)},
		{Name: "Score/Proj", Value: fmt.Sprintf("%d • %.1f%%", int(e.Score), e.ProjMovePct)},
	}
	if line := biasLine(e.Bias); line != "" {
		fields = append(fields, field{Name: "Bias", Value: line})
	}
	if e.Option != nil {
		fields = append(fields, field{Name: "Option", Value: optionLine(*e.Option)})
	}

	msg := message{
		Username: "ICT Entries 🚨",
		Embeds: []embed{{
			Title:  fmt.Sprintf("ENTRY – %s %s", e.Symbol, strings.ToUpper(e.Direction)),
			Fields: fields,
			Footer: &footer{Text: "Scale: 50/25/15/10 at T1–T4"},
		}},
	}
	return c.post(ctx, "entries", webhook, msg)
}

// SendMacroUpdate posts the standalone macro + sectors message.
func (c *Client) SendMacroUpdate(ctx context.Context, webhook, title, macroLine, sectorsLine string) error {
	msg := message{
		Username: "Macro Bot 🗓️",
		Embeds: []embed{{
			Title: title,
			Fields: []field{
				{Name: "Macro", Value: macroLine},
				{Name: "Sectors", Value: sectorsLine},
			},
			Footer: &footer{Text: footerDisclaimer},
		}},
	}
	return c.post(ctx, "macro", webhook, msg)
}

func targetsLine(targets []float64) string {
	if len(targets) == 0 {
		return "n/a"
	}
	parts := make([]string, 0, len(targets))
	for i, t := range targets {
		parts = append(parts, fmt.Sprintf("T%d %.2f", i+1, t))
	}
	return strings.Join(parts, " | ")
}

func biasLine(b Bias) string {
	var parts []string
	if b.DDOI != "" {
		parts = append(parts, "DDOI:"+b.DDOI)
	}
	if b.OpexWeek {
		parts = append(parts, "OPEX week")
	}
	if b.EarningsSoon {
		er := fmt.Sprintf("E:%s (%dd)", b.EarningsDate, b.EarningsDaysTo)
		if b.ERDir != "" {
			er += fmt.Sprintf(" • ER:%s %d%%", b.ERDir, int(b.ERConf*100+0.5))
		}
		parts = append(parts, er)
	}
	return strings.Join(parts, " • ")
}

func optionLine(o Option) string {
	return fmt.Sprintf("%s %.2f exp %s • Δ%.2f • $%.2f • ROI %.1f%% • %dd • spr %.3f",
		o.Type, o.Strike, o.Expiry, o.Delta, o.Premium, o.ROIPct, o.DTE, o.Spread)
}

func (c *Client) post(ctx context.Context, channel, webhook string, msg message) error {
	if strings.TrimSpace(webhook) == "" {
		return ErrNoWebhook
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify payload marshal failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		observability.RecordDiscordPost(channel, false)
		return fmt.Errorf("notify post failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.RecordDiscordPost(channel, false)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("notify post failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	observability.RecordDiscordPost(channel, true)
	return nil
}
