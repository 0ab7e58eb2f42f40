package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ictlabs/watchctl/internal/market"
	"github.com/ictlabs/watchctl/internal/observability"
)

const defaultBaseURL = "https://api.polygon.io"

var (
	ErrMissingAPIKey = errors.New("polygon: api key is required")
	ErrBadStatus     = errors.New("polygon: unexpected response status")
)

// Client is a minimal Polygon REST client covering aggregates, option chain
// snapshots and upcoming earnings dates.
type Client struct {
	key     string
	baseURL string
	httpc   *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at an alternate API host. Test hook.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func NewClient(key string, opts ...Option) (*Client, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		key:     key,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type aggsResponse struct {
	Results []struct {
		T int64   `json:"t"` // ms epoch
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

// Aggs fetches OHLCV aggregates for a ticker over a date range. Timestamps
// in the returned series are UTC.
func (c *Client) Aggs(ctx context.Context, ticker string, multiplier int, timespan, from, to string) (market.Bars, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		strings.ToUpper(ticker), multiplier, timespan, from, to)
	params := url.Values{
		"adjusted": {"true"},
		"sort":     {"asc"},
		"limit":    {"50000"},
	}

	var resp aggsResponse
	if err := c.get(ctx, "aggs", path, params, &resp); err != nil {
		return nil, err
	}

	bars := make(market.Bars, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, market.Bar{
			Time:   time.UnixMilli(r.T).UTC(),
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	return bars, nil
}

// OptionsChain fetches the option chain snapshot for a ticker.
func (c *Client) OptionsChain(ctx context.Context, ticker string) (Chain, error) {
	path := "/v3/snapshot/options/" + strings.ToUpper(ticker)
	params := url.Values{"limit": {"1000"}}

	var chain Chain
	if err := c.get(ctx, "options_chain", path, params, &chain); err != nil {
		return Chain{}, err
	}
	return chain, nil
}

type earningsResponse struct {
	Results []struct {
		ReportDate string `json:"report_date"`
	} `json:"results"`
}

// NextEarningsDate returns the next scheduled report date as YYYY-MM-DD, or
// "" when none is published.
func (c *Client) NextEarningsDate(ctx context.Context, ticker string) (string, error) {
	params := url.Values{
		"ticker":          {strings.ToUpper(ticker)},
		"order":           {"asc"},
		"sort":            {"report_date"},
		"limit":           {"1"},
		"report_date.gte": {time.Now().UTC().Format("2006-01-02")},
	}

	var resp earningsResponse
	if err := c.get(ctx, "earnings", "/v3/reference/earnings", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ReportDate, nil
}

// KeyCheck performs a cheap aggregates request to verify the configured key.
func (c *Client) KeyCheck(ctx context.Context) error {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -5)
	_, err := c.Aggs(ctx, "AAPL", 1, "day", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return err
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	params.Set("apiKey", c.key)
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("polygon request build failed: %w", err)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		observability.RecordPolygonRequest(endpoint, 0, time.Since(start))
		return fmt.Errorf("polygon %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	observability.RecordPolygonRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s %s: %s",
			ErrBadStatus, endpoint, strconv.Itoa(resp.StatusCode), strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("polygon %s decode failed: %w", endpoint, err)
	}
	return nil
}
