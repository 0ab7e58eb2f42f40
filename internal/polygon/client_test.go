package polygon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func TestNewClientRequiresKey(t *testing.T) {
	testlog.Start(t)
	if _, err := NewClient("  "); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestAggsDecodesBars(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/aggs/ticker/AAPL/range/5/minute/2025-06-01/2025-06-02" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("apiKey") != "pk_test" {
			t.Errorf("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"t":1748800800000,"o":10,"h":11,"l":9,"c":10.5,"v":1000},
			{"t":1748801100000,"o":10.5,"h":12,"l":10,"c":11.5,"v":1200}
		]}`))
	}))
	defer srv.Close()

	c, err := NewClient("pk_test", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	bars, err := c.Aggs(context.Background(), "aapl", 5, "minute", "2025-06-01", "2025-06-02")
	if err != nil {
		t.Fatalf("aggs failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("unexpected bar count: %d", len(bars))
	}
	if bars[1].Close != 11.5 || bars[0].Volume != 1000 {
		t.Fatalf("bad decode: %+v", bars)
	}
	if bars[0].Time.Location().String() != "UTC" {
		t.Fatalf("bars must be UTC, got %v", bars[0].Time.Location())
	}
}

func TestAggsBadStatus(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"ERROR"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := NewClient("pk_test", WithBaseURL(srv.URL))
	_, err := c.Aggs(context.Background(), "AAPL", 1, "day", "2025-06-01", "2025-06-02")
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
}

func TestOptionsChainGreeksPresence(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"details":{"contract_type":"call","strike_price":100,"expiration_date":"2025-06-20"},
			 "last_quote":{"bid":1.0,"ask":1.1},
			 "greeks":{"delta":0.35,"gamma":0.02},
			 "open_interest":1500},
			{"details":{"contract_type":"put","strike_price":95,"expiration_date":"2025-06-20"},
			 "last_quote":{"bid":0.8,"ask":0.9},
			 "open_interest":900}
		]}`))
	}))
	defer srv.Close()

	c, _ := NewClient("pk_test", WithBaseURL(srv.URL))
	chain, err := c.OptionsChain(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if len(chain.Results) != 2 {
		t.Fatalf("unexpected contract count: %d", len(chain.Results))
	}
	if chain.Results[0].Greeks.Delta == nil || *chain.Results[0].Greeks.Delta != 0.35 {
		t.Fatalf("delta missing: %+v", chain.Results[0].Greeks)
	}
	if chain.Results[1].Greeks.Gamma != nil {
		t.Fatal("absent greeks must decode as nil")
	}
	if !chain.Results[0].IsCall() || !chain.Results[1].IsPut() {
		t.Fatal("contract type classification failed")
	}
}

func TestNextEarningsDate(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ticker") != "AAPL" {
			t.Errorf("unexpected ticker: %s", r.URL.Query().Get("ticker"))
		}
		w.Write([]byte(`{"results":[{"report_date":"2025-07-31"}]}`))
	}))
	defer srv.Close()

	c, _ := NewClient("pk_test", WithBaseURL(srv.URL))
	date, err := c.NextEarningsDate(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("earnings failed: %v", err)
	}
	if date != "2025-07-31" {
		t.Fatalf("unexpected date: %q", date)
	}
}

func TestQuoteMidAndSpread(t *testing.T) {
	testlog.Start(t)
	q := Quote{Bid: 1.0, Ask: 1.2}
	if q.Mid() != 1.1 {
		t.Fatalf("mid = %v", q.Mid())
	}
	if got := q.SpreadPct(); got < 0.18 || got > 0.19 {
		t.Fatalf("spread = %v", got)
	}
	bad := Quote{Bid: 1.2, Ask: 1.0}
	if bad.Mid() != 0 {
		t.Fatal("crossed quote must have no mid")
	}
	if bad.SpreadPct() != 1.0 {
		t.Fatal("crossed quote must fail spread filters")
	}
}
