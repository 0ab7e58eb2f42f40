package sectors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ictlabs/watchctl/internal/market"
	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

type fakeFetcher struct {
	closes map[string][2]float64
}

func (f *fakeFetcher) Aggs(ctx context.Context, ticker string, multiplier int, timespan, from, to string) (market.Bars, error) {
	c, ok := f.closes[ticker]
	if !ok {
		return nil, errors.New("no data")
	}
	return market.Bars{
		{Close: c[0]},
		{Close: c[1]},
	}, nil
}

func TestHeaderArrows(t *testing.T) {
	testlog.Start(t)
	f := &fakeFetcher{closes: map[string][2]float64{
		"XLK": {100, 101},   // +1% up arrow
		"XLE": {100, 99},    // -1% down arrow
		"XLF": {100, 100.1}, // +0.1% flat
	}}
	header := Header(context.Background(), f)
	if !strings.HasPrefix(header, "Sectors: ") {
		t.Fatalf("unexpected header: %q", header)
	}
	if !strings.Contains(header, "Tech↑") {
		t.Fatalf("missing up arrow: %q", header)
	}
	if !strings.Contains(header, "Energy↓") {
		t.Fatalf("missing down arrow: %q", header)
	}
	if !strings.Contains(header, "Fin–") {
		t.Fatalf("missing flat marker: %q", header)
	}
	// sectors without data render a placeholder
	if !strings.Contains(header, "CommSvcs·") {
		t.Fatalf("missing placeholder: %q", header)
	}
}
