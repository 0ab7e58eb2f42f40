package observability

import (
	"testing"
	"time"

	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
	RecordWatchlistRun("premarket", "ok")
	RecordSymbolAnalyzed("setup")
	RecordDiscordPost("watchlist", true)
	RecordPolygonRequest("aggs", 200, 24*time.Millisecond)
}
