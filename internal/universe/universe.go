// Package universe resolves the symbol list the watchlist scans.
package universe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultSymbols is used when no universe file is configured or present.
var DefaultSymbols = []string{
	"SPY", "QQQ", "IWM",
	"AAPL", "MSFT", "NVDA", "AMZN", "META", "TSLA", "GOOGL",
	"AMD", "NFLX", "BA", "JPM", "INTC",
}

type fileUniverse struct {
	Symbols []string `toml:"symbols"`
}

// Load returns the universe from the TOML file at path when it exists,
// otherwise the default list. Symbols are uppercased and de-duplicated with
// order preserved.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return normalize(DefaultSymbols), nil
		}
		return nil, fmt.Errorf("universe load failed (%s): %w", path, err)
	}

	var u fileUniverse
	if err := toml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("universe parse failed (%s): %w", path, err)
	}
	if len(u.Symbols) == 0 {
		return normalize(DefaultSymbols), nil
	}
	return normalize(u.Symbols), nil
}

func normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || strings.HasPrefix(sym, "#") {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
