package polygon

// Chain is the /v3/snapshot/options payload.
type Chain struct {
	Results []Contract `json:"results"`
}

// Contract is one option contract snapshot. Greeks fields are pointers,
// contracts without greeks are common and must be distinguishable from zero.
type Contract struct {
	Details      ContractDetails `json:"details"`
	LastQuote    Quote           `json:"last_quote"`
	Greeks       Greeks          `json:"greeks"`
	OpenInterest float64         `json:"open_interest"`
}

type ContractDetails struct {
	ContractType   string  `json:"contract_type"`
	StrikePrice    float64 `json:"strike_price"`
	ExpirationDate string  `json:"expiration_date"`
}

type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

type Greeks struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	IV    *float64 `json:"iv"`
}

// Mid returns the quote midpoint, or 0 when the quote is unusable.
func (q Quote) Mid() float64 {
	if q.Bid <= 0 || q.Ask <= 0 || q.Ask < q.Bid {
		return 0
	}
	return 0.5 * (q.Bid + q.Ask)
}

// SpreadPct is the relative bid/ask spread against the midpoint. Unusable
// quotes report a spread wide enough to fail any filter.
func (q Quote) SpreadPct() float64 {
	mid := q.Mid()
	if mid <= 0 {
		return 1.0
	}
	return (q.Ask - q.Bid) / mid
}

// IsCall reports whether the contract is a call. Anything else is treated
// as a put by the bias math (call +1, put -1).
func (c Contract) IsCall() bool {
	t := c.Details.ContractType
	return len(t) > 0 && (t[0] == 'c' || t[0] == 'C')
}

// IsPut reports whether the contract is explicitly a put.
func (c Contract) IsPut() bool {
	t := c.Details.ContractType
	return len(t) > 0 && (t[0] == 'p' || t[0] == 'P')
}
