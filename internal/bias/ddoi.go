package bias

import "github.com/ictlabs/watchctl/internal/polygon"

// DDOI is a dealer-directional positioning proxy summed over an option
// chain snapshot: calls count +1, puts -1.
type DDOI struct {
	NetGex   float64
	NetDelta float64
}

// Tilt buckets the net delta into "pos", "neg" or "flat".
func (d DDOI) Tilt() string {
	switch {
	case d.NetDelta > 0:
		return "pos"
	case d.NetDelta < 0:
		return "neg"
	default:
		return "flat"
	}
}

// DDOIFromChain computes the proxy from a chain snapshot. Contracts without
// greeks contribute nothing.
func DDOIFromChain(chain polygon.Chain) DDOI {
	var out DDOI
	for _, c := range chain.Results {
		sign := 1.0
		if !c.IsCall() {
			sign = -1.0
		}
		if c.Greeks.Gamma != nil {
			out.NetGex += *c.Greeks.Gamma * c.OpenInterest * sign
		}
		if c.Greeks.Delta != nil {
			out.NetDelta += *c.Greeks.Delta * c.OpenInterest * sign
		}
	}
	return out
}
