package pricing

import "math"

// SolverConfig bounds the bisection search.
type SolverConfig struct {
	LowerBound float64 // annualized decimal vol
	UpperBound float64
	Tolerance  float64 // on price difference
	MaxIter    int
}

// DefaultSolverConfig searches 0.0001%..500% annualized vol.
var DefaultSolverConfig = SolverConfig{
	LowerBound: 1e-9,
	UpperBound: 5.0,
	Tolerance:  1e-8,
	MaxIter:    500,
}

// Solver inverts a market price into an implied volatility by bisection on
// the Black-Scholes price. It never returns an error: quotes at or below
// intrinsic value (and expired contracts) resolve to zero vol, and an
// exhausted search returns the final bracket midpoint, best-effort.
type Solver struct {
	cfg SolverConfig
}

// NewSolver creates a Solver; with no config the defaults apply.
func NewSolver(cfg ...SolverConfig) *Solver {
	c := DefaultSolverConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	return &Solver{cfg: c}
}

// ImpliedVol returns the annualized decimal volatility that reprices the
// observed market price.
func (sv *Solver) ImpliedVol(marketPrice, s, k, t, r, q float64, call bool) float64 {
	if t <= 0 || marketPrice <= Intrinsic(s, k, call) {
		return 0.0
	}

	lo, hi := sv.cfg.LowerBound, sv.cfg.UpperBound
	for i := 0; i < sv.cfg.MaxIter; i++ {
		mid := 0.5 * (lo + hi)
		price := Price(s, k, t, r, mid, q, call)

		if math.Abs(price-marketPrice) < sv.cfg.Tolerance {
			return mid
		}
		if price > marketPrice {
			hi = mid
		} else {
			lo = mid
		}
	}
	return 0.5 * (lo + hi)
}
