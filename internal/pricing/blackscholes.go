// Package pricing implements the Black-Scholes-Merton option pricer, its
// analytic Greeks, and a bisection implied-volatility solver.
package pricing

import "math"

// Greeks holds the analytic sensitivities of an option. Theta is per
// calendar day; Vega and Rho are per one percentage point of vol/rate.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// normCDF is the standard normal CDF via the error function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// Intrinsic returns the exercise value of the option.
func Intrinsic(s, k float64, call bool) float64 {
	if call {
		return math.Max(0, s-k)
	}
	return math.Max(0, k-s)
}

// Price computes the Black-Scholes-Merton theoretical price.
//
//	s     underlying price
//	k     strike
//	t     time to expiry in years
//	r     risk-free rate, annualized decimal
//	sigma volatility, annualized decimal
//	q     continuous dividend yield, decimal
//
// With t<=0 the option is worth its intrinsic value. Callers guarantee
// s,k>0 and sigma>0 when t>0.
func Price(s, k, t, r, sigma, q float64, call bool) float64 {
	if t <= 0 {
		return Intrinsic(s, k, call)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	eqt := math.Exp(-q * t)
	ert := math.Exp(-r * t)

	if call {
		return s*eqt*normCDF(d1) - k*ert*normCDF(d2)
	}
	return k*ert*normCDF(-d2) - s*eqt*normCDF(-d1)
}

// ComputeGreeks returns the analytic Greeks. All Greeks are zero at or past
// expiry. Theta is scaled to per calendar day (365), Vega to a 1pp vol move,
// Rho to a 1pp rate move.
func ComputeGreeks(s, k, t, r, sigma, q float64, call bool) Greeks {
	if t <= 0 {
		return Greeks{}
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	eqt := math.Exp(-q * t)
	ert := math.Exp(-r * t)

	var delta float64
	if call {
		delta = eqt * normCDF(d1)
	} else {
		delta = -eqt * normCDF(-d1)
	}

	gamma := eqt * normPDF(d1) / (s * sigma * sqrtT)

	decay := -(s * normPDF(d1) * sigma * eqt) / (2 * sqrtT)
	var theta float64
	if call {
		theta = (decay - r*k*ert*normCDF(d2) + q*s*eqt*normCDF(d1)) / 365.0
	} else {
		theta = (decay + r*k*ert*normCDF(-d2) - q*s*eqt*normCDF(-d1)) / 365.0
	}

	vega := s * eqt * normPDF(d1) * sqrtT / 100.0

	var rho float64
	if call {
		rho = k * t * ert * normCDF(d2) / 100.0
	} else {
		rho = -k * t * ert * normCDF(-d2) / 100.0
	}

	return Greeks{Delta: delta, Gamma: gamma, Theta: theta, Vega: vega, Rho: rho}
}
