// Package greeks implements the closed-form Black-Scholes delta and gamma for
// European options.
package greeks

import (
	"fmt"
	"math"
)

// MinYears is the floor applied to time-to-expiry, one calendar day expressed
// in years. Callers floor T before calling to avoid division by zero at expiry.
const MinYears = 1.0 / 365.0

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// normCDF is the standard normal cumulative distribution.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func d1(spot, strike, rate, sigma, years float64) float64 {
	return (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*years) / (sigma * math.Sqrt(years))
}

func validate(spot, strike, sigma, years float64) error {
	switch {
	case !(spot > 0) || math.IsInf(spot, 0):
		return fmt.Errorf("spot must be positive and finite, got %v", spot)
	case !(strike > 0) || math.IsInf(strike, 0):
		return fmt.Errorf("strike must be positive and finite, got %v", strike)
	case !(sigma > 0) || math.IsInf(sigma, 0):
		return fmt.Errorf("sigma must be positive and finite, got %v", sigma)
	case !(years > 0) || math.IsInf(years, 0):
		return fmt.Errorf("years must be positive and finite, got %v", years)
	}
	return nil
}

// CallDelta returns Phi(d1), in [0,1].
func CallDelta(spot, strike, rate, sigma, years float64) (float64, error) {
	if err := validate(spot, strike, sigma, years); err != nil {
		return 0, err
	}
	return normCDF(d1(spot, strike, rate, sigma, years)), nil
}

// PutDelta returns the signed put delta, Phi(d1)-1, in [-1,0].
func PutDelta(spot, strike, rate, sigma, years float64) (float64, error) {
	delta, err := CallDelta(spot, strike, rate, sigma, years)
	if err != nil {
		return 0, err
	}
	return delta - 1, nil
}

// Gamma is identical for calls and puts: phi(d1) / (S * sigma * sqrt(T)).
func Gamma(spot, strike, rate, sigma, years float64) (float64, error) {
	if err := validate(spot, strike, sigma, years); err != nil {
		return 0, err
	}
	return normPDF(d1(spot, strike, rate, sigma, years)) / (spot * sigma * math.Sqrt(years)), nil
}
