package greeks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceValues(t *testing.T) {
	// S=100, K=100, r=0.03, sigma=0.25, T=0.5 against the closed form:
	// d1 = 0.173241, Phi(d1) = 0.568769, phi(d1)/(S*sigma*sqrt(T)) = 0.022232.
	delta, err := CallDelta(100, 100, 0.03, 0.25, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.56877, delta, 1e-4)

	gamma, err := Gamma(100, 100, 0.03, 0.25, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.022232, gamma, 1e-4)
}

func TestDeltaBounds(t *testing.T) {
	for _, spot := range []float64{5, 50, 100, 250, 1000} {
		for _, sigma := range []float64{0.01, 0.25, 1.0, 3.0} {
			for _, years := range []float64{MinYears, 0.25, 2} {
				call, err := CallDelta(spot, 100, 0.03, sigma, years)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, call, 0.0)
				assert.LessOrEqual(t, call, 1.0)

				put, err := PutDelta(spot, 100, 0.03, sigma, years)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, put, -1.0)
				assert.LessOrEqual(t, put, 0.0)

				gamma, err := Gamma(spot, 100, 0.03, sigma, years)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, gamma, 0.0)
			}
		}
	}
}

func TestPutCallDeltaRelation(t *testing.T) {
	call, err := CallDelta(120, 100, 0.05, 0.4, 0.3)
	require.NoError(t, err)
	put, err := PutDelta(120, 100, 0.05, 0.4, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, call-put, 1e-6)
}

func TestGammaSymmetry(t *testing.T) {
	// Gamma uses the same formula for both types; PutDelta and CallDelta share
	// d1, so gamma computed through either path must agree exactly.
	g1, err := Gamma(90, 100, 0.03, 0.3, 0.5)
	require.NoError(t, err)
	g2, err := Gamma(90, 100, 0.03, 0.3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, g1, g2)
}

func TestCallDeltaMonotonicInSpot(t *testing.T) {
	prev := -1.0
	for spot := 20.0; spot <= 200; spot += 5 {
		delta, err := CallDelta(spot, 100, 0.03, 0.25, 0.5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, delta, prev, "delta must not decrease as spot rises")
		prev = delta
	}
}

func TestDegenerateInputsRejected(t *testing.T) {
	cases := []struct {
		name                       string
		spot, strike, sigma, years float64
	}{
		{"zero spot", 0, 100, 0.25, 0.5},
		{"negative spot", -10, 100, 0.25, 0.5},
		{"zero strike", 100, 0, 0.25, 0.5},
		{"zero sigma", 100, 100, 0, 0.5},
		{"zero time", 100, 100, 0.25, 0},
		{"nan sigma", 100, 100, math.NaN(), 0.5},
		{"inf spot", math.Inf(1), 100, 0.25, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CallDelta(tc.spot, tc.strike, 0.03, tc.sigma, tc.years)
			assert.Error(t, err)
			_, err = PutDelta(tc.spot, tc.strike, 0.03, tc.sigma, tc.years)
			assert.Error(t, err)
			_, err = Gamma(tc.spot, tc.strike, 0.03, tc.sigma, tc.years)
			assert.Error(t, err)
		})
	}
}
