package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econopulse/optionpulse/internal/domain/models"
	"github.com/econopulse/optionpulse/pkg/logger"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu         sync.Mutex
	chains     map[string]*models.OptionChain
	chainErr   map[string]error
	actives    []string
	activesErr error
	fetched    []string
}

func (f *fakeProvider) OptionChain(_ context.Context, symbol string) (*models.OptionChain, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, symbol)
	f.mu.Unlock()

	if err, ok := f.chainErr[symbol]; ok {
		return nil, err
	}
	if c, ok := f.chains[symbol]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no chain for %s", symbol)
}

func (f *fakeProvider) MostActives(_ context.Context, _ int) ([]string, error) {
	return f.actives, f.activesErr
}

type noopMetrics struct{}

func (noopMetrics) RecordChainFetch(string)      {}
func (noopMetrics) RecordContracts(int)          {}
func (noopMetrics) RecordRateLimited(string)     {}
func (noopMetrics) RecordSnapshot(string)        {}
func (noopMetrics) RecordError(string)           {}
func (noopMetrics) RecordLatency(string, float64) {}

func newTestScreener(t *testing.T, provider *fakeProvider, opts ...ScreenerOption) *Screener {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	s := NewScreener(provider, noopMetrics{}, log, opts...)
	s.batchDelay = 0
	s.now = func() time.Time { return fixedNow }
	return s
}

func ptr(v float64) *float64 { return &v }

func futureExpiry(days int) int64 {
	return fixedNow.AddDate(0, 0, days).Unix()
}

func simpleChain(symbol string, spot float64, calls []models.RawOption, puts []models.RawOption) *models.OptionChain {
	return &models.OptionChain{
		Symbol: symbol,
		Spot:   spot,
		Blocks: []models.ExpirationBlock{
			{Expiry: futureExpiry(30), Calls: calls, Puts: puts},
		},
	}
}

func TestBuildUniverseOrderDedupeCap(t *testing.T) {
	provider := &fakeProvider{actives: []string{"NVDA", "PLTR", "aapl"}}
	s := newTestScreener(t, provider,
		WithDefaults([]string{"AAPL", "MSFT"}),
		WithMaxUniverse(4),
	)

	got := s.buildUniverse(context.Background(), []string{"msft", "COIN", "IGNORED"})
	// Defaults first, then actives, then user symbols, duplicates skipped,
	// capped at 4 before COIN's slot runs out.
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "PLTR"}, got)
}

func TestBuildUniverseActivesFailureTolerated(t *testing.T) {
	provider := &fakeProvider{activesErr: errors.New("upstream down")}
	s := newTestScreener(t, provider, WithDefaults([]string{"SPY", "QQQ"}))

	got := s.buildUniverse(context.Background(), []string{"TSLA"})
	assert.Equal(t, []string{"SPY", "QQQ", "TSLA"}, got)
}

func TestContractsForPicksNearestFutureExpiry(t *testing.T) {
	s := newTestScreener(t, &fakeProvider{})

	chain := &models.OptionChain{
		Symbol: "AAPL",
		Spot:   100,
		Blocks: []models.ExpirationBlock{
			{Expiry: futureExpiry(-5), Calls: []models.RawOption{{ContractID: "EXPIRED", Strike: 100}}},
			{Expiry: futureExpiry(60), Calls: []models.RawOption{{ContractID: "FAR", Strike: 100}}},
			{Expiry: futureExpiry(7), Calls: []models.RawOption{{ContractID: "NEAR", Strike: 100}}},
		},
	}

	rows := s.contractsFor(chain)
	require.Len(t, rows, 1)
	assert.Equal(t, "NEAR", rows[0].ContractID)
	assert.Equal(t, futureExpiry(7), rows[0].Expiry)
}

func TestContractsForAllBlocksExpired(t *testing.T) {
	s := newTestScreener(t, &fakeProvider{})

	chain := &models.OptionChain{
		Symbol: "AAPL",
		Spot:   100,
		Blocks: []models.ExpirationBlock{
			{Expiry: futureExpiry(-10), Calls: []models.RawOption{{ContractID: "OLD", Strike: 100}}},
		},
	}
	assert.Empty(t, s.contractsFor(chain))
}

func TestContractsForSkipsMissingSpot(t *testing.T) {
	s := newTestScreener(t, &fakeProvider{})
	chain := simpleChain("AAPL", 0, []models.RawOption{{ContractID: "A", Strike: 100}}, nil)
	assert.Empty(t, s.contractsFor(chain))
}

func TestGreeksAndIVHandling(t *testing.T) {
	s := newTestScreener(t, &fakeProvider{})

	chain := simpleChain("AAPL", 100,
		[]models.RawOption{
			{ContractID: "QUOTED", Strike: 100, ImpliedVol: ptr(0.40)},
			{ContractID: "HUGE", Strike: 100, ImpliedVol: ptr(9.9)},
			{ContractID: "MISSING", Strike: 100},
		},
		[]models.RawOption{
			{ContractID: "PUT", Strike: 100, ImpliedVol: ptr(0.40)},
		},
	)

	rows := s.contractsFor(chain)
	require.Len(t, rows, 4)

	byID := map[string]models.Contract{}
	for _, r := range rows {
		byID[r.ContractID] = r
	}

	quoted := byID["QUOTED"]
	require.NotNil(t, quoted.IVPct)
	assert.InDelta(t, 40.0, *quoted.IVPct, 1e-9)
	assert.Greater(t, quoted.Delta, 0.0)
	assert.Greater(t, quoted.Gamma, 0.0)
	assert.Equal(t, quoted.Delta, quoted.DeltaSigned)

	// Vol above the cap is clamped to 300%.
	huge := byID["HUGE"]
	require.NotNil(t, huge.IVPct)
	assert.InDelta(t, 300.0, *huge.IVPct, 1e-9)

	// Missing vol falls back to the 25% default, for greeks and for output.
	missing := byID["MISSING"]
	require.NotNil(t, missing.IVPct)
	assert.InDelta(t, 25.0, *missing.IVPct, 1e-9)
	assert.Greater(t, missing.Gamma, 0.0)

	put := byID["PUT"]
	assert.Negative(t, put.DeltaSigned)
	assert.InDelta(t, put.Delta, -put.DeltaSigned, 1e-12)
}

func TestChangePctDerivation(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawOption
		want *float64
	}{
		{"upstream wins", models.RawOption{ChangePct: ptr(7.5), ChangeAbs: ptr(1), LastPrice: ptr(3)}, ptr(7.5)},
		{"derived", models.RawOption{ChangeAbs: ptr(2), LastPrice: ptr(12)}, ptr(20.0)},
		{"no change", models.RawOption{LastPrice: ptr(12)}, nil},
		{"no last", models.RawOption{ChangeAbs: ptr(2)}, nil},
		{"zero prior price", models.RawOption{ChangeAbs: ptr(5), LastPrice: ptr(5)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := changePct(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 10, clampLimit(3))
	assert.Equal(t, 10, clampLimit(-1))
	assert.Equal(t, 42, clampLimit(42))
	assert.Equal(t, 100, clampLimit(5000))
}

func TestSnapshotViews(t *testing.T) {
	provider := &fakeProvider{
		chains: map[string]*models.OptionChain{
			"AAPL": simpleChain("AAPL", 100, []models.RawOption{
				{ContractID: "A1", Strike: 100, Volume: 900, OpenInterest: 10, ChangePct: ptr(5.0), ImpliedVol: ptr(0.30)},
				{ContractID: "A2", Strike: 105, Volume: 100, OpenInterest: 700, ChangePct: ptr(-3.0), ImpliedVol: ptr(0.90)},
			}, nil),
			"MSFT": simpleChain("MSFT", 400, []models.RawOption{
				{ContractID: "M1", Strike: 400, Volume: 500, OpenInterest: 300, ChangePct: ptr(12.0)},
				{ContractID: "M2", Strike: 410, Volume: 500, OpenInterest: 50, ChangePct: ptr(-8.0), ImpliedVol: ptr(0.60)},
			}, nil),
		},
	}

	s := newTestScreener(t, provider, WithDefaults([]string{"AAPL", "MSFT"}))

	snap, err := s.Snapshot(context.Background(), nil, 50)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, snap.AsOf)
	assert.Equal(t, []string{"AAPL", "MSFT"}, snap.Universe)
	assert.Equal(t, 4, snap.Total)

	ids := func(rows []models.Contract) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.ContractID
		}
		return out
	}

	assert.Equal(t, []string{"A1", "M1", "M2", "A2"}, ids(snap.MostActive),
		"volume desc, ties broken by contract id")
	// Gainers and losers hold the same rows in opposite order.
	assert.Equal(t, []string{"M1", "A1", "A2", "M2"}, ids(snap.TopGainers))
	assert.Equal(t, []string{"M2", "A2", "A1", "M1"}, ids(snap.TopLosers))
	// M1's defaulted 25% vol ranks below every quoted one.
	assert.Equal(t, []string{"A2", "M2", "A1", "M1"}, ids(snap.HighestIV))
	assert.Equal(t, []string{"A2", "M1", "M2", "A1"}, ids(snap.HighestOI))
}

func TestRankByOIDropsZeroOpenInterest(t *testing.T) {
	rows := []models.Contract{
		{ContractID: "HELD", OpenInterest: 40},
		{ContractID: "EMPTY", OpenInterest: 0},
		{ContractID: "BUSY", OpenInterest: 900},
	}

	got := rankByOI(rows, 50)
	require.Len(t, got, 2)
	assert.Equal(t, "BUSY", got[0].ContractID)
	assert.Equal(t, "HELD", got[1].ContractID)
	for _, c := range got {
		assert.Greater(t, c.OpenInterest, int64(0))
	}
}

func TestGainersAndLosersKeepNonPositiveChanges(t *testing.T) {
	rows := []models.Contract{
		{ContractID: "DOWN8", ChangePct: ptr(-8)},
		{ContractID: "DOWN2", ChangePct: ptr(-2)},
		{ContractID: "FLAT", ChangePct: ptr(0)},
		{ContractID: "NOQUOTE"},
	}

	gainers := rankGainers(rows, 50)
	losers := rankLosers(rows, 50)

	ids := func(rows []models.Contract) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.ContractID
		}
		return out
	}

	// On an all-red day the least-bad contract still tops the gainers, and
	// only the unquoted row drops out of either view.
	assert.Equal(t, []string{"FLAT", "DOWN2", "DOWN8"}, ids(gainers))
	assert.Equal(t, []string{"DOWN8", "DOWN2", "FLAT"}, ids(losers))
}

func TestSnapshotToleratesPartialFailures(t *testing.T) {
	provider := &fakeProvider{
		chains: map[string]*models.OptionChain{
			"AAPL": simpleChain("AAPL", 100, []models.RawOption{
				{ContractID: "A1", Strike: 100, Volume: 10},
			}, nil),
		},
		chainErr: map[string]error{"MSFT": errors.New("timeout")},
	}

	s := newTestScreener(t, provider, WithDefaults([]string{"AAPL", "MSFT"}))

	snap, err := s.Snapshot(context.Background(), nil, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, []string{"AAPL", "MSFT"}, snap.Universe, "universe reports what was attempted")
}

func TestSnapshotLimitApplied(t *testing.T) {
	calls := make([]models.RawOption, 0, 30)
	for i := 0; i < 30; i++ {
		calls = append(calls, models.RawOption{
			ContractID: fmt.Sprintf("C%02d", i),
			Strike:     100,
			Volume:     int64(i),
		})
	}
	provider := &fakeProvider{
		chains: map[string]*models.OptionChain{
			"AAPL": simpleChain("AAPL", 100, calls, nil),
		},
	}

	s := newTestScreener(t, provider, WithDefaults([]string{"AAPL"}))

	snap, err := s.Snapshot(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, snap.Total)
	assert.Len(t, snap.MostActive, 10)
	assert.Equal(t, "C29", snap.MostActive[0].ContractID)
}

func TestCollectFetchesEverySymbolOnce(t *testing.T) {
	provider := &fakeProvider{
		chains: map[string]*models.OptionChain{},
	}
	symbols := []string{"A", "B", "C", "D", "E", "F", "G"}
	for _, sym := range symbols {
		provider.chains[sym] = simpleChain(sym, 50, []models.RawOption{{ContractID: sym + "1", Strike: 50}}, nil)
	}

	s := newTestScreener(t, provider, WithDefaults(symbols), WithBatch(3, 0))

	snap, err := s.Snapshot(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.Equal(t, len(symbols), snap.Total)
	assert.ElementsMatch(t, symbols, provider.fetched)
}
