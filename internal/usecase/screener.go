package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
	drepo "github.com/econopulse/optionpulse/internal/domain/repository"
	"github.com/econopulse/optionpulse/internal/service/greeks"
	"github.com/econopulse/optionpulse/pkg/logger"
	"github.com/econopulse/optionpulse/pkg/util"
)

// DefaultUniverse is the seed symbol list used when no override is configured.
var DefaultUniverse = []string{
	"AAPL", "MSFT", "TSLA", "NVDA", "AMZN",
	"META", "GOOGL", "AMD", "SPY", "QQQ",
}

const (
	defaultLimit = 50
	minLimit     = 10
	maxLimit     = 100

	minIV     = 0.01
	maxIV     = 3.0
	defaultIV = 0.25
)

// Screener assembles ranked option views over a bounded symbol universe.
// Chains are fetched in small concurrent batches with a pause between
// batches so the upstream quota is not exhausted by one snapshot.
type Screener struct {
	provider drepo.ChainProvider
	metrics  drepo.Metrics
	log      *logger.Logger

	defaults     []string
	activesCount int
	maxUniverse  int
	batchSize    int
	batchDelay   time.Duration
	riskFree     float64

	now func() time.Time
}

// ScreenerOption configures Screener.
type ScreenerOption func(*Screener)

// WithDefaults overrides the seed universe.
func WithDefaults(symbols []string) ScreenerOption {
	return func(s *Screener) {
		if len(symbols) > 0 {
			s.defaults = symbols
		}
	}
}

// WithActivesCount sets how many most-active symbols join the universe.
func WithActivesCount(n int) ScreenerOption {
	return func(s *Screener) {
		s.activesCount = n
	}
}

// WithMaxUniverse caps the number of underlyings per snapshot.
func WithMaxUniverse(n int) ScreenerOption {
	return func(s *Screener) {
		if n > 0 {
			s.maxUniverse = n
		}
	}
}

// WithBatch sets concurrent fetch batch size and the delay between batches.
func WithBatch(size int, delay time.Duration) ScreenerOption {
	return func(s *Screener) {
		if size > 0 {
			s.batchSize = size
		}
		s.batchDelay = delay
	}
}

// WithRiskFreeRate sets the rate used for greeks.
func WithRiskFreeRate(r float64) ScreenerOption {
	return func(s *Screener) {
		s.riskFree = r
	}
}

// NewScreener creates a screener usecase.
func NewScreener(provider drepo.ChainProvider, metrics drepo.Metrics, log *logger.Logger, opts ...ScreenerOption) *Screener {
	s := &Screener{
		provider:     provider,
		metrics:      metrics,
		log:          log,
		defaults:     DefaultUniverse,
		activesCount: 20,
		maxUniverse:  30,
		batchSize:    4,
		batchDelay:   200 * time.Millisecond,
		riskFree:     0.03,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot computes the five ranked views. userSymbols extends the universe;
// limit bounds each view and is clamped to a sane range.
func (s *Screener) Snapshot(ctx context.Context, userSymbols []string, limit int) (*models.Snapshot, error) {
	start := s.now()
	limit = clampLimit(limit)

	universe := s.buildUniverse(ctx, userSymbols)
	if len(universe) == 0 {
		return nil, fmt.Errorf("empty symbol universe")
	}

	all, err := s.collect(ctx, universe)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordContracts(len(all))
	s.metrics.RecordLatency("snapshot", time.Since(start).Seconds())

	snap := &models.Snapshot{
		AsOf:       start.UTC(),
		Universe:   universe,
		Total:      len(all),
		MostActive: rankByVolume(all, limit),
		TopGainers: rankGainers(all, limit),
		TopLosers:  rankLosers(all, limit),
		HighestIV:  rankByIV(all, limit),
		HighestOI:  rankByOI(all, limit),
		Contracts:  all,
	}
	return snap, nil
}

// buildUniverse merges defaults, the most-active list, and user symbols in
// that order, deduplicated and capped. A failing actives lookup degrades to
// the seed list instead of failing the snapshot.
func (s *Screener) buildUniverse(ctx context.Context, userSymbols []string) []string {
	seen := make(map[string]struct{}, s.maxUniverse)
	universe := make([]string, 0, s.maxUniverse)

	add := func(sym string) {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || len(universe) >= s.maxUniverse {
			return
		}
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		universe = append(universe, sym)
	}

	for _, sym := range s.defaults {
		add(sym)
	}

	actives, err := s.provider.MostActives(ctx, s.activesCount)
	if err != nil {
		s.metrics.RecordError("most_actives")
		s.log.Warn("most actives lookup failed, using seed universe", logger.Error(err))
	}
	for _, sym := range actives {
		add(sym)
	}

	for _, sym := range userSymbols {
		add(sym)
	}
	return universe
}

// collect fetches chains batch by batch and flattens per-symbol contracts in
// universe order. Individual symbol failures are logged and skipped.
func (s *Screener) collect(ctx context.Context, universe []string) ([]models.Contract, error) {
	results := make([][]models.Contract, len(universe))

	for base := 0; base < len(universe); base += s.batchSize {
		end := min(base+s.batchSize, len(universe))

		var wg sync.WaitGroup
		for i := base; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				symbol := universe[idx]

				chain, err := s.provider.OptionChain(ctx, symbol)
				if err != nil {
					s.metrics.RecordChainFetch("error")
					s.metrics.RecordError("chain_fetch")
					s.log.Warn("chain fetch failed", logger.String("symbol", symbol), logger.Error(err))
					return
				}
				s.metrics.RecordChainFetch("ok")
				results[idx] = s.contractsFor(chain)
			}(i)
		}
		wg.Wait()

		if end < len(universe) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
	}

	var all []models.Contract
	for _, rows := range results {
		all = append(all, rows...)
	}
	return all, nil
}

// contractsFor turns one chain into finalized rows. Only the nearest
// future-dated expiry block contributes; an underlying whose chain holds
// nothing but expired blocks yields no rows.
func (s *Screener) contractsFor(chain *models.OptionChain) []models.Contract {
	if chain.Spot <= 0 {
		s.log.Debug("skipping chain without spot", logger.String("symbol", chain.Symbol))
		return nil
	}

	now := s.now()
	block, ok := nearestFutureBlock(chain.Blocks, now)
	if !ok {
		s.log.Debug("no future expiry block", logger.String("symbol", chain.Symbol))
		return nil
	}

	out := make([]models.Contract, 0, len(block.Calls)+len(block.Puts))
	for _, raw := range block.Calls {
		if c, ok := s.buildContract(chain, block.Expiry, raw, models.OptionCall, now); ok {
			out = append(out, c)
		}
	}
	for _, raw := range block.Puts {
		if c, ok := s.buildContract(chain, block.Expiry, raw, models.OptionPut, now); ok {
			out = append(out, c)
		}
	}
	return out
}

func nearestFutureBlock(blocks []models.ExpirationBlock, now time.Time) (models.ExpirationBlock, bool) {
	var best models.ExpirationBlock
	found := false
	for _, b := range blocks {
		if b.Expiry <= now.Unix() {
			continue
		}
		if !found || b.Expiry < best.Expiry {
			best = b
			found = true
		}
	}
	return best, found
}

func (s *Screener) buildContract(chain *models.OptionChain, expiry int64, raw models.RawOption, typ models.OptionType, now time.Time) (models.Contract, bool) {
	if raw.Strike <= 0 {
		return models.Contract{}, false
	}

	sigma := effectiveIV(raw.ImpliedVol)
	years := max(greeks.MinYears, util.YearsUntil(expiry, now))

	var signed float64
	var err error
	if typ == models.OptionCall {
		signed, err = greeks.CallDelta(chain.Spot, raw.Strike, s.riskFree, sigma, years)
	} else {
		signed, err = greeks.PutDelta(chain.Spot, raw.Strike, s.riskFree, sigma, years)
	}
	if err != nil {
		s.metrics.RecordError("greeks")
		return models.Contract{}, false
	}
	gamma, err := greeks.Gamma(chain.Spot, raw.Strike, s.riskFree, sigma, years)
	if err != nil {
		s.metrics.RecordError("greeks")
		return models.Contract{}, false
	}

	ivPct := sigma * 100
	return models.Contract{
		Symbol:       chain.Symbol,
		ContractID:   raw.ContractID,
		Type:         typ,
		Last:         raw.LastPrice,
		ChangeAbs:    raw.ChangeAbs,
		ChangePct:    changePct(raw),
		Volume:       raw.Volume,
		OpenInterest: raw.OpenInterest,
		Strike:       raw.Strike,
		Expiry:       expiry,
		IVPct:        &ivPct,
		Delta:        abs(signed),
		DeltaSigned:  signed,
		Gamma:        gamma,
	}, true
}

// effectiveIV clamps a quoted vol into [minIV, maxIV]. Missing or non-positive
// vols fall back to defaultIV, so every contract carries a usable sigma.
func effectiveIV(iv *float64) float64 {
	if iv == nil || *iv <= 0 {
		return defaultIV
	}
	return min(max(*iv, minIV), maxIV)
}

// changePct prefers the upstream percent change and otherwise derives it from
// the absolute change against the prior price. A zero prior price means the
// percentage is undefined, not zero.
func changePct(raw models.RawOption) *float64 {
	if raw.ChangePct != nil {
		return raw.ChangePct
	}
	if raw.ChangeAbs == nil || raw.LastPrice == nil {
		return nil
	}
	prev := *raw.LastPrice - *raw.ChangeAbs
	if prev == 0 {
		return nil
	}
	pct := (*raw.ChangeAbs / prev) * 100
	return &pct
}

func clampLimit(limit int) int {
	if limit == 0 {
		return defaultLimit
	}
	return min(max(limit, minLimit), maxLimit)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Ranked views. All sorts are stable with a contract ID tie-break so equal
// metrics always order the same way across snapshots.

func rankByVolume(rows []models.Contract, limit int) []models.Contract {
	return rankView(rows, limit, nil, func(a, b models.Contract) int {
		return cmp.Compare(b.Volume, a.Volume)
	})
}

// Gainers and losers rank the same set, every contract with a known percent
// change, in opposite directions. A contract that only fell can still lead
// topGainers when nothing rose.

func rankGainers(rows []models.Contract, limit int) []models.Contract {
	return rankView(rows, limit,
		func(c models.Contract) bool { return c.ChangePct != nil },
		func(a, b models.Contract) int {
			return cmp.Compare(*b.ChangePct, *a.ChangePct)
		})
}

func rankLosers(rows []models.Contract, limit int) []models.Contract {
	return rankView(rows, limit,
		func(c models.Contract) bool { return c.ChangePct != nil },
		func(a, b models.Contract) int {
			return cmp.Compare(*a.ChangePct, *b.ChangePct)
		})
}

func rankByIV(rows []models.Contract, limit int) []models.Contract {
	return rankView(rows, limit,
		func(c models.Contract) bool { return c.IVPct != nil },
		func(a, b models.Contract) int {
			return cmp.Compare(*b.IVPct, *a.IVPct)
		})
}

func rankByOI(rows []models.Contract, limit int) []models.Contract {
	return rankView(rows, limit,
		func(c models.Contract) bool { return c.OpenInterest > 0 },
		func(a, b models.Contract) int {
			return cmp.Compare(b.OpenInterest, a.OpenInterest)
		})
}

func rankView(rows []models.Contract, limit int, keep func(models.Contract) bool, compare func(a, b models.Contract) int) []models.Contract {
	out := make([]models.Contract, 0, len(rows))
	for _, r := range rows {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}

	slices.SortStableFunc(out, func(a, b models.Contract) int {
		if c := compare(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.ContractID, b.ContractID)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
