package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econopulse/optionpulse/internal/domain/models"
	"github.com/econopulse/optionpulse/internal/service/ratelimit"
	"github.com/econopulse/optionpulse/internal/usecase"
	"github.com/econopulse/optionpulse/pkg/logger"
)

type stubProvider struct {
	chains map[string]*models.OptionChain
}

func (p *stubProvider) OptionChain(_ context.Context, symbol string) (*models.OptionChain, error) {
	if c, ok := p.chains[symbol]; ok {
		return c, nil
	}
	return &models.OptionChain{Symbol: symbol, Spot: 0}, nil
}

func (p *stubProvider) MostActives(_ context.Context, _ int) ([]string, error) {
	return nil, nil
}

type stubMetrics struct {
	rateLimited int
}

func (m *stubMetrics) RecordChainFetch(string)       {}
func (m *stubMetrics) RecordContracts(int)           {}
func (m *stubMetrics) RecordRateLimited(string)      { m.rateLimited++ }
func (m *stubMetrics) RecordSnapshot(string)         {}
func (m *stubMetrics) RecordError(string)            {}
func (m *stubMetrics) RecordLatency(string, float64) {}

func chainFixture(symbol string) *models.OptionChain {
	last := 4.2
	iv := 0.35
	return &models.OptionChain{
		Symbol: symbol,
		Spot:   100,
		Blocks: []models.ExpirationBlock{
			{
				Expiry: time.Now().AddDate(0, 1, 0).Unix(),
				Calls: []models.RawOption{
					{ContractID: symbol + "C100", Strike: 100, LastPrice: &last, Volume: 1000, OpenInterest: 500, ImpliedVol: &iv},
				},
			},
		},
	}
}

func newTestHandler(t *testing.T, limit int) (*echo.Echo, *stubMetrics) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	provider := &stubProvider{chains: map[string]*models.OptionChain{
		"AAPL": chainFixture("AAPL"),
		"TSLA": chainFixture("TSLA"),
	}}
	metrics := &stubMetrics{}

	screener := usecase.NewScreener(provider, metrics, log,
		usecase.WithDefaults([]string{"AAPL"}),
		usecase.WithBatch(4, 0),
	)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), limit, time.Minute)

	h := NewScreenerEchoHandler(log, screener, limiter, metrics, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, metrics
}

func doGet(e *echo.Echo, target, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestScreenerEndpoint(t *testing.T) {
	e, _ := newTestHandler(t, 60)

	rec := doGet(e, "/api/options/screener", "203.0.113.9")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))

	var body models.ScreenerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"AAPL"}, body.Universe)
	assert.Equal(t, 1, body.Counts.Total)
	require.Len(t, body.MostActive, 1)
	assert.Equal(t, "AAPLC100", body.MostActive[0].ContractID)

	_, err := time.Parse(time.RFC3339, body.AsOf)
	assert.NoError(t, err, "asOf must be ISO 8601")
}

func TestScreenerNegativeLimitClamped(t *testing.T) {
	e, _ := newTestHandler(t, 60)

	rec := doGet(e, "/api/options/screener?limit=-5", "203.0.113.9")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.ScreenerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.MostActive, 1, "clamped to the floor of 10, fixture has one row")
}

func TestScreenerUserUniverse(t *testing.T) {
	e, _ := newTestHandler(t, 60)

	rec := doGet(e, "/api/options/screener?universe=tsla", "203.0.113.9")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.ScreenerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"AAPL", "TSLA"}, body.Universe)
	assert.Equal(t, 2, body.Counts.Total)
}

func TestScreenerRateLimited(t *testing.T) {
	e, metrics := newTestHandler(t, 2)

	ip := "198.51.100.7"
	for i := 0; i < 2; i++ {
		rec := doGet(e, "/api/options/screener", ip)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doGet(e, "/api/options/screener", ip)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate_limited"}`, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, metrics.rateLimited)

	// A different caller is unaffected.
	other := doGet(e, "/api/options/screener", "198.51.100.8")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestHealthz(t *testing.T) {
	e, _ := newTestHandler(t, 60)

	rec := doGet(e, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
