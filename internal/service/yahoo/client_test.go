package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econopulse/optionpulse/pkg/cache"
	phttp "github.com/econopulse/optionpulse/pkg/http"
	"github.com/econopulse/optionpulse/pkg/logger"
)

const chainBody = `{
  "optionChain": {
    "result": [
      {
        "quote": {"regularMarketPrice": 187.5},
        "options": [
          {
            "expirationDate": 1766016000,
            "calls": [
              {"contractSymbol": "AAPL251218C00180000", "strike": 180, "lastPrice": 9.1, "change": 0.4, "percentChange": 4.6, "volume": 1200, "openInterest": 5400, "impliedVolatility": 0.31}
            ],
            "puts": [
              {"contractSymbol": "AAPL251218P00180000", "strike": 180, "lastPrice": 2.3, "volume": 800, "openInterest": 3100}
            ]
          }
        ]
      }
    ],
    "error": null
  }
}`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func TestOptionChainCoercion(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		assert.Equal(t, "/AAPL", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chainBody))
	}))
	defer srv.Close()

	provider := New(phttp.NewClient(), nil, testLogger(t), srv.URL, "", WithUserAgent("optionpulse-test"))

	chain, err := provider.OptionChain(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "optionpulse-test", gotUA)
	assert.Equal(t, "AAPL", chain.Symbol)
	assert.Equal(t, 187.5, chain.Spot)
	require.Len(t, chain.Blocks, 1)
	assert.Equal(t, int64(1766016000), chain.Blocks[0].Expiry)

	require.Len(t, chain.Blocks[0].Calls, 1)
	call := chain.Blocks[0].Calls[0]
	assert.Equal(t, "AAPL251218C00180000", call.ContractID)
	require.NotNil(t, call.ImpliedVol)
	assert.Equal(t, 0.31, *call.ImpliedVol)
	assert.Equal(t, int64(1200), call.Volume)

	// Missing optional fields coerce to nil, not zero.
	require.Len(t, chain.Blocks[0].Puts, 1)
	put := chain.Blocks[0].Puts[0]
	assert.Nil(t, put.ChangeAbs)
	assert.Nil(t, put.ChangePct)
	assert.Nil(t, put.ImpliedVol)
	assert.Equal(t, int64(3100), put.OpenInterest)
}

func TestOptionChainUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(chainBody))
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache()
	defer mem.Close()

	provider := New(phttp.NewClient(), mem, testLogger(t), srv.URL, "", WithCacheTTL(time.Minute))

	_, err := provider.OptionChain(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = provider.OptionChain(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second fetch should hit the cache")
}

func TestOptionChainUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"optionChain":{"result":[],"error":{"code":"Not Found","description":"no data"}}}`))
	}))
	defer srv.Close()

	provider := New(phttp.NewClient(), nil, testLogger(t), srv.URL, "")

	_, err := provider.OptionChain(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream error")
}

func TestMostActives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "most_actives", r.URL.Query().Get("scrIds"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"finance":{"result":[{"quotes":[{"symbol":"nvda"},{"symbol":" TSLA "},{"symbol":""},{"symbol":"AMD"},{"symbol":"PLTR"}]}]}}`))
	}))
	defer srv.Close()

	provider := New(phttp.NewClient(), nil, testLogger(t), srv.URL, srv.URL)

	symbols, err := provider.MostActives(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "TSLA", "AMD"}, symbols)
}

func TestMostActivesNoURL(t *testing.T) {
	provider := New(phttp.NewClient(), nil, testLogger(t), "http://unused", "")
	symbols, err := provider.MostActives(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, symbols)
}
