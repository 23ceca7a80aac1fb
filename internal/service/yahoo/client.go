package yahoo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/models"
	drepo "github.com/econopulse/optionpulse/internal/domain/repository"
	"github.com/econopulse/optionpulse/pkg/cache"
	phttp "github.com/econopulse/optionpulse/pkg/http"
	"github.com/econopulse/optionpulse/pkg/logger"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; optionpulse/1.0)"

// Client implements ChainProvider against the Yahoo quote API. Chains are
// cached per symbol so a burst of screener requests does not hammer upstream.
type Client struct {
	http        *phttp.Client
	cache       cache.Service
	log         *logger.Logger
	chainURL    string
	screenerURL string
	userAgent   string
	cacheTTL    time.Duration
}

// Option configures Client.
type Option func(*Client)

// WithUserAgent overrides the upstream User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCacheTTL sets how long fetched chains stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// New creates a chain provider. screenerURL may be empty, in which case
// MostActives returns no symbols.
func New(httpClient *phttp.Client, cacheSvc cache.Service, log *logger.Logger, chainURL, screenerURL string, opts ...Option) drepo.ChainProvider {
	c := &Client{
		http:        httpClient,
		cache:       cacheSvc,
		log:         log,
		chainURL:    strings.TrimRight(chainURL, "/"),
		screenerURL: screenerURL,
		userAgent:   defaultUserAgent,
		cacheTTL:    30 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Yahoo wire format. Optional numeric fields come back as absent keys, so
// pointers distinguish "missing" from zero.
type wireOption struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	LastPrice         *float64 `json:"lastPrice"`
	Change            *float64 `json:"change"`
	PercentChange     *float64 `json:"percentChange"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
}

type chainEnvelope struct {
	OptionChain struct {
		Result []struct {
			Quote struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"quote"`
			Options []struct {
				ExpirationDate int64        `json:"expirationDate"`
				Calls          []wireOption `json:"calls"`
				Puts           []wireOption `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

type screenerEnvelope struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol string `json:"symbol"`
			} `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

// OptionChain fetches one underlying's chain, serving from cache when fresh.
func (c *Client) OptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	key := cache.GenerateKey("chain", symbol)

	if c.cache != nil {
		var cached models.OptionChain
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	var env chainEnvelope
	err := c.http.SendAndParse(ctx, &phttp.RequestOptions{
		URL:     c.chainURL + "/" + symbol,
		Headers: map[string]string{"User-Agent": c.userAgent},
	}, &env)
	if err != nil {
		return nil, fmt.Errorf("fetch chain %s: %w", symbol, err)
	}

	if env.OptionChain.Error != nil {
		return nil, fmt.Errorf("fetch chain %s: upstream error %s", symbol, env.OptionChain.Error.Code)
	}
	if len(env.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("fetch chain %s: empty result", symbol)
	}

	chain := coerceChain(symbol, env)

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, chain, c.cacheTTL); err != nil {
			c.log.Warn("chain cache set failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return chain, nil
}

// MostActives returns up to count ranked active symbols from the predefined
// screener. A missing screener URL is not an error, just an empty list.
func (c *Client) MostActives(ctx context.Context, count int) ([]string, error) {
	if c.screenerURL == "" || count <= 0 {
		return nil, nil
	}

	var env screenerEnvelope
	err := c.http.SendAndParse(ctx, &phttp.RequestOptions{
		URL:     c.screenerURL,
		Headers: map[string]string{"User-Agent": c.userAgent},
		QueryParams: map[string][]string{
			"scrIds": {"most_actives"},
			"count":  {strconv.Itoa(count)},
		},
	}, &env)
	if err != nil {
		return nil, fmt.Errorf("fetch most actives: %w", err)
	}

	if len(env.Finance.Result) == 0 {
		return nil, nil
	}

	symbols := make([]string, 0, count)
	for _, q := range env.Finance.Result[0].Quotes {
		s := strings.ToUpper(strings.TrimSpace(q.Symbol))
		if s == "" {
			continue
		}
		symbols = append(symbols, s)
		if len(symbols) >= count {
			break
		}
	}
	return symbols, nil
}

func coerceChain(symbol string, env chainEnvelope) *models.OptionChain {
	res := env.OptionChain.Result[0]
	chain := &models.OptionChain{
		Symbol: strings.ToUpper(symbol),
		Spot:   res.Quote.RegularMarketPrice,
		Blocks: make([]models.ExpirationBlock, 0, len(res.Options)),
	}

	for _, block := range res.Options {
		chain.Blocks = append(chain.Blocks, models.ExpirationBlock{
			Expiry: block.ExpirationDate,
			Calls:  coerceOptions(block.Calls),
			Puts:   coerceOptions(block.Puts),
		})
	}
	return chain
}

func coerceOptions(rows []wireOption) []models.RawOption {
	out := make([]models.RawOption, 0, len(rows))
	for _, r := range rows {
		opt := models.RawOption{
			ContractID: r.ContractSymbol,
			Strike:     r.Strike,
			LastPrice:  r.LastPrice,
			ChangeAbs:  r.Change,
			ChangePct:  r.PercentChange,
			ImpliedVol: r.ImpliedVolatility,
		}
		if r.Volume != nil {
			opt.Volume = *r.Volume
		}
		if r.OpenInterest != nil {
			opt.OpenInterest = *r.OpenInterest
		}
		out = append(out, opt)
	}
	return out
}
