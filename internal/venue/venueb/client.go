// Package venueb implements the venue.Client capability for a CLOB-backed
// exchange exposing token-keyed orderbooks plus a metadata API (shaped like
// Polymarket's CLOB + Gamma APIs). Grounded on the teacher's
// internal/discovery.Client (Gamma HTTP idiom) and internal/orderbook's
// best-level extraction, rebuilt here as a synchronous REST fetch rather
// than a websocket subscription (streaming is out of scope).
package venueb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/cache"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

const venueName = "B"

// Client reads venue B's Gamma metadata API and CLOB orderbook API.
type Client struct {
	gamma       *resty.Client
	clob        *resty.Client
	logger      *zap.Logger
	metaCache   cache.Cache
	metaCacheTTL time.Duration
}

// Config holds client construction parameters.
type Config struct {
	GammaBaseURL   string
	CLOBBaseURL    string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RetryBudget    int
	MetaCache      cache.Cache
	MetaCacheTTL   time.Duration
	Logger         *zap.Logger
}

// New creates a venue-B client.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 12 * time.Second
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 2
	}
	if cfg.MetaCacheTTL <= 0 {
		cfg.MetaCacheTTL = 5 * time.Minute
	}

	newHTTP := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.ConnectTimeout + cfg.ReadTimeout).
			SetRetryCount(cfg.RetryBudget - 1).
			SetRetryWaitTime(300 * time.Millisecond).
			SetRetryMaxWaitTime(600 * time.Millisecond).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "arb-scanner/1.0")
	}

	return &Client{
		gamma:        newHTTP(cfg.GammaBaseURL),
		clob:         newHTTP(cfg.CLOBBaseURL),
		logger:       cfg.Logger,
		metaCache:    cfg.MetaCache,
		metaCacheTTL: cfg.MetaCacheTTL,
	}
}

func (c *Client) Name() string { return venueName }

type gammaMarket struct {
	Slug          string `json:"slug"`
	Question      string `json:"question"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
	ClobTokenIDs  string `json:"clobTokenIds"`
	ConditionID   string `json:"conditionId"`
	BestAsk       *float64 `json:"bestAsk"`
	OutcomePrices string   `json:"outcomePrices"`
}

// ListOpenMarkets paginates venue B's Gamma market listing by offset, the
// only pagination mode the metadata API exposes.
func (c *Client) ListOpenMarkets(ctx context.Context, maxPages, limitPerPage int) ([]venue.RawMarket, error) {
	start := time.Now()
	defer func() {
		venue.FetchDurationSeconds.WithLabelValues(venueName, "list_markets").Observe(time.Since(start).Seconds())
	}()

	var out []venue.RawMarket
	offset := 0

	for page := 0; page < maxPages; page++ {
		var parsed []gammaMarket
		resp, err := c.gamma.R().
			SetContext(ctx).
			SetQueryParam("active", "true").
			SetQueryParam("closed", "false").
			SetQueryParam("limit", fmt.Sprintf("%d", limitPerPage)).
			SetQueryParam("offset", fmt.Sprintf("%d", offset)).
			SetResult(&parsed).
			Get("/markets")
		if err != nil {
			venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
			return out, fmt.Errorf("venue-b list markets: %w", err)
		}
		if resp.IsError() {
			venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
			return out, fmt.Errorf("venue-b list markets: unexpected status %d", resp.StatusCode())
		}

		for _, m := range parsed {
			if !m.Active || m.Closed || m.Slug == "" {
				continue
			}
			out = append(out, venue.RawMarket{
				Venue:    types.VenueB,
				MarketID: m.ConditionID,
				Question: m.Question,
				Outcomes: [2]string{"Yes", "No"},
				ExtraID:  m.Slug,
			})
			if c.metaCache != nil {
				c.metaCache.Set(cacheKey(m.ConditionID), m, c.metaCacheTTL)
			}
		}

		venue.MarketsListedTotal.WithLabelValues(venueName).Add(float64(len(parsed)))

		if len(parsed) < limitPerPage {
			break
		}
		offset += limitPerPage
	}

	return out, nil
}

type clobBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type clobBook struct {
	Bids []clobBookLevel `json:"bids"`
	Asks []clobBookLevel `json:"asks"`
}

// FetchTopOfBook prefers the live CLOB orderbook keyed by token id
// (marketID here carries the yes-token; the no-token book is fetched
// separately by the caller via the resolved mapping). When the book is
// empty or the request fails it falls back to cached Gamma metadata,
// marking the result non-executable, per §4.1's resolution.
func (c *Client) FetchTopOfBook(ctx context.Context, tokenID string) (venue.RawTopOfBook, error) {
	start := time.Now()
	defer func() {
		venue.FetchDurationSeconds.WithLabelValues(venueName, "top_of_book").Observe(time.Since(start).Seconds())
	}()

	var parsed clobBook
	resp, err := c.clob.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&parsed).
		Get("/book")

	if err == nil && !resp.IsError() {
		bidP, bidSz, hasBid := bestLevel(parsed.Bids)
		askP, askSz, hasAsk := bestLevel(parsed.Asks)
		if hasBid || hasAsk {
			top := venue.RawTopOfBook{Executable: true}
			if hasBid {
				top.YesBid = &bidP
				top.YesSize = bidSz
			}
			if hasAsk {
				top.YesAsk = &askP
				top.YesAskSize = askSz
			}
			return top, nil
		}
	}
	if err != nil {
		venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
	}

	return c.fallbackFromMetadata(tokenID)
}

// fallbackFromMetadata reads the last cached Gamma snapshot when the live
// orderbook is empty or unreachable. The result is marked non-executable
// and carries size 0; the evaluator skips any direction with a zero size,
// so it produces no signal.
func (c *Client) fallbackFromMetadata(conditionID string) (venue.RawTopOfBook, error) {
	if c.metaCache == nil {
		return venue.RawTopOfBook{}, nil
	}
	v, ok := c.metaCache.Get(cacheKey(conditionID))
	if !ok {
		venue.FetchErrorsTotal.WithLabelValues(venueName, "payload_shape").Inc()
		return venue.RawTopOfBook{}, nil
	}
	m, ok := v.(gammaMarket)
	if !ok {
		return venue.RawTopOfBook{}, nil
	}

	top := venue.RawTopOfBook{Executable: false}
	if m.BestAsk != nil {
		top.YesAsk = m.BestAsk
	} else if p, ok := yesOutcomePrice(m.OutcomePrices); ok {
		top.YesAsk = &p
	}
	return top, nil
}

// ResolveSlugToTokens looks up yes/no CLOB token ids for a Gamma slug by
// re-fetching the market and parsing its clobTokenIds JSON-array field.
func (c *Client) ResolveSlugToTokens(ctx context.Context, slug string) (string, string, bool, error) {
	var parsed []gammaMarket
	resp, err := c.gamma.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetResult(&parsed).
		Get("/markets")
	if err != nil {
		venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
		return "", "", false, fmt.Errorf("venue-b resolve slug %s: %w", slug, err)
	}
	if resp.IsError() || len(parsed) == 0 {
		return "", "", false, nil
	}

	yes, no, ok := parseTokenIDs(parsed[0].ClobTokenIDs)
	return yes, no, ok, nil
}

func cacheKey(conditionID string) string {
	return "venueb:meta:" + conditionID
}

func bestLevel(levels []clobBookLevel) (price, size float64, ok bool) {
	if len(levels) == 0 {
		return 0, 0, false
	}
	p, err := strconv.ParseFloat(levels[0].Price, 64)
	if err != nil {
		return 0, 0, false
	}
	s, err := strconv.ParseFloat(levels[0].Size, 64)
	if err != nil {
		s = 0
	}
	return p, s, true
}

// parseTokenIDs parses the Gamma "clobTokenIds" field, a JSON-encoded
// two-element string array ["yesTokenID","noTokenID"].
func parseTokenIDs(raw string) (yes, no string, ok bool) {
	ids := splitJSONStringArray(raw)
	if len(ids) != 2 {
		return "", "", false
	}
	return ids[0], ids[1], true
}
