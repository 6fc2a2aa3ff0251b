// Package venuea implements the venue.Client capability for a bid-only,
// cents-priced exchange (shaped like Kalshi's public market-data API).
// Grounded on original_source/arb_scanner/kalshi_public.py for the payload
// shape and on the teacher's discovery.Client for the Go HTTP-client idiom,
// rebuilt on resty per the 0xtitan6-polymarket-mm teacher's stack.
package venuea

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

const venueName = "A"

// Client is a read-only client for venue A's public market-data endpoints.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Config holds client construction parameters.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RetryBudget    int // small per-request retry budget, §5 point 1
	Logger         *zap.Logger
}

// New creates a venue-A client.
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

	h := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.ConnectTimeout + cfg.ReadTimeout).
		SetRetryCount(cfg.RetryBudget - 1).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(600 * time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "arb-scanner/1.0")

	return &Client{http: h, logger: cfg.Logger}
}

func (c *Client) Name() string { return venueName }

type marketsPage struct {
	Markets    []rawMarket `json:"markets"`
	NextCursor string      `json:"cursor"`
}

type rawMarket struct {
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ListOpenMarkets paginates venue A's market listing by opaque cursor.
func (c *Client) ListOpenMarkets(ctx context.Context, maxPages, limitPerPage int) ([]venue.RawMarket, error) {
	start := time.Now()
	defer func() {
		venue.FetchDurationSeconds.WithLabelValues(venueName, "list_markets").Observe(time.Since(start).Seconds())
	}()

	var out []venue.RawMarket
	cursor := ""

	for page := 0; page < maxPages; page++ {
		var parsed marketsPage
		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("status", "open").
			SetQueryParam("limit", fmt.Sprintf("%d", limitPerPage)).
			SetResult(&parsed)
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}

		resp, err := req.Get("/markets")
		if err != nil {
			venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
			return out, fmt.Errorf("venue-a list markets: %w", err)
		}
		if resp.IsError() {
			venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
			return out, fmt.Errorf("venue-a list markets: unexpected status %d", resp.StatusCode())
		}

		for _, m := range parsed.Markets {
			if m.Ticker == "" || m.Status != "open" {
				continue
			}
			out = append(out, venue.RawMarket{
				Venue:    types.VenueA,
				MarketID: m.Ticker,
				Question: m.Title,
				Outcomes: [2]string{"Yes", "No"},
			})
		}

		venue.MarketsListedTotal.WithLabelValues(venueName).Add(float64(len(parsed.Markets)))

		cursor = parsed.NextCursor
		if cursor == "" {
			break
		}
	}

	return out, nil
}

type rawOrderbook struct {
	Orderbook struct {
		Yes [][2]int64 `json:"yes"` // [price_cents, qty]
		No  [][2]int64 `json:"no"`
	} `json:"orderbook"`
}

// FetchTopOfBook returns the best bid on each side; asks are left nil so the
// normalizer derives them by complementarity (venue A is bid-only), per
// §4.1's resolution of the ask-derivation open question.
func (c *Client) FetchTopOfBook(ctx context.Context, marketID string) (venue.RawTopOfBook, error) {
	start := time.Now()
	defer func() {
		venue.FetchDurationSeconds.WithLabelValues(venueName, "top_of_book").Observe(time.Since(start).Seconds())
	}()

	var parsed rawOrderbook
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get(fmt.Sprintf("/markets/%s/orderbook", marketID))
	if err != nil {
		venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
		return venue.RawTopOfBook{}, fmt.Errorf("venue-a orderbook %s: %w", marketID, err)
	}
	if resp.IsError() {
		venue.FetchErrorsTotal.WithLabelValues(venueName, "network").Inc()
		return venue.RawTopOfBook{}, fmt.Errorf("venue-a orderbook %s: unexpected status %d", marketID, resp.StatusCode())
	}

	yesBid, yesQty := bestBid(parsed.Orderbook.Yes)
	noBid, noQty := bestBid(parsed.Orderbook.No)

	top := venue.RawTopOfBook{BidOnly: true, Executable: true}
	if yesBid != nil {
		p := *yesBid / 100.0
		top.YesBid = &p
		top.YesSize = float64(yesQty)
	}
	if noBid != nil {
		p := *noBid / 100.0
		top.NoBid = &p
		top.NoSize = float64(noQty)
	}

	if top.YesBid == nil && top.NoBid == nil {
		venue.FetchErrorsTotal.WithLabelValues(venueName, "payload_shape").Inc()
	}

	return top, nil
}

// ResolveSlugToTokens is not applicable to venue A.
func (c *Client) ResolveSlugToTokens(_ context.Context, _ string) (string, string, bool, error) {
	return "", "", false, nil
}

func bestBid(levels [][2]int64) (price *float64, qty int64) {
	var best int64 = -1
	var bestQty int64
	for _, lvl := range levels {
		if lvl[0] > best {
			best = lvl[0]
			bestQty = lvl[1]
		}
	}
	if best < 0 {
		return nil, 0
	}
	p := float64(best)
	return &p, bestQty
}
