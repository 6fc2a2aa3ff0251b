package venuea

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger, _ := zap.NewDevelopment()
	c := New(Config{BaseURL: srv.URL, Logger: logger})
	return c, srv
}

func TestClient_Name(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if c.Name() != "A" {
		t.Errorf("expected venue name A, got %q", c.Name())
	}
}

func TestListOpenMarkets_FiltersNonOpenAndPaginates(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_ = json.NewEncoder(w).Encode(marketsPage{
				Markets: []rawMarket{
					{Ticker: "T1", Title: "Will X happen?", Status: "open"},
					{Ticker: "T2", Title: "Closed market", Status: "closed"},
				},
				NextCursor: "page2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(marketsPage{
			Markets: []rawMarket{
				{Ticker: "T3", Title: "Will Y happen?", Status: "open"},
			},
		})
	})

	markets, err := c.ListOpenMarkets(context.Background(), 5, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 open markets after filtering, got %d", len(markets))
	}
	if markets[0].MarketID != "T1" || markets[1].MarketID != "T3" {
		t.Errorf("unexpected market ids: %+v", markets)
	}
	if calls != 2 {
		t.Errorf("expected 2 pages fetched, got %d", calls)
	}
}

func TestFetchTopOfBook_BidOnlyBestLevels(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rawOrderbook{
			Orderbook: struct {
				Yes [][2]int64 `json:"yes"`
				No  [][2]int64 `json:"no"`
			}{
				Yes: [][2]int64{{60, 100}, {58, 50}},
				No:  [][2]int64{{35, 80}},
			},
		})
	})

	top, err := c.FetchTopOfBook(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !top.BidOnly || !top.Executable {
		t.Errorf("expected BidOnly and Executable true")
	}
	if top.YesBid == nil || *top.YesBid != 0.60 {
		t.Errorf("expected yes bid 0.60, got %v", top.YesBid)
	}
	if top.YesSize != 100 {
		t.Errorf("expected yes size 100, got %f", top.YesSize)
	}
	if top.NoBid == nil || *top.NoBid != 0.35 {
		t.Errorf("expected no bid 0.35, got %v", top.NoBid)
	}
}

func TestFetchTopOfBook_EmptyBookLeavesNilBids(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rawOrderbook{})
	})

	top, err := c.FetchTopOfBook(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.YesBid != nil || top.NoBid != nil {
		t.Errorf("expected nil bids on empty book, got yes=%v no=%v", top.YesBid, top.NoBid)
	}
}

func TestResolveSlugToTokens_NotApplicable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, _, ok, err := c.ResolveSlugToTokens(context.Background(), "some-slug")
	if err != nil || ok {
		t.Errorf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}
