package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/httpserver/deps"
	"github.com/pricewatch/pricewatch/internal/importer"
	"github.com/pricewatch/pricewatch/internal/logger"
	"github.com/pricewatch/pricewatch/internal/scheduler"
	"github.com/pricewatch/pricewatch/internal/scraper"
	"github.com/pricewatch/pricewatch/internal/store/wishlist"
)

type stubFetcher struct {
	facts *scraper.ProductFacts
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (*scraper.ProductFacts, error) {
	return f.facts, f.err
}

func newTestRouter(t *testing.T, fetcher scraper.Fetcher) (chi.Router, deps.Deps) {
	t.Helper()

	log := logger.NewNop()
	store := wishlist.NewStore(filepath.Join(t.TempDir(), "wishlists.json"), log)
	imp := importer.New(fetcher, store, log)
	trigger := make(chan struct{}, 1)
	refresher := scheduler.NewPriceRefresher(fetcher, store, nil, log,
		scheduler.Options{ItemDelay: 0}, trigger)

	d := deps.Deps{
		Logger:         log,
		Store:          store,
		Importer:       imp,
		Refresher:      refresher,
		RefreshTrigger: trigger,
	}

	r := chi.NewRouter()
	r.Get("/api/wishlist/{userID}", GetWishlist(d))
	r.Post("/api/wishlist/{userID}", AddItem(d))
	r.Delete("/api/wishlist/{userID}/{itemID}", RemoveItem(d))
	r.Post("/api/wishlist/{userID}/{productID}/refresh", RefreshItem(d))
	r.Post("/api/refresh", Refresh(d))
	return r, d
}

func doRequest(r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sampleFacts() *scraper.ProductFacts {
	return &scraper.ProductFacts{
		Name:     "Mechanical Keyboard",
		Price:    4999,
		Platform: domain.PlatformAmazon,
		URL:      "https://amazon.in/dp/KB123",
	}
}

func TestGetWishlistEmpty(t *testing.T) {
	r, _ := newTestRouter(t, &stubFetcher{facts: sampleFacts()})

	rec := doRequest(r, http.MethodGet, "/api/wishlist/u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		UserID string               `json:"userId"`
		Items  []domain.TrackedItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.UserID != "u1" {
		t.Errorf("expected userId u1, got %q", resp.UserID)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("expected empty items array, got %v", resp.Items)
	}
}

func TestAddItem(t *testing.T) {
	r, d := newTestRouter(t, &stubFetcher{facts: sampleFacts()})

	rec := doRequest(r, http.MethodPost, "/api/wishlist/u1",
		`{"url":"https://amazon.in/dp/KB123","targetPrice":4500}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var item domain.TrackedItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if item.Product.Name != "Mechanical Keyboard" {
		t.Errorf("unexpected product name %q", item.Product.Name)
	}
	if item.TargetPrice != 4500 {
		t.Errorf("expected target price 4500, got %d", item.TargetPrice)
	}
	if got := d.Store.Get("u1"); len(got) != 1 {
		t.Errorf("expected 1 stored item, got %d", len(got))
	}
}

func TestAddItemBadRequests(t *testing.T) {
	r, _ := newTestRouter(t, &stubFetcher{facts: sampleFacts()})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"empty body", ""},
		{"missing url", `{"targetPrice":100}`},
		{"negative target", `{"url":"https://x","targetPrice":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPost, "/api/wishlist/u1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAddItemFetchFailure(t *testing.T) {
	r, _ := newTestRouter(t, &stubFetcher{err: errors.New("connection refused")})

	rec := doRequest(r, http.MethodPost, "/api/wishlist/u1", `{"url":"https://x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestRemoveItem(t *testing.T) {
	r, d := newTestRouter(t, &stubFetcher{facts: sampleFacts()})

	rec := doRequest(r, http.MethodPost, "/api/wishlist/u1", `{"url":"https://x"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d", rec.Code)
	}
	itemID := d.Store.Get("u1")[0].ID

	rec = doRequest(r, http.MethodDelete, "/api/wishlist/u1/"+itemID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// Second delete of the same item is a 404.
	rec = doRequest(r, http.MethodDelete, "/api/wishlist/u1/"+itemID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRefreshItem(t *testing.T) {
	fetcher := &stubFetcher{facts: sampleFacts()}
	r, d := newTestRouter(t, fetcher)

	rec := doRequest(r, http.MethodPost, "/api/wishlist/u1", `{"url":"https://x"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d", rec.Code)
	}
	productID := d.Store.Get("u1")[0].Product.ID

	fetcher.facts = &scraper.ProductFacts{Name: "Mechanical Keyboard", Price: 4499}
	rec = doRequest(r, http.MethodPost, "/api/wishlist/u1/"+productID+"/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp refreshItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !resp.Refreshed {
		t.Error("expected refreshed=true")
	}
	if got := d.Store.Get("u1")[0].Product.CurrentPrice; got != 4499 {
		t.Errorf("expected updated price 4499, got %d", got)
	}
}

func TestRefreshItemUnknown(t *testing.T) {
	r, _ := newTestRouter(t, &stubFetcher{facts: sampleFacts()})

	rec := doRequest(r, http.MethodPost, "/api/wishlist/u1/nope/refresh", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestManualRefreshEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &stubFetcher{facts: sampleFacts()})

	// Nothing consumes the trigger channel here, so the first call
	// fills it and the second is rejected.
	rec := doRequest(r, http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	rec = doRequest(r, http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
