package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/logger"
	"github.com/pricewatch/pricewatch/internal/notify"
	"github.com/pricewatch/pricewatch/internal/scraper"
	"github.com/pricewatch/pricewatch/internal/store/wishlist"
)

// fakeFetcher returns canned facts per URL.
type fakeFetcher struct {
	mu     sync.Mutex
	prices map[string]int   // url -> price
	errs   map[string]error // url -> error
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*scraper.ProductFacts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return &scraper.ProductFacts{
		Name:     "Fake Product",
		Price:    f.prices[url],
		URL:      url,
		Platform: domain.PlatformGeneric,
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// captureNotifier records delivered alerts.
type captureNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (n *captureNotifier) Send(_ context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func newStoreWithItem(t *testing.T, userID, productID, url string, price, target int) *wishlist.Store {
	t.Helper()
	s := wishlist.NewStore(filepath.Join(t.TempDir(), "wishlists.json"), logger.NewNop())
	s.Initialize()
	s.Add(userID, &domain.TrackedItem{
		ID: "item-" + productID,
		Product: domain.Product{
			ID:           productID,
			Name:         "Fake Product",
			URL:          url,
			CurrentPrice: price,
			Platform:     domain.PlatformGeneric,
		},
		TargetPrice:  target,
		AddedAt:      time.Now(),
		PriceHistory: []domain.PricePoint{{Price: price, RecordedAt: time.Now()}},
	})
	return s
}

func newRefresher(fetcher scraper.Fetcher, store *wishlist.Store, notifier notify.Notifier) *PriceRefresher {
	return NewPriceRefresher(fetcher, store, notifier, logger.NewNop(), Options{
		Warmup:    time.Millisecond,
		Interval:  time.Hour,
		ItemDelay: 0,
	}, make(chan struct{}, 1))
}

func TestRefreshAllRecordsChangedPrices(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	store.Add("u1", &domain.TrackedItem{
		ID:      "item-prod-2",
		Product: domain.Product{ID: "prod-2", URL: "https://shop.example/b", CurrentPrice: 2000},
	})

	fetcher := &fakeFetcher{prices: map[string]int{
		"https://shop.example/a": 900,  // changed
		"https://shop.example/b": 2000, // unchanged
	}}

	pr := newRefresher(fetcher, store, nil)
	pr.RefreshAll(context.Background())

	items := store.Get("u1")
	if items[0].Product.CurrentPrice != 900 {
		t.Errorf("item a price = %d, want 900", items[0].Product.CurrentPrice)
	}
	if len(items[0].PriceHistory) != 2 {
		t.Errorf("item a history length = %d, want 2 (one appended)", len(items[0].PriceHistory))
	}
	// Unchanged price must not grow the history.
	if len(items[1].PriceHistory) != 0 {
		t.Errorf("item b history length = %d, want 0 (no append)", len(items[1].PriceHistory))
	}
}

func TestRefreshAllSkipsFailedFetch(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	store.Add("u1", &domain.TrackedItem{
		ID:      "item-prod-2",
		Product: domain.Product{ID: "prod-2", URL: "https://shop.example/b", CurrentPrice: 2000},
	})

	fetcher := &fakeFetcher{
		prices: map[string]int{"https://shop.example/b": 1800},
		errs:   map[string]error{"https://shop.example/a": errors.New("connection refused")},
	}

	pr := newRefresher(fetcher, store, nil)
	pr.RefreshAll(context.Background())

	items := store.Get("u1")
	if items[0].Product.CurrentPrice != 1000 {
		t.Errorf("failed item price = %d, want unchanged 1000", items[0].Product.CurrentPrice)
	}
	// The failure must not abort the pass.
	if items[1].Product.CurrentPrice != 1800 {
		t.Errorf("second item price = %d, want 1800", items[1].Product.CurrentPrice)
	}
}

func TestRefreshAllSkipsUnusablePrice(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	fetcher := &fakeFetcher{prices: map[string]int{"https://shop.example/a": 0}}

	pr := newRefresher(fetcher, store, nil)
	pr.RefreshAll(context.Background())

	items := store.Get("u1")
	if items[0].Product.CurrentPrice != 1000 {
		t.Errorf("price = %d, want unchanged 1000", items[0].Product.CurrentPrice)
	}
	if len(items[0].PriceHistory) != 1 {
		t.Errorf("history length = %d, want unchanged 1", len(items[0].PriceHistory))
	}
}

func TestRefreshAllSendsAlertOnTargetReached(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1200, 1000)
	fetcher := &fakeFetcher{prices: map[string]int{"https://shop.example/a": 950}}
	notifier := &captureNotifier{}

	pr := newRefresher(fetcher, store, notifier)
	pr.RefreshAll(context.Background())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(notifier.alerts))
	}
	a := notifier.alerts[0]
	if a.UserID != "u1" || a.CurrentPrice != 950 || a.TargetPrice != 1000 {
		t.Errorf("unexpected alert %+v", a)
	}
}

func TestRefreshOne(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	fetcher := &fakeFetcher{prices: map[string]int{"https://shop.example/a": 1100}}

	pr := newRefresher(fetcher, store, nil)

	if !pr.RefreshOne(context.Background(), "u1", "prod-1") {
		t.Fatal("RefreshOne() = false, want true")
	}
	items := store.Get("u1")
	if items[0].Product.CurrentPrice != 1100 {
		t.Errorf("price = %d, want 1100", items[0].Product.CurrentPrice)
	}
}

func TestRefreshOneFalsePaths(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)

	tests := []struct {
		name      string
		fetcher   *fakeFetcher
		userID    string
		productID string
	}{
		{
			name:      "unknown item",
			fetcher:   &fakeFetcher{prices: map[string]int{"https://shop.example/a": 1100}},
			userID:    "u1",
			productID: "prod-missing",
		},
		{
			name:      "unknown user",
			fetcher:   &fakeFetcher{prices: map[string]int{"https://shop.example/a": 1100}},
			userID:    "ghost",
			productID: "prod-1",
		},
		{
			name:      "fetch error",
			fetcher:   &fakeFetcher{errs: map[string]error{"https://shop.example/a": errors.New("timeout")}},
			userID:    "u1",
			productID: "prod-1",
		},
		{
			name:      "unusable price",
			fetcher:   &fakeFetcher{prices: map[string]int{"https://shop.example/a": -5}},
			userID:    "u1",
			productID: "prod-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := newRefresher(tt.fetcher, store, nil)
			if pr.RefreshOne(context.Background(), tt.userID, tt.productID) {
				t.Error("RefreshOne() = true, want false")
			}
			items := store.Get("u1")
			if items[0].Product.CurrentPrice != 1000 {
				t.Errorf("price = %d, want unchanged 1000", items[0].Product.CurrentPrice)
			}
			if len(items[0].PriceHistory) != 1 {
				t.Errorf("history length = %d, want unchanged 1", len(items[0].PriceHistory))
			}
		})
	}
}

func TestStartRunsAfterWarmupAndStops(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	fetcher := &fakeFetcher{prices: map[string]int{"https://shop.example/a": 900}}

	pr := newRefresher(fetcher, store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for fetcher.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fetcher.callCount() == 0 {
		t.Fatal("warm-up pass never ran")
	}

	pr.Stop()
}

func TestManualTrigger(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	fetcher := &fakeFetcher{prices: map[string]int{"https://shop.example/a": 900}}

	trigger := make(chan struct{}, 1)
	pr := NewPriceRefresher(fetcher, store, nil, logger.NewNop(), Options{
		Warmup:    time.Hour, // keep the scheduled pass out of the way
		Interval:  time.Hour,
		ItemDelay: 0,
	}, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer pr.Stop()

	trigger <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for fetcher.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fetcher.callCount() == 0 {
		t.Fatal("manual trigger never ran a pass")
	}
}

func TestRefreshAllConcurrentWithStoreWrites(t *testing.T) {
	store := newStoreWithItem(t, "u1", "prod-1", "https://shop.example/a", 1000, 0)
	fetcher := &fakeFetcher{prices: map[string]int{"https://shop.example/a": 900}}
	refresher := newRefresher(fetcher, store, nil)

	// A refresh pass working through its snapshot while handlers keep
	// adding items must never touch live store state. Run under the race
	// detector.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			store.Add("u1", &domain.TrackedItem{
				ID: fmt.Sprintf("item-%d", i),
				Product: domain.Product{
					ID:           fmt.Sprintf("prod-extra-%d", i),
					Name:         "Fake Product",
					URL:          fmt.Sprintf("https://shop.example/x%d", i),
					CurrentPrice: 100 + i,
					Platform:     domain.PlatformGeneric,
				},
				AddedAt: time.Now(),
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			refresher.RefreshAll(context.Background())
		}
	}()
	wg.Wait()

	// All passes observed the same 900 for prod-1, so exactly one update
	// was recorded.
	for _, item := range store.Get("u1") {
		if item.Product.ID == "prod-1" {
			if item.Product.CurrentPrice != 900 {
				t.Fatalf("expected final price 900, got %d", item.Product.CurrentPrice)
			}
			if len(item.PriceHistory) != 2 {
				t.Fatalf("expected 2 history points, got %d", len(item.PriceHistory))
			}
		}
	}
}
