package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/logger"
	"github.com/pricewatch/pricewatch/internal/notify"
	"github.com/pricewatch/pricewatch/internal/scraper"
	"github.com/pricewatch/pricewatch/internal/store/wishlist"
)

const (
	// DefaultWarmup is the delay before the first refresh pass after start
	DefaultWarmup = 30 * time.Second
	// DefaultInterval is the time between full refresh passes
	DefaultInterval = 6 * time.Hour
	// DefaultItemDelay is the pause between two item fetches within one
	// pass, a self-imposed rate limit on the upstream sites
	DefaultItemDelay = 2 * time.Second
)

// Options tunes the refresh cadence. Zero Warmup and Interval take the
// defaults; an ItemDelay of exactly zero disables the inter-item pause
// (negative values take the default).
type Options struct {
	Warmup    time.Duration
	Interval  time.Duration
	ItemDelay time.Duration
}

// PriceRefresher keeps every tracked item's price reasonably fresh by
// periodically re-fetching it through the scraper and recording changes
// in the wishlist store.
type PriceRefresher struct {
	fetcher       scraper.Fetcher
	store         *wishlist.Store
	notifier      notify.Notifier
	logger        logger.Logger
	warmup        time.Duration
	interval      time.Duration
	itemDelay     time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewPriceRefresher creates a price refresher.
func NewPriceRefresher(
	fetcher scraper.Fetcher,
	store *wishlist.Store,
	notifier notify.Notifier,
	log logger.Logger,
	opts Options,
	manualTrigger chan struct{},
) *PriceRefresher {
	if opts.Warmup <= 0 {
		opts.Warmup = DefaultWarmup
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ItemDelay < 0 {
		opts.ItemDelay = DefaultItemDelay
	}
	return &PriceRefresher{
		fetcher:       fetcher,
		store:         store,
		notifier:      notifier,
		logger:        log,
		warmup:        opts.Warmup,
		interval:      opts.Interval,
		itemDelay:     opts.ItemDelay,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start schedules the refresh loop: one pass after the warm-up delay,
// then one per interval. It returns immediately.
func (pr *PriceRefresher) Start(ctx context.Context) error {
	go func() {
		warmup := time.NewTimer(pr.warmup)
		defer warmup.Stop()
		select {
		case <-warmup.C:
			pr.RefreshAll(ctx)
		case <-pr.manualTrigger:
			pr.logger.Info("manual refresh triggered during warm-up")
			pr.RefreshAll(ctx)
		case <-pr.stopCh:
			return
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(pr.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pr.RefreshAll(ctx)
			case <-pr.manualTrigger:
				pr.logger.Info("manual refresh triggered")
				pr.RefreshAll(ctx)
			case <-pr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the refresh loop.
func (pr *PriceRefresher) Stop() {
	close(pr.stopCh)
}

// RefreshAll walks a snapshot of every user's wishlist and re-fetches
// each item's price, strictly sequentially. A failed fetch skips the
// item for this pass; it never aborts the cycle.
func (pr *PriceRefresher) RefreshAll(ctx context.Context) {
	all := pr.store.GetAll()

	// Map iteration order is randomized; visit users in a stable order so
	// consecutive passes behave the same.
	userIDs := make([]string, 0, len(all))
	for userID := range all {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	pr.logger.Info("starting price refresh pass",
		logger.Int("users", len(userIDs)))

	checked, updated := 0, 0
	for _, userID := range userIDs {
		for _, item := range all[userID].Items {
			if checked > 0 && !pr.pause(ctx) {
				return
			}
			checked++

			facts, err := pr.fetcher.Fetch(ctx, item.Product.URL)
			if err != nil {
				pr.logger.Warn("price fetch failed, skipping item",
					logger.String("user_id", userID),
					logger.String("product", item.Product.Name),
					logger.String("url", item.Product.URL),
					logger.Error(err))
				continue
			}
			if facts.Price <= 0 {
				continue
			}

			// The compare-and-record runs inside the store's lock; the
			// snapshot price is only used for the log line.
			oldPrice := item.Product.CurrentPrice
			if !pr.store.UpdatePriceIfChanged(userID, item.Product.ID, facts.Price) {
				continue
			}
			updated++

			pr.logger.Info("price changed",
				logger.String("user_id", userID),
				logger.String("product", item.Product.Name),
				logger.Int("old_price", oldPrice),
				logger.Int("new_price", facts.Price))

			pr.maybeAlert(ctx, userID, item.Product.Name, item.Product.URL, facts.Price, item.TargetPrice)
		}
	}

	pr.logger.Info("price refresh pass completed",
		logger.Int("checked", checked),
		logger.Int("updated", updated))
}

// RefreshOne re-fetches a single item's price on demand. It reports
// whether the price was refreshed; every failure path degrades to false
// plus a log line.
func (pr *PriceRefresher) RefreshOne(ctx context.Context, userID, productID string) bool {
	var found *domain.TrackedItem
	for _, item := range pr.store.Get(userID) {
		if item.Product.ID == productID {
			found = item
			break
		}
	}
	if found == nil {
		pr.logger.Debug("refresh requested for unknown item",
			logger.String("user_id", userID),
			logger.String("product_id", productID))
		return false
	}

	facts, err := pr.fetcher.Fetch(ctx, found.Product.URL)
	if err != nil {
		pr.logger.Warn("on-demand price fetch failed",
			logger.String("user_id", userID),
			logger.String("url", found.Product.URL),
			logger.Error(err))
		return false
	}
	if facts.Price <= 0 {
		pr.logger.Warn("on-demand fetch returned unusable price",
			logger.String("user_id", userID),
			logger.String("url", found.Product.URL),
			logger.Int("price", facts.Price))
		return false
	}

	pr.store.UpdatePrice(userID, productID, facts.Price)
	pr.logger.Info("price refreshed on demand",
		logger.String("user_id", userID),
		logger.String("product", found.Product.Name),
		logger.Int("price", facts.Price))

	pr.maybeAlert(ctx, userID, found.Product.Name, found.Product.URL, facts.Price, found.TargetPrice)
	return true
}

// maybeAlert logs and dispatches a target-reached alert. Notification
// failures are logged and otherwise ignored.
func (pr *PriceRefresher) maybeAlert(ctx context.Context, userID, name, url string, price, targetPrice int) {
	if targetPrice <= 0 || price > targetPrice {
		return
	}

	pr.logger.Info("target price reached",
		logger.String("user_id", userID),
		logger.String("product", name),
		logger.Int("price", price),
		logger.Int("target_price", targetPrice))

	if pr.notifier == nil {
		return
	}
	alert := notify.Alert{
		UserID:       userID,
		ProductName:  name,
		ProductURL:   url,
		CurrentPrice: price,
		TargetPrice:  targetPrice,
	}
	if err := pr.notifier.Send(ctx, alert); err != nil {
		pr.logger.Warn("failed to send price alert",
			logger.String("user_id", userID),
			logger.Error(err))
	}
}

// pause waits the inter-item delay. Returns false when the loop should
// bail out because the process is shutting down.
func (pr *PriceRefresher) pause(ctx context.Context) bool {
	if pr.itemDelay == 0 {
		return true
	}
	t := time.NewTimer(pr.itemDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-pr.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}
