package importer

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/logger"
	"github.com/pricewatch/pricewatch/internal/scraper"
	"github.com/pricewatch/pricewatch/internal/store/wishlist"
)

// seedHistoryPoints is the number of synthetic history entries an
// imported item starts with, one per day counting backwards. It sits one
// above the retained cap on purpose: the first real refresh trims the
// oldest synthetic point.
const seedHistoryPoints = domain.MaxHistoryEntries + 1

// Importer turns a product URL into a fully formed tracked item and
// hands it to the wishlist store.
type Importer struct {
	fetcher scraper.Fetcher
	store   *wishlist.Store
	logger  logger.Logger
	now     func() time.Time
}

// New creates an importer.
func New(fetcher scraper.Fetcher, store *wishlist.Store, log logger.Logger) *Importer {
	return &Importer{
		fetcher: fetcher,
		store:   store,
		logger:  log,
		now:     time.Now,
	}
}

// Import fetches the product behind url, builds a tracked item with a
// synthetic price history, and adds it to the user's wishlist.
// targetPrice of 0 means no alert threshold.
func (i *Importer) Import(ctx context.Context, userID, url string, targetPrice int) (*domain.TrackedItem, error) {
	facts, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	if facts.Price <= 0 {
		return nil, fmt.Errorf("product %s has no usable price", url)
	}

	now := i.now()
	item := &domain.TrackedItem{
		ID: uuid.NewString(),
		Product: domain.Product{
			ID:           uuid.NewString(),
			Name:         facts.Name,
			URL:          facts.URL,
			ImageURL:     facts.ImageURL,
			CurrentPrice: facts.Price,
			Platform:     facts.Platform,
			Description:  facts.Description,
		},
		TargetPrice:  targetPrice,
		AddedAt:      now,
		PriceHistory: seedHistory(url, facts.Price, now),
	}

	i.store.Add(userID, item)

	i.logger.Info("product imported",
		logger.String("user_id", userID),
		logger.String("product", facts.Name),
		logger.String("platform", facts.Platform.String()),
		logger.Int("price", facts.Price))

	return item, nil
}

// seedHistory fabricates a plausible daily price history ending at the
// observed price. The wobble is derived from the URL so re-importing the
// same product yields the same curve.
func seedHistory(url string, price int, now time.Time) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, seedHistoryPoints)
	for i := seedHistoryPoints - 1; i >= 0; i-- {
		at := now.AddDate(0, 0, -i)
		p := price
		if i > 0 {
			// up to ±10% around the observed price
			h := fnv.New32a()
			_, _ = h.Write([]byte(url))
			_, _ = h.Write([]byte{byte(i)})
			offset := int(h.Sum32()%21) - 10
			p = price + price*offset/100
			if p < 1 {
				p = 1
			}
		}
		points = append(points, domain.PricePoint{Price: p, RecordedAt: at})
	}
	return points
}
