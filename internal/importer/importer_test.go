package importer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/logger"
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

func newTestImporter(t *testing.T, f scraper.Fetcher) (*Importer, *wishlist.Store) {
	t.Helper()
	s := wishlist.NewStore(filepath.Join(t.TempDir(), "wishlists.json"), logger.NewNop())
	return New(f, s, logger.NewNop()), s
}

func TestImportBuildsItem(t *testing.T) {
	f := &stubFetcher{facts: &scraper.ProductFacts{
		Name:     "Mechanical Keyboard",
		Price:    4999,
		ImageURL: "https://img.example.com/kb.jpg",
		Platform: domain.PlatformAmazon,
		URL:      "https://amazon.in/dp/KB123",
	}}
	imp, s := newTestImporter(t, f)

	item, err := imp.Import(context.Background(), "u1", "https://amazon.in/dp/KB123", 4500)
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.Product.ID)
	assert.NotEqual(t, item.ID, item.Product.ID)
	assert.Equal(t, "Mechanical Keyboard", item.Product.Name)
	assert.Equal(t, 4999, item.Product.CurrentPrice)
	assert.Equal(t, domain.PlatformAmazon, item.Product.Platform)
	assert.Equal(t, 4500, item.TargetPrice)

	got := s.Get("u1")
	require.Len(t, got, 1)
	assert.Equal(t, item.ID, got[0].ID)
}

func TestImportSeedsHistory(t *testing.T) {
	f := &stubFetcher{facts: &scraper.ProductFacts{
		Name:     "Shoes",
		Price:    2000,
		Platform: domain.PlatformGeneric,
		URL:      "https://shop.example.com/shoes",
	}}
	imp, _ := newTestImporter(t, f)

	item, err := imp.Import(context.Background(), "u1", "https://shop.example.com/shoes", 0)
	require.NoError(t, err)

	// One point per day, oldest first, ending at the observed price.
	require.Len(t, item.PriceHistory, domain.MaxHistoryEntries+1)
	last := item.PriceHistory[len(item.PriceHistory)-1]
	assert.Equal(t, 2000, last.Price)
	for i := 1; i < len(item.PriceHistory); i++ {
		assert.True(t, item.PriceHistory[i].RecordedAt.After(item.PriceHistory[i-1].RecordedAt))
	}
	for _, p := range item.PriceHistory {
		assert.GreaterOrEqual(t, p.Price, 1800) // within ±10%
		assert.LessOrEqual(t, p.Price, 2200)
	}
}

func TestImportHistoryIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := seedHistory("https://shop.example.com/shoes", 2000, now)
	b := seedHistory("https://shop.example.com/shoes", 2000, now)
	assert.Equal(t, a, b)
}

func TestImportFetchError(t *testing.T) {
	imp, s := newTestImporter(t, &stubFetcher{err: errors.New("boom")})

	_, err := imp.Import(context.Background(), "u1", "https://x", 0)
	require.Error(t, err)
	assert.Empty(t, s.Get("u1"))
}

func TestImportUnusablePrice(t *testing.T) {
	f := &stubFetcher{facts: &scraper.ProductFacts{Name: "Mystery", Price: 0}}
	imp, s := newTestImporter(t, f)

	_, err := imp.Import(context.Background(), "u1", "https://x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable price")
	assert.Empty(t, s.Get("u1"))
}
