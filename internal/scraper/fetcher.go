package scraper

import (
	"context"

	"github.com/pricewatch/pricewatch/internal/domain"
)

// ProductFacts is the result of fetching one product page.
type ProductFacts struct {
	Name        string          `json:"name"`
	Price       int             `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Platform    domain.Platform `json:"platform"`
	URL         string          `json:"url"`
	Description string          `json:"description,omitempty"`
}

// Fetcher retrieves current product facts for a product URL.
// A Price <= 0 in the result means "unusable, skip".
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*ProductFacts, error)
}
