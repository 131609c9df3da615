package domain

import "time"

// MaxHistoryEntries bounds the price history per tracked item.
// Once the cap is hit, the oldest entries are dropped first.
const MaxHistoryEntries = 30

// Product is the snapshot of a scraped product.
// All fields except CurrentPrice are immutable after import.
type Product struct {
	// ID is the canonical unique identifier for the product.
	ID string `json:"id"`

	// Name as scraped at import time.
	Name string `json:"name"`

	// URL is the product page the price is scraped from.
	URL string `json:"url"`

	// ImageURL points at the product image, if one was found.
	ImageURL string `json:"imageUrl"`

	// CurrentPrice in the smallest currency unit.
	// Mutated in place by the refresh loop.
	CurrentPrice int `json:"currentPrice"`

	// Platform the product was imported from.
	Platform Platform `json:"platform"`

	// Description is optional.
	Description string `json:"description,omitempty"`
}

// PricePoint is one observed price.
type PricePoint struct {
	Price      int       `json:"price"`
	RecordedAt time.Time `json:"recordedAt"`
}

// TrackedItem is one product a user is watching.
type TrackedItem struct {
	// ID is assigned at creation time and never changes.
	ID string `json:"id"`

	Product Product `json:"product"`

	// TargetPrice is the optional alert threshold; 0 means unset.
	TargetPrice int `json:"targetPrice,omitempty"`

	// AddedAt is the creation timestamp.
	AddedAt time.Time `json:"addedAt"`

	// PriceHistory is append-only and chronologically ordered,
	// capped at MaxHistoryEntries.
	PriceHistory []PricePoint `json:"priceHistory"`
}

// UserWishlist owns the ordered tracked items of one user.
// Insertion order is display order.
type UserWishlist struct {
	UserID string         `json:"userId"`
	Items  []*TrackedItem `json:"items"`
}

// RecordPrice appends an observation to the item's history, applying the
// cap, and updates the product's current price to match.
func (t *TrackedItem) RecordPrice(price int, at time.Time) {
	t.PriceHistory = append(t.PriceHistory, PricePoint{Price: price, RecordedAt: at})
	if over := len(t.PriceHistory) - MaxHistoryEntries; over > 0 {
		t.PriceHistory = t.PriceHistory[over:]
	}
	t.Product.CurrentPrice = price
}

// TargetReached reports whether the price-alert condition is met.
// Items without a target never match.
func (t *TrackedItem) TargetReached() bool {
	return t.TargetPrice > 0 && t.Product.CurrentPrice <= t.TargetPrice
}

// Clone returns a deep copy of the item. Mutating the copy or its
// history never affects the original.
func (t *TrackedItem) Clone() *TrackedItem {
	c := *t
	c.PriceHistory = append([]PricePoint(nil), t.PriceHistory...)
	return &c
}

// Clone returns a deep copy of the wishlist and all its items.
func (w *UserWishlist) Clone() *UserWishlist {
	c := &UserWishlist{UserID: w.UserID, Items: make([]*TrackedItem, len(w.Items))}
	for i, item := range w.Items {
		c.Items[i] = item.Clone()
	}
	return c
}

// FindByProductID returns the item whose product has the given ID.
func (w *UserWishlist) FindByProductID(productID string) (*TrackedItem, bool) {
	for _, item := range w.Items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return nil, false
}
