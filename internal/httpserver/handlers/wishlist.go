package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/httpserver/deps"
	"github.com/pricewatch/pricewatch/internal/logger"
)

type wishlistResponse struct {
	UserID string                `json:"userId"`
	Items  []*domain.TrackedItem `json:"items"`
}

type addItemRequest struct {
	URL         string `json:"url"`
	TargetPrice int    `json:"targetPrice,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type refreshItemResponse struct {
	Refreshed bool `json:"refreshed"`
}

// GetWishlist returns the user's tracked items in insertion order.
func GetWishlist(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(wishlistResponse{
			UserID: userID,
			Items:  d.Store.Get(userID),
		})
	}
}

// AddItem imports the product behind the posted URL and adds it to the
// user's wishlist.
func AddItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var req addItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be JSON with a non-empty url"})
			return
		}
		if req.TargetPrice < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "targetPrice must not be negative"})
			return
		}

		item, err := d.Importer.Import(r.Context(), userID, req.URL, req.TargetPrice)
		if err != nil {
			d.Logger.Warn("product import failed",
				logger.String("user_id", userID),
				logger.String("url", req.URL),
				logger.Error(err))
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "could not fetch product"})
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

// RemoveItem deletes one tracked item from the user's wishlist.
func RemoveItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		itemID := chi.URLParam(r, "itemID")

		if !d.Store.Remove(userID, itemID) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefreshItem re-fetches one item's price on demand.
func RefreshItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		productID := chi.URLParam(r, "productID")

		if !d.Refresher.RefreshOne(r.Context(), userID, productID) {
			writeJSON(w, http.StatusNotFound, refreshItemResponse{Refreshed: false})
			return
		}
		writeJSON(w, http.StatusOK, refreshItemResponse{Refreshed: true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
