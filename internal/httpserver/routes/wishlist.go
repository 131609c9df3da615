package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/pricewatch/pricewatch/internal/httpserver/deps"
	"github.com/pricewatch/pricewatch/internal/httpserver/handlers"
	"github.com/pricewatch/pricewatch/internal/httpserver/mw"
)

func init() { Register(registerWishlist) }

func registerWishlist(r chi.Router, d deps.Deps) {
	r.Route("/api/wishlist", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		// Imports trigger an inline page scrape, so keep per-IP traffic modest.
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:             10,
			RefillPerIPPerMin: 60,
			MaxEntries:        10_000,
			TrustProxy:        d.TrustProxy,
		}))
		r.Get("/{userID}", handlers.GetWishlist(d))
		r.Post("/{userID}", handlers.AddItem(d))
		r.Delete("/{userID}/{itemID}", handlers.RemoveItem(d))
		r.Post("/{userID}/{productID}/refresh", handlers.RefreshItem(d))
	})
}
