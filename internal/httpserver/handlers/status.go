package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pricewatch/pricewatch/internal/httpserver/deps"
)

type componentStatus struct {
	OK    bool   `json:"ok"`
	Users *int   `json:"users,omitempty"`
	Items *int   `json:"items,omitempty"`
	Mode  string `json:"mode,omitempty"`
	Error string `json:"error,omitempty"`
}

type statusResponse struct {
	Components map[string]componentStatus `json:"components"`
}

// Status reports the health of the store and the facts cache.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		users, items := d.Store.Counts()

		components := map[string]componentStatus{
			"store": {
				OK:    true,
				Users: &users,
				Items: &items,
			},
			"cache": checkCache(r.Context(), d),
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(statusResponse{Components: components})
	}
}

func checkCache(ctx context.Context, d deps.Deps) componentStatus {
	if d.FactsCache == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.FactsCache.Ping(pingCtx); err != nil {
		return componentStatus{OK: false, Mode: "redis", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: "redis"}
}
