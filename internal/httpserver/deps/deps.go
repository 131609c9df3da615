package deps

import (
	"time"

	"github.com/pricewatch/pricewatch/internal/importer"
	"github.com/pricewatch/pricewatch/internal/logger"
	"github.com/pricewatch/pricewatch/internal/scheduler"
	"github.com/pricewatch/pricewatch/internal/store/cache"
	"github.com/pricewatch/pricewatch/internal/store/wishlist"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time          // for testing, defaults to time.Now
	AllowedHosts   []string                  // Host headers allowed to access the server
	AllowedCIDRS   []string                  // IPs allowed to access admin endpoints
	TrustProxy     bool                      // true if running behind a trusted reverse proxy
	Store          *wishlist.Store           // wishlist store, the single source of truth
	Importer       *importer.Importer        // builds tracked items from product URLs
	Refresher      *scheduler.PriceRefresher // on-demand single-item refresh
	FactsCache     *cache.Store              // nil when caching is disabled
	RefreshTrigger chan struct{}             // channel to trigger a manual refresh pass
}
