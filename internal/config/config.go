package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DataFile  string // path to the wishlists JSON document
	RulesFile string // path to the scraper rules yaml (optional, empty = built-in rules)

	RefreshWarmup    time.Duration // delay before the first refresh pass (default: 30s)
	RefreshInterval  time.Duration // interval between full refresh passes (default: 6h)
	RefreshItemDelay time.Duration // pause between item fetches within a pass (default: 2s)
	FetchTimeout     time.Duration // per-page HTTP timeout for the scraper (default: 10s)

	// Redis (optional facts cache; empty addr disables it)
	RedisAddr           string        // ex: "localhost:6379" (empty = cache disabled)
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisWarnThreshold  int           // warn after this many attempts
	CacheTTL            time.Duration // TTL for cached product facts (default: 1h)

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict admin endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("PRICEWATCH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("PRICEWATCH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("PRICEWATCH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("PRICEWATCH_PRETTY_LOG", true),

		// Storage and scraping
		DataFile:  getenv("PRICEWATCH_DATA_FILE", "./data/wishlists.json"),
		RulesFile: getenv("PRICEWATCH_RULES_FILE", ""), // Optional, empty = built-in rules

		RefreshWarmup:    mustDuration("PRICEWATCH_REFRESH_WARMUP", 30*time.Second),
		RefreshInterval:  mustDuration("PRICEWATCH_REFRESH_INTERVAL", 6*time.Hour),
		RefreshItemDelay: mustDuration("PRICEWATCH_REFRESH_ITEM_DELAY", 2*time.Second),
		FetchTimeout:     mustDuration("PRICEWATCH_FETCH_TIMEOUT", 10*time.Second),

		// Redis settings (cache disabled when addr is empty)
		RedisAddr:           getenv("PRICEWATCH_REDIS_ADDR", ""),
		RedisUser:           getenv("PRICEWATCH_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("PRICEWATCH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("PRICEWATCH_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
		CacheTTL:            mustDuration("PRICEWATCH_CACHE_TTL", time.Hour),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("PRICEWATCH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("PRICEWATCH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("PRICEWATCH_TRUST_PROXY", false),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
