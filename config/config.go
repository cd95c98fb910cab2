package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Browser drivers understood by BROWSER_DRIVER
const (
	DriverChrome = "chrome"
	DriverHTTP   = "http"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	HTTPAddr string

	// Browser configuration
	BrowserDriver     string
	ChromeWSURL       string
	ChromeHeadless    bool
	ProxyURL          string
	NavigationTimeout time.Duration

	// Marketplace
	MarketplaceBaseURL string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int
	PublishResults       bool

	// Memcache configuration
	MemcacheAddr   string
	RateLimitBlock time.Duration

	// Card metadata store
	DatabaseURL string

	// Batch worker
	BatchConcurrency   int
	BatchRatePerMinute int
	BatchInterval      time.Duration
	ErrorLogFile       string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	redisStreamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	navTimeout, _ := strconv.Atoi(getEnv("NAVIGATION_TIMEOUT_SECONDS", "30"))
	blockSeconds, _ := strconv.Atoi(getEnv("RATE_LIMIT_BLOCK_SECONDS", "300"))
	concurrency, _ := strconv.Atoi(getEnv("BATCH_CONCURRENCY", "2"))
	ratePerMinute, _ := strconv.Atoi(getEnv("BATCH_RATE_PER_MINUTE", "12"))
	interval, _ := strconv.Atoi(getEnv("BATCH_INTERVAL_SECONDS", "0"))

	return Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":3000"),
		BrowserDriver:        strings.ToLower(getEnv("BROWSER_DRIVER", DriverChrome)),
		ChromeWSURL:          getEnv("CHROME_WS_URL", ""),
		ChromeHeadless:       getBool("CHROME_HEADLESS", true),
		ProxyURL:             getEnv("PROXY_URL", ""),
		NavigationTimeout:    time.Duration(navTimeout) * time.Second,
		MarketplaceBaseURL:   getEnv("MARKETPLACE_BASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "sold_listings"),
		RedisStreamCount:     redisStreamCount,
		RedisStreamMaxLength: redisStreamMaxLength,
		PublishResults:       getBool("PUBLISH_RESULTS", false),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RateLimitBlock:       time.Duration(blockSeconds) * time.Second,
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		BatchConcurrency:     concurrency,
		BatchRatePerMinute:   ratePerMinute,
		BatchInterval:        time.Duration(interval) * time.Second,
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "scrape_errors.log"),
		Environment:          getEnv("SCRAPER_ENVIRONMENT", "development"),
	}
}

// Validate rejects configurations the services cannot start with
func (c Config) Validate() error {
	if c.BrowserDriver != DriverChrome && c.BrowserDriver != DriverHTTP {
		return fmt.Errorf("unknown BROWSER_DRIVER %q", c.BrowserDriver)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("NAVIGATION_TIMEOUT_SECONDS must be positive")
	}
	if c.PublishResults && c.RedisStreamCount <= 0 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be positive when publishing results")
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	if c.BatchRatePerMinute < 0 {
		return fmt.Errorf("BATCH_RATE_PER_MINUTE must not be negative")
	}
	for name, raw := range map[string]string{
		"MARKETPLACE_BASE_URL": c.MarketplaceBaseURL,
		"CHROME_WS_URL":        c.ChromeWSURL,
		"PROXY_URL":            c.ProxyURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return b
}
