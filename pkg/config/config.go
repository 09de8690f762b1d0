package config

import (
	"log"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsStaging    bool
	IsProduction bool

	JWTSecret string
	Port      string

	// MySQLDSN selects the MySQL driver when set; otherwise the server
	// falls back to a local sqlite file (SQLitePath).
	MySQLDSN   string
	SQLitePath string

	// runtime tunables
	RateLimitWindowSeconds  int
	RateLimitCapacity       int
	UserStreamLimit         int
	UnreadStreamTickSeconds int
	IdentityCacheTTLSeconds int
	IdentityCacheMaxItems   int
)

// loadAppEnv loads .env for non-production environments only; production
// reads everything from the host environment.
func loadAppEnv() {
	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
}

func init() {
	loadAppEnv()

	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "" {
		AppEnv = "staging"
	}
	if !slices.Contains([]string{"staging", "production"}, AppEnv) {
		log.Fatal("environment variable APP_ENV must be 'staging' or 'production'")
	}
	IsStaging = AppEnv == "staging"
	IsProduction = AppEnv == "production"

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "5000"
	}

	MySQLDSN = os.Getenv("MYSQL_DSN")
	SQLitePath = os.Getenv("SQLITE_PATH")
	if SQLitePath == "" {
		SQLitePath = "app.db"
	}

	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 10)
	UserStreamLimit = atoiOr(os.Getenv("USER_STREAM_LIMIT"), 2)
	UnreadStreamTickSeconds = atoiOr(os.Getenv("UNREAD_STREAM_TICK_SECONDS"), 5)
	IdentityCacheTTLSeconds = atoiOr(os.Getenv("IDENTITY_CACHE_TTL_SECONDS"), 300)
	IdentityCacheMaxItems = atoiOr(os.Getenv("IDENTITY_CACHE_MAX_ITEMS"), 500)

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s IsStaging=%v IsProduction=%v", AppEnv, IsStaging, IsProduction)
	log.Printf("[config] db mysql=%v sqlitePath=%s", MySQLDSN != "", SQLitePath)
	log.Printf("[config] RateLimit window=%ds capacity=%d streamLimit=%d unreadTick=%ds idCacheTTL=%ds idCacheMax=%d",
		RateLimitWindowSeconds, RateLimitCapacity, UserStreamLimit, UnreadStreamTickSeconds, IdentityCacheTTLSeconds, IdentityCacheMaxItems)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
