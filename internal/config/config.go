package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"storefront/internal/domain/cart"

	"golang.org/x/text/currency"
)

const (
	CartStorePostgres = "postgres"
	CartStoreMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL string // DATABASE_URL か POSTGRES_* から組み立てたDSN

	CartTokenSecret string        // カートトークン署名シークレット
	CartTokenTTL    time.Duration // カートトークンの有効期間
	CartStore       string        // postgres / memory

	StockPolicy cart.StockPolicy // none / clamp
	Currency    currency.Unit    // 表示用通貨

	LogLevel string // debug/info/warn/error
	GoEnv    string // dev/prod
	FEURL    string // フロントURL（CORS）
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Loadは環境変数（serve用、カートトークンの設定も必須）
func Load() (Config, error) {
	cfg, err := LoadDB()
	if err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.CartTokenSecret == "" {
		return Config{}, fmt.Errorf("CART_TOKEN_SECRET is required")
	}
	if cfg.IsProd() && len(cfg.CartTokenSecret) < 32 {
		return Config{}, fmt.Errorf("CART_TOKEN_SECRET must be at least 32 bytes in prod")
	}
	if cfg.CartTokenTTL <= 0 {
		return Config{}, fmt.Errorf("CART_TOKEN_TTL must be positive")
	}
	switch cfg.CartStore {
	case CartStorePostgres, CartStoreMemory:
	default:
		return Config{}, fmt.Errorf("CART_STORE must be postgres or memory")
	}

	return cfg, nil
}

// LoadDB はmigrate/seed用。DB以外の必須チェックはしない。
func LoadDB() (Config, error) {
	ttl, err := parseDuration("CART_TOKEN_TTL", 30*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	policy, err := cart.ParseStockPolicy(os.Getenv("STOCK_POLICY"))
	if err != nil {
		return Config{}, fmt.Errorf("STOCK_POLICY: %w", err)
	}

	cur, err := currency.ParseISO(getenv("CURRENCY", "USD"))
	if err != nil {
		return Config{}, fmt.Errorf("CURRENCY must be ISO 4217: %w", err)
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL: databaseURL(),

		CartTokenSecret: os.Getenv("CART_TOKEN_SECRET"),
		CartTokenTTL:    ttl,
		CartStore:       strings.ToLower(getenv("CART_STORE", CartStorePostgres)),

		StockPolicy: policy,
		Currency:    cur,

		LogLevel: getenv("LOG_LEVEL", "info"),
		GoEnv:    getenv("GO_ENV", "dev"),
		FEURL:    os.Getenv("FE_URL"),
	}
	return cfg, nil
}

// DATABASE_URL があれば最優先で使う
func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("POSTGRES_HOST", "localhost"),
		getenv("POSTGRES_PORT", "5432"),
		getenv("POSTGRES_USER", "postgres"),
		getenv("POSTGRES_PASSWORD", "postgres"),
		getenv("POSTGRES_DB", "storefront"),
		getenv("POSTGRES_SSLMODE", "disable"),
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
