package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	wire "github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/database"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the launchpad API.
type Config struct {
	Env  string `validate:"oneof=development production"`
	Port string `validate:"required,numeric"`

	CatalogStore string `validate:"oneof=memory postgres"`
	LockStore    string `validate:"oneof=memory redis"`
	RedisURL     string `validate:"required_if=LockStore redis"`
	Postgres     database.PostgresConfig

	KafkaBrokers []string
	KafkaTopic   string `validate:"required"`

	MintSNSTopicARN     string
	CloudWatchEnabled   bool
	CloudWatchNamespace string

	RPCURL          string
	TreasuryAddress string `validate:"required"`

	LockTTL        time.Duration `validate:"min=1000000000"`
	RequestTimeout time.Duration
	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=1"`
	AllowOrigins   []string

	// Demo catalog seeded on start when SeedCollectionID is set.
	SeedCollectionID  string
	SeedSupply        int           `validate:"gte=0"`
	SeedMintType      wire.MintType `validate:"oneof=hidden choices agent_only agent_and_human"`
	SeedPriceLamports uint64
	SeedMaxPerWallet  int `validate:"gte=0"`
}

// LoadConfig reads configuration from the environment, loading .env first
// when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:          getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8095"),
		CatalogStore: getEnv("CATALOG_STORE", "memory"),
		LockStore:    getEnv("LOCK_STORE", "memory"),
		RedisURL:     os.Getenv("REDIS_URL"),
		Postgres: database.PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getEnv("KAFKA_MINT_TOPIC", "ordinal.minted"),
		MintSNSTopicARN:     os.Getenv("MINT_SNS_TOPIC_ARN"),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Launchpad"),
		RPCURL:              os.Getenv("SOLANA_RPC_URL"),
		TreasuryAddress:     getEnv("TREASURY_ADDRESS", "11111111111111111111111111111111"),
		LockTTL:             getDuration("LOCK_TTL", 5*time.Minute),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:        getFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 5),
		AllowOrigins:        splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		SeedCollectionID:    os.Getenv("SEED_COLLECTION_ID"),
		SeedSupply:          getInt("SEED_SUPPLY", 100),
		SeedMintType:        wire.MintType(getEnv("SEED_MINT_TYPE", string(wire.MintTypeHidden))),
		SeedPriceLamports:   uint64(getInt("SEED_PRICE_LAMPORTS", 10_000_000)),
		SeedMaxPerWallet:    getInt("SEED_MAX_PER_WALLET", 5),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.CatalogStore == "postgres" && (cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.DB == "") {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
