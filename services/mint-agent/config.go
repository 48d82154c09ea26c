package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the mint agent's settings.
type Config struct {
	Env          string `validate:"oneof=development production"`
	APIURL       string `validate:"required,url"`
	CollectionID string `validate:"required"`

	// Signer is keypair (local base58 secret) or remote (external signer).
	Signer        string `validate:"oneof=keypair remote"`
	Keypair       string `validate:"required_if=Signer keypair"`
	WalletAddress string `validate:"required_if=Signer remote"`
	SignerURL     string `validate:"required_if=Signer remote"`
	RPCURL        string

	Mode     string `validate:"oneof=random choices"`
	Quantity int    `validate:"gte=1"`
	ItemIDs  []string

	ConfirmAttempts int           `validate:"gte=0"`
	ConfirmInterval time.Duration `validate:"gt=0"`
	ExpiryScan      time.Duration `validate:"gt=0"`
	PollInFlight    time.Duration `validate:"gt=0"`
	PollActive      time.Duration `validate:"gt=0"`
	PollIdle        time.Duration `validate:"gt=0"`
	PollIdleMax     time.Duration `validate:"gtefield=PollIdle"`
}

// LoadConfig reads configuration from the environment, loading .env first
// when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		APIURL:          getEnv("LAUNCHPAD_API_URL", "http://localhost:8095"),
		CollectionID:    os.Getenv("COLLECTION_ID"),
		Signer:          getEnv("SIGNER", "keypair"),
		Keypair:         os.Getenv("WALLET_KEYPAIR"),
		WalletAddress:   os.Getenv("WALLET_ADDRESS"),
		SignerURL:       os.Getenv("SIGNER_URL"),
		RPCURL:          os.Getenv("SOLANA_RPC_URL"),
		Mode:            getEnv("MINT_MODE", "random"),
		Quantity:        getInt("MINT_QUANTITY", 1),
		ItemIDs:         splitList(os.Getenv("MINT_ITEM_IDS")),
		ConfirmAttempts: getInt("CONFIRM_ATTEMPTS", 10),
		ConfirmInterval: getDuration("CONFIRM_INTERVAL", 3*time.Second),
		ExpiryScan:      getDuration("LOCK_EXPIRY_SCAN", 5*time.Second),
		PollInFlight:    getDuration("POLL_IN_FLIGHT", 2*time.Second),
		PollActive:      getDuration("POLL_ACTIVE", 3*time.Second),
		PollIdle:        getDuration("POLL_IDLE", 5*time.Second),
		PollIdleMax:     getDuration("POLL_IDLE_MAX", 15*time.Second),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Mode == "choices" && len(cfg.ItemIDs) == 0 {
		return nil, fmt.Errorf("MINT_ITEM_IDS is required in choices mode")
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
