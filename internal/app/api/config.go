package api

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/client"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	TaxEnabled        bool
	// TaxRatePercent is the default sales tax percentage, e.g. 8.25.
	TaxRatePercent decimal.Decimal
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		TaxEnabled:        true,
	}
	if raw := strings.TrimSpace(os.Getenv("TAX_ENABLED")); raw != "" {
		cfg.TaxEnabled = isTruthy(raw)
	}
	rate := envDefault("TAX_RATE_PERCENT", "8")
	parsed, err := decimal.NewFromString(rate)
	if err != nil || parsed.IsNegative() {
		return Config{}, fmt.Errorf("TAX_RATE_PERCENT must be a non-negative decimal, got %q", rate)
	}
	cfg.TaxRatePercent = parsed
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
