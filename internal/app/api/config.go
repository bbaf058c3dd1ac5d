package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	pantrycatalog "github.com/Apurer/pantry-partner-api/internal/domains/pantry/adapters/external/catalog"
	pantryapp "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application"
	"github.com/Apurer/pantry-partner-api/internal/platform/jobs"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port               string
	PostgresDSN        string
	TemporalAddress    string
	TemporalNamespace  string
	TemporalDisabled   bool
	CatalogBaseURL     string
	CatalogPageSize    int
	CatalogTimeout     time.Duration
	PublicBaseURL      string
	DefaultPageSize    int
	MaxPageSize        int
	EstimateMultiplier int
	DrainQueueCapacity int
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		CatalogBaseURL:    strings.TrimSpace(os.Getenv("CATALOG_BASE_URL")),
		PublicBaseURL:     strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")),
	}
	ints := []struct {
		key      string
		fallback int
		dest     *int
	}{
		{"CATALOG_PAGE_SIZE", pantrycatalog.DefaultPageSize, &cfg.CatalogPageSize},
		{"PANTRY_DEFAULT_PAGE_SIZE", 20, &cfg.DefaultPageSize},
		{"PANTRY_MAX_PAGE_SIZE", 100, &cfg.MaxPageSize},
		{"PANTRY_ESTIMATE_MULTIPLIER", pantryapp.DefaultEstimateMultiplier, &cfg.EstimateMultiplier},
		{"DRAIN_QUEUE_CAPACITY", jobs.DefaultCapacity, &cfg.DrainQueueCapacity},
	}
	for _, v := range ints {
		n, err := positiveInt(v.key, v.fallback)
		if err != nil {
			return Config{}, err
		}
		*v.dest = n
	}
	timeoutSeconds, err := positiveInt("CATALOG_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogTimeout = time.Duration(timeoutSeconds) * time.Second
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		return Config{}, fmt.Errorf("PANTRY_DEFAULT_PAGE_SIZE must not exceed PANTRY_MAX_PAGE_SIZE")
	}
	return cfg, nil
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
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
