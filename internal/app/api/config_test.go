package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "POSTGRES_DSN", "TEMPORAL_DISABLED", "CATALOG_BASE_URL", "CATALOG_PAGE_SIZE",
		"CATALOG_TIMEOUT_SECONDS", "PANTRY_DEFAULT_PAGE_SIZE", "PANTRY_MAX_PAGE_SIZE", "PANTRY_ESTIMATE_MULTIPLIER", "DRAIN_QUEUE_CAPACITY"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.False(t, cfg.TemporalDisabled)
	require.Equal(t, 100, cfg.CatalogPageSize)
	require.Equal(t, 10*time.Second, cfg.CatalogTimeout)
	require.Equal(t, 20, cfg.DefaultPageSize)
	require.Equal(t, 100, cfg.MaxPageSize)
	require.Equal(t, 10, cfg.EstimateMultiplier)
	require.Equal(t, 64, cfg.DrainQueueCapacity)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TEMPORAL_DISABLED", "yes")
	t.Setenv("CATALOG_BASE_URL", " http://catalog:8081 ")
	t.Setenv("CATALOG_TIMEOUT_SECONDS", "3")
	t.Setenv("PANTRY_DEFAULT_PAGE_SIZE", "5")
	t.Setenv("PANTRY_MAX_PAGE_SIZE", "50")
	t.Setenv("PANTRY_ESTIMATE_MULTIPLIER", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.True(t, cfg.TemporalDisabled)
	require.Equal(t, "http://catalog:8081", cfg.CatalogBaseURL)
	require.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	require.Equal(t, 5, cfg.DefaultPageSize)
	require.Equal(t, 50, cfg.MaxPageSize)
	require.Equal(t, 4, cfg.EstimateMultiplier)
}

func TestLoadConfig_RejectsInvalidNumbers(t *testing.T) {
	t.Setenv("PANTRY_MAX_PAGE_SIZE", "0")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "PANTRY_MAX_PAGE_SIZE")

	t.Setenv("PANTRY_MAX_PAGE_SIZE", "10")
	t.Setenv("PANTRY_DEFAULT_PAGE_SIZE", "20")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "must not exceed")

	t.Setenv("PANTRY_DEFAULT_PAGE_SIZE", "")
	t.Setenv("DRAIN_QUEUE_CAPACITY", "many")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "DRAIN_QUEUE_CAPACITY")
}
