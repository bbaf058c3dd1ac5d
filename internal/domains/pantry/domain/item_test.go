package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPricedSegment_JSONKeepsCents(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	segment := PricedSegment{Window: TimeWindow{Start: &start}, EffectiveCost: dec("10.5")}

	raw, err := json.Marshal(segment)
	require.NoError(t, err)
	require.JSONEq(t, `{"window":{"start":"2025-01-01T00:00:00Z"},"effectiveCost":"10.50"}`, string(raw))

	var decoded PricedSegment
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.True(t, decoded.EffectiveCost.Equal(dec("10.50")))
	require.Equal(t, start, *decoded.Window.Start)
}

func TestPricedSegment_JSONInsideItem(t *testing.T) {
	item := PantryItem{ID: "sku-01", Name: "Rice", Prices: []PricedSegment{{EffectiveCost: dec("7")}}}

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"effectiveCost":"7.00"`)
}
