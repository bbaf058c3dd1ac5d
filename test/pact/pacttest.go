//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "pantry-partner-api"
	ConsumerName = "partner-portal"

	StateCatalogSeeded  = "catalog seeded with priced items for partner-1"
	StateSnapshotExists = "snapshot 3f1c2a4e-7a9b-4c1d-8e2f-0a1b2c3d4e5f exists for partner-1"
	StateNoSnapshot     = "no snapshots exist"
)

const (
	PartnerID         = "partner-1"
	SnapshotID        = "3f1c2a4e-7a9b-4c1d-8e2f-0a1b2c3d4e5f"
	MissingSnapshotID = "9d1b4a43-4b3e-4f0a-9c57-3f8f9b0d6a21"
	PartnerHeader     = "X-Partner-ID"
)

const (
	exampleItemID    = "sku-01"
	exampleItemName  = "Arborio rice"
	exampleBrand     = "Riso Gallo"
	exampleBaseCost  = "10.00"
	exampleMarkup    = "5"
	exampleSeasonEnd = "2025-03-30T00:00:00Z"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the partner portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleItem describes the single catalog item both sides agree on.
type ExampleItem struct {
	ID        string
	Name      string
	Brand     string
	BaseCost  string
	Markup    string
	SeasonEnd string
}

// Example returns stable test data for pact interactions.
func Example() ExampleItem {
	return ExampleItem{
		ID:        exampleItemID,
		Name:      exampleItemName,
		Brand:     exampleBrand,
		BaseCost:  exampleBaseCost,
		Markup:    exampleMarkup,
		SeasonEnd: exampleSeasonEnd,
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
