package types

import (
	"time"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/shared/pagination"
)

// FetchInput selects between a fresh upstream fetch and a snapshot read.
type FetchInput struct {
	PartnerID string
	Filters   domain.CatalogFilters
	Page      int
	PageSize  int
	// SnapshotID, when set, serves the page from a previously materialized snapshot.
	SnapshotID string
	// BaseURL prefixes the navigation links.
	BaseURL string
}

// SnapshotIdentifier addresses a partner's snapshot.
type SnapshotIdentifier struct {
	PartnerID  string
	SnapshotID string
}

// Pagination is the page metadata returned to callers.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	// TotalIsEstimate marks TotalItems as an approximation that callers must not rely on.
	TotalIsEstimate bool   `json:"totalIsEstimate"`
	SnapshotID      string `json:"snapshotId,omitempty"`
	SnapshotStatus  string `json:"snapshotStatus,omitempty"`
}

// Page is a priced page of pantry items.
type Page struct {
	Items      []domain.PantryItem `json:"items"`
	Pagination Pagination          `json:"pagination"`
	Links      pagination.Links    `json:"links"`
}

// DrainCommand is the serializable form of a drain request handed to durable workers. The
// upstream sequence is reopened on the worker and advanced past PagesConsumed pages.
type DrainCommand struct {
	SnapshotID    string                       `json:"snapshotId"`
	PartnerID     string                       `json:"partnerId"`
	CreatedAt     time.Time                    `json:"createdAt"`
	Filters       domain.CatalogFilters        `json:"filters"`
	Markups       []domain.PartnerMarkupWindow `json:"markups"`
	FirstPage     []domain.PantryItem          `json:"firstPage"`
	PagesConsumed int                          `json:"pagesConsumed"`
	HasMore       bool                         `json:"hasMore"`
	TraceID       string                       `json:"traceId,omitempty"`
}
