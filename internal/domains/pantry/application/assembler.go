package application

import (
	"net/url"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
	"github.com/Apurer/pantry-partner-api/internal/shared/pagination"
)

// PageMeta describes where the assembled items came from.
type PageMeta struct {
	Total          int
	TotalEstimated bool
	SnapshotID     string
	SnapshotStatus ports.SnapshotStatus
	// Query is carried on every navigation link.
	Query url.Values
}

// AssemblePage shapes priced items into a caller-facing page. It has no side effects.
func AssemblePage(items []domain.PantryItem, cursor ports.Cursor, baseURL string, meta PageMeta) *pantrytypes.Page {
	if items == nil {
		items = []domain.PantryItem{}
	}
	totalPages := pagination.TotalPages(meta.Total, cursor.PageSize)
	return &pantrytypes.Page{
		Items: items,
		Pagination: pantrytypes.Pagination{
			CurrentPage:     cursor.Page,
			PageSize:        cursor.PageSize,
			TotalItems:      meta.Total,
			TotalPages:      totalPages,
			TotalIsEstimate: meta.TotalEstimated,
			SnapshotID:      meta.SnapshotID,
			SnapshotStatus:  string(meta.SnapshotStatus),
		},
		Links: pagination.BuildLinks(baseURL, cursor.Page, cursor.PageSize, totalPages, meta.Query),
	}
}
