package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
)

// ErrSnapshotNotFound indicates the snapshot does not exist for the requesting partner.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStatus tracks how far the background drain of a snapshot got.
type SnapshotStatus string

const (
	SnapshotDraining SnapshotStatus = "draining"
	SnapshotComplete SnapshotStatus = "complete"
	SnapshotPartial  SnapshotStatus = "partial"
)

// SnapshotState is the metadata record written before any snapshot items.
type SnapshotState struct {
	ID         string
	PartnerID  string
	CreatedAt  time.Time
	Filters    CatalogFilters
	Status     SnapshotStatus
	FinishedAt *time.Time
}

// Cursor addresses a page by number (1-based) and size.
type Cursor struct {
	Page     int
	PageSize int
}

// Offset returns the zero-based index of the first item of the page.
func (c Cursor) Offset() int {
	if c.Page < 1 {
		return 0
	}
	return (c.Page - 1) * c.PageSize
}

// SnapshotPage is the result of reading a page from a snapshot.
type SnapshotPage struct {
	State      SnapshotState
	Items      []domain.PantryItem
	TotalKnown int
}

// SnapshotStore persists append-only snapshots of priced items.
type SnapshotStore interface {
	// WriteState records the snapshot metadata with status draining.
	WriteState(ctx context.Context, state SnapshotState) error
	// AppendItems adds items after every previously appended item.
	AppendItems(ctx context.Context, snapshotID string, items []domain.PantryItem) error
	// Finish records the terminal drain status.
	Finish(ctx context.Context, snapshotID string, status SnapshotStatus) error
	// ReadPage returns the items at cursor plus the number of items appended so far.
	// ErrSnapshotNotFound is returned when the snapshot is unknown for the partner.
	ReadPage(ctx context.Context, snapshotID, partnerID string, cursor Cursor) (*SnapshotPage, error)
	// Delete removes the snapshot and its items.
	Delete(ctx context.Context, snapshotID string) error
}
