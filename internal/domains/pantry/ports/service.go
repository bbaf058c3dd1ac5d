package ports

import (
	"context"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
)

// Service defines the pantry use cases exposed to adapters (inbound/driving port).
type Service interface {
	Fetch(ctx context.Context, input pantrytypes.FetchInput) (*pantrytypes.Page, error)
	DeleteSnapshot(ctx context.Context, input pantrytypes.SnapshotIdentifier) error
}
