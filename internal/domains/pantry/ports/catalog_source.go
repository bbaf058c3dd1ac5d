package ports

import (
	"context"
	"errors"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
)

// ErrSequenceExhausted is returned by PageIterator.Next once the final page has been delivered.
var ErrSequenceExhausted = errors.New("catalog page sequence exhausted")

// CatalogFilters narrows the upstream catalog query.
type CatalogFilters = domain.CatalogFilters

// CatalogPage is one upstream page of raw items.
type CatalogPage struct {
	Number  int
	Items   []domain.RawPantryItem
	HasNext bool
}

// PageIterator pulls upstream pages on demand. It is forward-only and cannot be rewound.
type PageIterator interface {
	Next(ctx context.Context) (*CatalogPage, error)
}

// CatalogSource opens lazy page sequences over the upstream catalog. Each call starts again from page 1.
type CatalogSource interface {
	Pages(ctx context.Context, filters CatalogFilters) (PageIterator, error)
}
