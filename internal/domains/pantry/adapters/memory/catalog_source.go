package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var _ ports.CatalogSource = (*CatalogSource)(nil)

// DefaultPageSize is the upstream page size used when none is configured.
const DefaultPageSize = 100

// CatalogSource pages over a fixed list of raw items. It stands in for the upstream catalog
// in development and tests.
type CatalogSource struct {
	mu       sync.RWMutex
	items    []domain.RawPantryItem
	pageSize int
}

// NewCatalogSource builds a static catalog served in pages of pageSize.
func NewCatalogSource(pageSize int, items ...domain.RawPantryItem) *CatalogSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CatalogSource{items: append([]domain.RawPantryItem{}, items...), pageSize: pageSize}
}

// Replace swaps the catalog contents. Sequences already opened keep their view.
func (c *CatalogSource) Replace(items ...domain.RawPantryItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]domain.RawPantryItem{}, items...)
}

// Pages opens a sequence over the items matching filters, starting from page 1.
func (c *CatalogSource) Pages(_ context.Context, filters ports.CatalogFilters) (ports.PageIterator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	matched := make([]domain.RawPantryItem, 0, len(c.items))
	for _, item := range c.items {
		if matches(item, filters) {
			matched = append(matched, item)
		}
	}
	return &pageIterator{items: matched, pageSize: c.pageSize}, nil
}

type pageIterator struct {
	mu       sync.Mutex
	items    []domain.RawPantryItem
	pageSize int
	page     int
	done     bool
}

func (it *pageIterator) Next(ctx context.Context) (*ports.CatalogPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.done {
		return nil, ports.ErrSequenceExhausted
	}
	start := it.page * it.pageSize
	end := start + it.pageSize
	if end > len(it.items) {
		end = len(it.items)
	}
	it.page++
	page := &ports.CatalogPage{
		Number:  it.page,
		Items:   append([]domain.RawPantryItem{}, it.items[start:end]...),
		HasNext: end < len(it.items),
	}
	it.done = !page.HasNext
	return page, nil
}

func matches(item domain.RawPantryItem, filters ports.CatalogFilters) bool {
	if filters.Brand != "" && !strings.EqualFold(strings.TrimSpace(item.Brand), filters.Brand) {
		return false
	}
	if filters.AvailableFrom == nil && filters.AvailableTo == nil {
		return true
	}
	if len(item.Availability) == 0 {
		return true
	}
	wanted := domain.TimeWindow{Start: filters.AvailableFrom, End: filters.AvailableTo}
	for _, a := range item.Availability {
		if domain.Overlaps(wanted, a.Window) {
			return true
		}
	}
	return false
}
