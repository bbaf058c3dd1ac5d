package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	catalogclient "github.com/Apurer/pantry-partner-api/internal/clients/http/catalog"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var _ ports.CatalogSource = (*Source)(nil)

// DefaultPageSize is the upstream page size requested when none is configured.
const DefaultPageSize = 100

// ItemLister fetches one upstream page.
type ItemLister interface {
	ListItems(ctx context.Context, params catalogclient.ListItemsParams) (*catalogclient.ItemsPage, error)
}

// Source adapts the upstream catalog API to the catalog port.
type Source struct {
	client   ItemLister
	pageSize int
	logger   *slog.Logger
}

// Option configures optional Source settings.
type Option func(*Source)

// WithPageSize sets the upstream page size.
func WithPageSize(size int) Option {
	return func(s *Source) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithLogger injects the logger that reports dropped windows.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSource wires the catalog client into a page source.
func NewSource(client ItemLister, opts ...Option) *Source {
	s := &Source{
		client:   client,
		pageSize: DefaultPageSize,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Pages opens a lazy sequence; no upstream call happens until the first Next.
func (s *Source) Pages(_ context.Context, filters ports.CatalogFilters) (ports.PageIterator, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("catalog source not configured")
	}
	return &iterator{source: s, filters: filters}, nil
}

type iterator struct {
	mu      sync.Mutex
	source  *Source
	filters domain.CatalogFilters
	page    int
	done    bool
}

func (it *iterator) Next(ctx context.Context) (*ports.CatalogPage, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.done {
		return nil, ports.ErrSequenceExhausted
	}
	number := it.page + 1
	resp, err := it.source.client.ListItems(ctx, ToListParams(it.filters, number, it.source.pageSize))
	if err != nil {
		return nil, err
	}
	it.page = number
	page := &ports.CatalogPage{Number: number, HasNext: resp.HasNext, Items: make([]domain.RawPantryItem, 0, len(resp.Items))}
	for _, item := range resp.Items {
		raw, dropped := ToRawItem(item)
		for _, d := range dropped {
			it.source.logger.LogAttrs(ctx, slog.LevelWarn, "dropped malformed catalog window",
				slog.String("item.id", d.ItemID),
				slog.String("field", d.Field),
				slog.String("reason", d.Reason),
				slog.Int("page", number),
			)
		}
		page.Items = append(page.Items, raw)
	}
	it.done = !resp.HasNext
	return page, nil
}
