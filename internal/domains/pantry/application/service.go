package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

// DefaultEstimateMultiplier scales the first page count into the total reported on fresh fetches
// that have more upstream pages. The result is an approximation only.
const DefaultEstimateMultiplier = 10

// Service orchestrates pantry fetches: fresh upstream reads with a background snapshot drain, and
// snapshot-backed re-pagination.
type Service struct {
	catalog            ports.CatalogSource
	snapshots          ports.SnapshotStore
	markups            ports.MarkupProvider
	drains             ports.DrainScheduler
	now                func() time.Time
	newID              func() string
	estimateMultiplier int
	logger             *slog.Logger
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides snapshot id minting.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithEstimateMultiplier sets the multiplier applied to the first page count when more pages follow.
func WithEstimateMultiplier(multiplier int) Option {
	return func(s *Service) {
		if multiplier > 0 {
			s.estimateMultiplier = multiplier
		}
	}
}

// WithLogger injects the logger used for scheduling problems the caller never sees.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the pantry service with its dependencies.
func NewService(catalog ports.CatalogSource, snapshots ports.SnapshotStore, markups ports.MarkupProvider, drains ports.DrainScheduler, opts ...Option) *Service {
	s := &Service{
		catalog:            catalog,
		snapshots:          snapshots,
		markups:            markups,
		drains:             drains,
		now:                time.Now,
		newID:              func() string { return uuid.NewString() },
		estimateMultiplier: DefaultEstimateMultiplier,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Fetch serves a page of priced pantry items. With a snapshot id the page is read from the snapshot;
// otherwise the first upstream page is priced and returned while the rest is drained in the background.
func (s *Service) Fetch(ctx context.Context, input pantrytypes.FetchInput) (*pantrytypes.Page, error) {
	if strings.TrimSpace(input.PartnerID) == "" {
		return nil, fmt.Errorf("%w: partner id is required", ErrInvalidInput)
	}
	cursor, err := cursorFrom(input)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(input.SnapshotID); id != "" {
		return s.fetchSnapshot(ctx, input.PartnerID, id, cursor, input.BaseURL)
	}
	return s.fetchFresh(ctx, input, cursor)
}

// DeleteSnapshot removes a snapshot owned by the partner.
func (s *Service) DeleteSnapshot(ctx context.Context, input pantrytypes.SnapshotIdentifier) error {
	id, err := parseSnapshotID(input.SnapshotID)
	if err != nil {
		return err
	}
	if _, err := s.snapshots.ReadPage(ctx, id, input.PartnerID, ports.Cursor{Page: 1, PageSize: 1}); err != nil {
		if errors.Is(err, ports.ErrSnapshotNotFound) {
			return mapError(err)
		}
		return &StoreError{Op: "read_page", Err: err}
	}
	if err := s.snapshots.Delete(ctx, id); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

func (s *Service) fetchSnapshot(ctx context.Context, partnerID, rawID string, cursor ports.Cursor, baseURL string) (*pantrytypes.Page, error) {
	id, err := parseSnapshotID(rawID)
	if err != nil {
		return nil, err
	}
	page, err := s.snapshots.ReadPage(ctx, id, partnerID, cursor)
	if err != nil {
		if errors.Is(err, ports.ErrSnapshotNotFound) {
			return nil, mapError(err)
		}
		return nil, &StoreError{Op: "read_page", Err: err}
	}
	return AssemblePage(page.Items, cursor, baseURL, PageMeta{
		Total:          page.TotalKnown,
		TotalEstimated: page.State.Status != ports.SnapshotComplete,
		SnapshotID:     id,
		SnapshotStatus: page.State.Status,
		Query:          url.Values{"snapshotId": {id}},
	}), nil
}

func (s *Service) fetchFresh(ctx context.Context, input pantrytypes.FetchInput, cursor ports.Cursor) (*pantrytypes.Page, error) {
	filters, err := input.Filters.Normalize()
	if err != nil {
		return nil, mapError(err)
	}
	markups, err := s.markups.GetMarkups(ctx, input.PartnerID)
	if err != nil {
		return nil, &StoreError{Op: "get_markups", Err: err}
	}
	if err := domain.ValidateMarkups(markups); err != nil {
		return nil, mapError(err)
	}

	snapshotID := s.newID()
	createdAt := s.now().UTC()

	sequence, err := s.catalog.Pages(ctx, filters)
	if err != nil {
		return nil, &UpstreamError{Page: 1, Err: err}
	}
	first, err := sequence.Next(ctx)
	switch {
	case errors.Is(err, ports.ErrSequenceExhausted):
		first = &ports.CatalogPage{Number: 1}
	case err != nil:
		return nil, &UpstreamError{Page: 1, Err: err}
	}
	items := domain.PriceItems(first.Items, markups)

	req := ports.DrainRequest{
		SnapshotID:    snapshotID,
		PartnerID:     input.PartnerID,
		CreatedAt:     createdAt,
		Filters:       filters,
		Markups:       markups,
		FirstPage:     items,
		PagesConsumed: 1,
	}
	if first.HasNext {
		req.Remaining = sequence
	}
	// The state goes in before the link is handed out so the snapshot reads as an empty draining
	// prefix while the drain waits in the queue.
	if err := s.snapshots.WriteState(ctx, ports.SnapshotState{
		ID:        snapshotID,
		PartnerID: input.PartnerID,
		CreatedAt: createdAt,
		Filters:   filters,
		Status:    ports.SnapshotDraining,
	}); err != nil {
		return nil, &StoreError{Op: "write_state", Err: err}
	}
	query := filterQuery(filters)
	if err := s.drains.Schedule(ctx, req); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "snapshot drain not scheduled",
			slog.String("snapshot.id", snapshotID), slog.String("error", err.Error()))
		if delErr := s.snapshots.Delete(ctx, snapshotID); delErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to remove unscheduled snapshot",
				slog.String("snapshot.id", snapshotID), slog.String("error", delErr.Error()))
		}
		snapshotID = ""
	} else {
		query = url.Values{"snapshotId": {snapshotID}}
	}

	cursor.Page = 1
	visible := items
	if len(visible) > cursor.PageSize {
		visible = visible[:cursor.PageSize]
	}
	meta := PageMeta{
		Total:          EstimateTotal(len(items), first.HasNext, s.estimateMultiplier),
		TotalEstimated: first.HasNext,
		SnapshotID:     snapshotID,
		Query:          query,
	}
	if snapshotID != "" {
		meta.SnapshotStatus = ports.SnapshotDraining
	}
	return AssemblePage(visible, cursor, input.BaseURL, meta), nil
}

// EstimateTotal approximates the full result size from the first upstream page. When the upstream
// reported no further pages the count is exact.
func EstimateTotal(firstPageCount int, hasNext bool, multiplier int) int {
	if !hasNext {
		return firstPageCount
	}
	if multiplier < 1 {
		multiplier = 1
	}
	return firstPageCount * multiplier
}

func cursorFrom(input pantrytypes.FetchInput) (ports.Cursor, error) {
	cursor := ports.Cursor{Page: input.Page, PageSize: input.PageSize}
	if cursor.Page == 0 {
		cursor.Page = 1
	}
	if cursor.Page < 1 {
		return ports.Cursor{}, fmt.Errorf("%w: page must be greater than zero", ErrInvalidInput)
	}
	if cursor.PageSize < 1 {
		return ports.Cursor{}, fmt.Errorf("%w: page size must be greater than zero", ErrInvalidInput)
	}
	return cursor, nil
}

func parseSnapshotID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, ports.ErrSnapshotNotFound)
	}
	return id.String(), nil
}

func filterQuery(filters domain.CatalogFilters) url.Values {
	query := url.Values{}
	if filters.AvailableFrom != nil {
		query.Set("availableFrom", filters.AvailableFrom.UTC().Format(time.RFC3339))
	}
	if filters.AvailableTo != nil {
		query.Set("availableTo", filters.AvailableTo.UTC().Format(time.RFC3339))
	}
	if filters.Brand != "" {
		query.Set("brand", filters.Brand)
	}
	return query
}

var _ ports.Service = (*Service)(nil)
