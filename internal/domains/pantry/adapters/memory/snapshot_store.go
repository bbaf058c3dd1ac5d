package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

type snapshot struct {
	state ports.SnapshotState
	items []domain.PantryItem
}

// SnapshotStore keeps append-only snapshots in memory for development and tests.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*snapshot
	now       func() time.Time
}

// NewSnapshotStore constructs an empty in-memory store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: map[string]*snapshot{},
		now:       time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *SnapshotStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WriteState records the snapshot metadata. Writing an existing id replaces its state but keeps its items.
func (s *SnapshotStore) WriteState(_ context.Context, state ports.SnapshotState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Status == "" {
		state.Status = ports.SnapshotDraining
	}
	if existing, ok := s.snapshots[state.ID]; ok {
		existing.state = state
		return nil
	}
	s.snapshots[state.ID] = &snapshot{state: state}
	return nil
}

// AppendItems adds items after everything appended so far.
func (s *SnapshotStore) AppendItems(_ context.Context, snapshotID string, items []domain.PantryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok {
		return ports.ErrSnapshotNotFound
	}
	snap.items = append(snap.items, items...)
	return nil
}

// Finish records the terminal drain status.
func (s *SnapshotStore) Finish(_ context.Context, snapshotID string, status ports.SnapshotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok {
		return ports.ErrSnapshotNotFound
	}
	finishedAt := s.now()
	snap.state.Status = status
	snap.state.FinishedAt = &finishedAt
	return nil
}

// ReadPage returns a copy of the items at cursor and the number of items appended so far.
func (s *SnapshotStore) ReadPage(_ context.Context, snapshotID, partnerID string, cursor ports.Cursor) (*ports.SnapshotPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok || snap.state.PartnerID != partnerID {
		return nil, ports.ErrSnapshotNotFound
	}
	total := len(snap.items)
	start := cursor.Offset()
	if start > total {
		start = total
	}
	end := start + cursor.PageSize
	if end > total {
		end = total
	}
	items := make([]domain.PantryItem, end-start)
	copy(items, snap.items[start:end])
	return &ports.SnapshotPage{State: snap.state, Items: items, TotalKnown: total}, nil
}

// Delete removes the snapshot and its items.
func (s *SnapshotStore) Delete(_ context.Context, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshotID]; !ok {
		return ports.ErrSnapshotNotFound
	}
	delete(s.snapshots, snapshotID)
	return nil
}

// PurgeOlderThan deletes snapshots created before cutoff and reports how many were removed.
func (s *SnapshotStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, snap := range s.snapshots {
		if snap.state.CreatedAt.Before(cutoff) {
			delete(s.snapshots, id)
			purged++
		}
	}
	return purged, nil
}
