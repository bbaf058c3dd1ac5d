package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore persists snapshots in PostgreSQL. Items carry a dense ordinal per snapshot and the
// state row tracks how many are committed, so readers never see a gap.
type SnapshotStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSnapshotStore wires a PostgreSQL-backed snapshot store.
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (s *SnapshotStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WriteState upserts the snapshot metadata without touching its items.
func (s *SnapshotStore) WriteState(ctx context.Context, state ports.SnapshotState) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if state.Status == "" {
		state.Status = ports.SnapshotDraining
	}
	record := toStateRecord(state)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"partner_id", "created_at", "available_from", "available_to", "brand", "status", "finished_at"}),
	}).Create(&record).Error
}

// AppendItems stores items after the last committed ordinal in one transaction.
func (s *SnapshotStore) AppendItems(ctx context.Context, snapshotID string, items []domain.PantryItem) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state snapshotStateRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&state, "id = ?", snapshotID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ErrSnapshotNotFound
		}
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		records := make([]snapshotItemRecord, 0, len(items))
		for i, item := range items {
			records = append(records, snapshotItemRecord{
				SnapshotID: snapshotID,
				Ordinal:    state.ItemCount + i,
				ItemID:     item.ID,
				Payload:    item,
			})
		}
		if err := tx.CreateInBatches(&records, 500).Error; err != nil {
			return err
		}
		return tx.Model(&snapshotStateRecord{}).
			Where("id = ?", snapshotID).
			Update("item_count", state.ItemCount+len(items)).Error
	})
}

// Finish records the terminal drain status.
func (s *SnapshotStore) Finish(ctx context.Context, snapshotID string, status ports.SnapshotStatus) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	finishedAt := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&snapshotStateRecord{}).
		Where("id = ?", snapshotID).
		Updates(map[string]any{"status": string(status), "finished_at": finishedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrSnapshotNotFound
	}
	return nil
}

// ReadPage returns the committed items at cursor together with the committed count.
func (s *SnapshotStore) ReadPage(ctx context.Context, snapshotID, partnerID string, cursor ports.Cursor) (*ports.SnapshotPage, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var state snapshotStateRecord
	if err := db.First(&state, "id = ? AND partner_id = ?", snapshotID, partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrSnapshotNotFound
		}
		return nil, err
	}
	start := cursor.Offset()
	end := start + cursor.PageSize
	if end > state.ItemCount {
		end = state.ItemCount
	}
	items := []domain.PantryItem{}
	if start < end {
		var records []snapshotItemRecord
		if err := db.Where("snapshot_id = ? AND ordinal >= ? AND ordinal < ?", snapshotID, start, end).
			Order("ordinal ASC").
			Find(&records).Error; err != nil {
			return nil, err
		}
		for _, rec := range records {
			items = append(items, rec.Payload)
		}
	}
	return &ports.SnapshotPage{State: state.toDomain(), Items: items, TotalKnown: state.ItemCount}, nil
}

// Delete removes the snapshot state and its items.
func (s *SnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot_id = ?", snapshotID).Delete(&snapshotItemRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", snapshotID).Delete(&snapshotStateRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ports.ErrSnapshotNotFound
		}
		return nil
	})
}

// PurgeOlderThan deletes snapshots created before cutoff and reports how many were removed.
func (s *SnapshotStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&snapshotStateRecord{}).Where("created_at < ?", cutoff.UTC()).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("snapshot_id = ANY(?)", pq.Array(ids)).Delete(&snapshotItemRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ANY(?)", pq.Array(ids)).Delete(&snapshotStateRecord{})
		if result.Error != nil {
			return result.Error
		}
		purged = result.RowsAffected
		return nil
	})
	return purged, err
}

func (s *SnapshotStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres snapshot store not configured")
	}
	return nil
}

type snapshotStateRecord struct {
	ID            string     `gorm:"primaryKey;column:id;type:uuid"`
	PartnerID     string     `gorm:"column:partner_id;size:255;index"`
	CreatedAt     time.Time  `gorm:"column:created_at;index"`
	AvailableFrom *time.Time `gorm:"column:available_from"`
	AvailableTo   *time.Time `gorm:"column:available_to"`
	Brand         string     `gorm:"column:brand;size:255"`
	Status        string     `gorm:"column:status;type:varchar(16)"`
	FinishedAt    *time.Time `gorm:"column:finished_at"`
	ItemCount     int        `gorm:"column:item_count;not null;default:0"`
}

func (snapshotStateRecord) TableName() string { return "snapshot_states" }

type snapshotItemRecord struct {
	SnapshotID string            `gorm:"primaryKey;column:snapshot_id;type:uuid"`
	Ordinal    int               `gorm:"primaryKey;column:ordinal;autoIncrement:false"`
	ItemID     string            `gorm:"column:item_id;size:255"`
	Payload    domain.PantryItem `gorm:"column:payload;type:jsonb;serializer:json"`
}

func (snapshotItemRecord) TableName() string { return "snapshot_items" }

func toStateRecord(state ports.SnapshotState) snapshotStateRecord {
	return snapshotStateRecord{
		ID:            state.ID,
		PartnerID:     state.PartnerID,
		CreatedAt:     state.CreatedAt.UTC(),
		AvailableFrom: state.Filters.AvailableFrom,
		AvailableTo:   state.Filters.AvailableTo,
		Brand:         state.Filters.Brand,
		Status:        string(state.Status),
		FinishedAt:    state.FinishedAt,
	}
}

func (r snapshotStateRecord) toDomain() ports.SnapshotState {
	return ports.SnapshotState{
		ID:        r.ID,
		PartnerID: r.PartnerID,
		CreatedAt: r.CreatedAt,
		Filters: domain.CatalogFilters{
			AvailableFrom: r.AvailableFrom,
			AvailableTo:   r.AvailableTo,
			Brand:         r.Brand,
		},
		Status:     ports.SnapshotStatus(r.Status),
		FinishedAt: r.FinishedAt,
	}
}
