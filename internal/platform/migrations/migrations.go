package migrations

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the pantry bounded context.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&snapshotStateRecord{},
		&snapshotItemRecord{},
		&partnerMarkupRecord{},
	)
}

// Snapshot state schema mirrors the pantry Postgres snapshot store.
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

// Snapshot item schema; payload holds the priced item as JSON.
type snapshotItemRecord struct {
	SnapshotID string `gorm:"primaryKey;column:snapshot_id;type:uuid"`
	Ordinal    int    `gorm:"primaryKey;column:ordinal;autoIncrement:false"`
	ItemID     string `gorm:"column:item_id;size:255"`
	Payload    []byte `gorm:"column:payload;type:jsonb"`
}

func (snapshotItemRecord) TableName() string { return "snapshot_items" }

// Partner markup schema mirrors the pantry Postgres markup provider.
type partnerMarkupRecord struct {
	ID            int64           `gorm:"primaryKey;column:id;autoIncrement"`
	PartnerID     string          `gorm:"column:partner_id;size:255;index:idx_partner_markups_order"`
	ValidFrom     *time.Time      `gorm:"column:valid_from"`
	ValidTo       *time.Time      `gorm:"column:valid_to"`
	MarkupPercent decimal.Decimal `gorm:"column:markup_percent;type:numeric(9,4)"`
	Position      int             `gorm:"column:position;index:idx_partner_markups_order"`
}

func (partnerMarkupRecord) TableName() string { return "partner_markups" }
