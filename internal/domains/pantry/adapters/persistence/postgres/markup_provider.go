package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var _ ports.MarkupProvider = (*MarkupProvider)(nil)

// MarkupProvider reads partner markups from PostgreSQL in their configured order.
type MarkupProvider struct {
	db *gorm.DB
}

// NewMarkupProvider wires a PostgreSQL-backed markup provider.
func NewMarkupProvider(db *gorm.DB) *MarkupProvider {
	return &MarkupProvider{db: db}
}

// GetMarkups returns the partner's markups ordered by position.
func (p *MarkupProvider) GetMarkups(ctx context.Context, partnerID string) ([]domain.PartnerMarkupWindow, error) {
	if err := p.ensureDB(); err != nil {
		return nil, err
	}
	var records []partnerMarkupRecord
	if err := p.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("position ASC").Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PartnerMarkupWindow, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// Replace swaps a partner's markups, keeping the given order.
func (p *MarkupProvider) Replace(ctx context.Context, partnerID string, markups []domain.PartnerMarkupWindow) error {
	if err := p.ensureDB(); err != nil {
		return err
	}
	if err := domain.ValidateMarkups(markups); err != nil {
		return err
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("partner_id = ?", partnerID).Delete(&partnerMarkupRecord{}).Error; err != nil {
			return err
		}
		if len(markups) == 0 {
			return nil
		}
		records := make([]partnerMarkupRecord, 0, len(markups))
		for i, m := range markups {
			records = append(records, partnerMarkupRecord{
				PartnerID:     partnerID,
				ValidFrom:     m.Window.Start,
				ValidTo:       m.Window.End,
				MarkupPercent: m.MarkupPercent,
				Position:      i,
			})
		}
		return tx.Create(&records).Error
	})
}

func (p *MarkupProvider) ensureDB() error {
	if p == nil || p.db == nil {
		return errors.New("postgres markup provider not configured")
	}
	return nil
}

type partnerMarkupRecord struct {
	ID            int64           `gorm:"primaryKey;column:id;autoIncrement"`
	PartnerID     string          `gorm:"column:partner_id;size:255;index:idx_partner_markups_order"`
	ValidFrom     *time.Time      `gorm:"column:valid_from"`
	ValidTo       *time.Time      `gorm:"column:valid_to"`
	MarkupPercent decimal.Decimal `gorm:"column:markup_percent;type:numeric(9,4)"`
	Position      int             `gorm:"column:position;index:idx_partner_markups_order"`
}

func (partnerMarkupRecord) TableName() string { return "partner_markups" }

func (r partnerMarkupRecord) toDomain() domain.PartnerMarkupWindow {
	return domain.PartnerMarkupWindow{
		Window:        domain.TimeWindow{Start: r.ValidFrom, End: r.ValidTo},
		MarkupPercent: r.MarkupPercent,
	}
}
