package ports

import (
	"context"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
)

// MarkupProvider loads the markup rules that apply to a partner.
type MarkupProvider interface {
	GetMarkups(ctx context.Context, partnerID string) ([]domain.PartnerMarkupWindow, error)
}
