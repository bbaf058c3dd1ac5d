package memory

import (
	"context"
	"sync"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var _ ports.MarkupProvider = (*MarkupProvider)(nil)

// MarkupProvider serves partner markups from memory.
type MarkupProvider struct {
	mu      sync.RWMutex
	markups map[string][]domain.PartnerMarkupWindow
}

func NewMarkupProvider() *MarkupProvider {
	return &MarkupProvider{markups: map[string][]domain.PartnerMarkupWindow{}}
}

// Set replaces the markups of a partner. Order is preserved; the first overlapping markup wins during pricing.
func (p *MarkupProvider) Set(partnerID string, markups []domain.PartnerMarkupWindow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markups[partnerID] = append([]domain.PartnerMarkupWindow{}, markups...)
}

func (p *MarkupProvider) GetMarkups(_ context.Context, partnerID string) ([]domain.PartnerMarkupWindow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.PartnerMarkupWindow{}, p.markups[partnerID]...), nil
}
