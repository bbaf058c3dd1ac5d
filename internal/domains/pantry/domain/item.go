package domain

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeBaseCost rejects cost windows priced below zero.
	ErrNegativeBaseCost = errors.New("base cost must be greater or equal to zero")
	// ErrMarkupBelowFloor rejects markups that would drive a price negative.
	ErrMarkupBelowFloor = errors.New("markup percent must be greater or equal to -100")
)

// markupFloor is the lowest markup percent that keeps prices non-negative.
var markupFloor = decimal.NewFromInt(-100)

// AvailabilityWindow marks a period during which a pantry item can be ordered.
type AvailabilityWindow struct {
	Window TimeWindow `json:"window"`
}

// BaseCostWindow is the upstream cost of an item during a period.
type BaseCostWindow struct {
	Window   TimeWindow      `json:"window"`
	BaseCost decimal.Decimal `json:"baseCost"`
}

// Validate enforces the window and cost invariants.
func (c BaseCostWindow) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if c.BaseCost.IsNegative() {
		return ErrNegativeBaseCost
	}
	return nil
}

// PartnerMarkupWindow is a partner specific percentage applied to base costs during a period.
type PartnerMarkupWindow struct {
	Window        TimeWindow      `json:"window"`
	MarkupPercent decimal.Decimal `json:"markupPercent"`
}

// Validate enforces the window invariant and the -100 percent floor.
func (m PartnerMarkupWindow) Validate() error {
	if err := m.Window.Validate(); err != nil {
		return err
	}
	if m.MarkupPercent.LessThan(markupFloor) {
		return ErrMarkupBelowFloor
	}
	return nil
}

// PricedSegment is a reconciled price valid within Window.
type PricedSegment struct {
	Window        TimeWindow      `json:"window"`
	EffectiveCost decimal.Decimal `json:"effectiveCost"`
}

// MarshalJSON renders the effective cost with exactly two decimal places.
func (p PricedSegment) MarshalJSON() ([]byte, error) {
	type segment PricedSegment
	return json.Marshal(struct {
		segment
		EffectiveCost string `json:"effectiveCost"`
	}{segment: segment(p), EffectiveCost: p.EffectiveCost.StringFixed(2)})
}

// RawPantryItem is an item as delivered by the upstream catalog, before partner pricing.
type RawPantryItem struct {
	ID           string
	Name         string
	Description  string
	Brand        string
	CustomFields map[string]string
	Availability []AvailabilityWindow
	Costs        []BaseCostWindow
}

// PantryItem is an item priced for one partner.
type PantryItem struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Brand        string               `json:"brand,omitempty"`
	CustomFields map[string]string    `json:"customFields,omitempty"`
	Availability []AvailabilityWindow `json:"availability"`
	Prices       []PricedSegment      `json:"prices"`
}

// ValidateMarkups checks every markup window, returning the first violation.
func ValidateMarkups(markups []PartnerMarkupWindow) error {
	for _, m := range markups {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}
