package domain

import (
	"github.com/shopspring/decimal"
)

// pricePlaces is the number of decimal places prices are rounded to.
const pricePlaces = 2

var hundred = decimal.NewFromInt(100)

// Reconcile computes the priced segments of a single item from its availability, base cost and
// partner markup windows.
//
// The timeline is partitioned at every boundary of every input window. A segment yields a price for
// each overlapping cost window, provided the item is available in the segment (an empty availability
// list means always available) and at least one markup overlaps it. The first overlapping markup in
// input order wins. Costs without a markup are never emitted unmarked.
func Reconcile(availability []AvailabilityWindow, costs []BaseCostWindow, markups []PartnerMarkupWindow) []PricedSegment {
	windows := make([]TimeWindow, 0, len(availability)+len(costs)+len(markups))
	for _, a := range availability {
		windows = append(windows, a.Window)
	}
	for _, c := range costs {
		windows = append(windows, c.Window)
	}
	for _, m := range markups {
		windows = append(windows, m.Window)
	}

	var priced []PricedSegment
	for _, segment := range Partition(windows) {
		if len(availability) > 0 && !availableIn(segment, availability) {
			continue
		}
		for _, cost := range costs {
			if !Overlaps(segment, cost.Window) {
				continue
			}
			markup, ok := firstMarkup(segment, markups)
			if !ok {
				continue
			}
			priced = append(priced, PricedSegment{
				Window:        segment,
				EffectiveCost: ApplyMarkup(cost.BaseCost, markup.MarkupPercent),
			})
		}
	}
	return priced
}

// ApplyMarkup returns base * (1 + percent/100) rounded half-up to cents.
func ApplyMarkup(base, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(percent.Div(hundred))
	return base.Mul(factor).Round(pricePlaces)
}

// PriceItem reconciles a raw upstream item against the partner's markups.
func PriceItem(raw RawPantryItem, markups []PartnerMarkupWindow) PantryItem {
	prices := Reconcile(raw.Availability, raw.Costs, markups)
	if prices == nil {
		prices = []PricedSegment{}
	}
	availability := append([]AvailabilityWindow{}, raw.Availability...)
	return PantryItem{
		ID:           raw.ID,
		Name:         raw.Name,
		Description:  raw.Description,
		Brand:        raw.Brand,
		CustomFields: cloneFields(raw.CustomFields),
		Availability: availability,
		Prices:       prices,
	}
}

// PriceItems prices a page of raw items, preserving order.
func PriceItems(raw []RawPantryItem, markups []PartnerMarkupWindow) []PantryItem {
	items := make([]PantryItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, PriceItem(r, markups))
	}
	return items
}

func availableIn(segment TimeWindow, availability []AvailabilityWindow) bool {
	for _, a := range availability {
		if Overlaps(segment, a.Window) {
			return true
		}
	}
	return false
}

func firstMarkup(segment TimeWindow, markups []PartnerMarkupWindow) (PartnerMarkupWindow, bool) {
	for _, m := range markups {
		if Overlaps(segment, m.Window) {
			return m, true
		}
	}
	return PartnerMarkupWindow{}, false
}

func cloneFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	copy := make(map[string]string, len(fields))
	for k, v := range fields {
		copy[k] = v
	}
	return copy
}
