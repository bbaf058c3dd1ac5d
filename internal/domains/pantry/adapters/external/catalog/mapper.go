package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	catalogclient "github.com/Apurer/pantry-partner-api/internal/clients/http/catalog"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
)

// Dropped describes a window discarded while mapping an upstream item.
type Dropped struct {
	ItemID string
	Field  string
	Reason string
}

// ToRawItem converts an upstream item into the domain shape. Windows that cannot be priced safely
// (inverted bounds, unparsable or negative costs) are dropped and reported.
func ToRawItem(item catalogclient.Item) (domain.RawPantryItem, []Dropped) {
	var dropped []Dropped
	raw := domain.RawPantryItem{
		ID:           strings.TrimSpace(item.ID),
		Name:         item.Name,
		Description:  deref(item.Description),
		Brand:        strings.TrimSpace(deref(item.Brand)),
		CustomFields: cloneFields(item.CustomFields),
	}
	for i, w := range item.Availability {
		window, err := domain.NewTimeWindow(w.Start, w.End)
		if err != nil {
			dropped = append(dropped, Dropped{ItemID: raw.ID, Field: fmt.Sprintf("availability[%d]", i), Reason: err.Error()})
			continue
		}
		raw.Availability = append(raw.Availability, domain.AvailabilityWindow{Window: window})
	}
	for i, c := range item.Costs {
		field := fmt.Sprintf("costs[%d]", i)
		window, err := domain.NewTimeWindow(c.Start, c.End)
		if err != nil {
			dropped = append(dropped, Dropped{ItemID: raw.ID, Field: field, Reason: err.Error()})
			continue
		}
		cost, err := decimal.NewFromString(strings.TrimSpace(c.BaseCost))
		if err != nil {
			dropped = append(dropped, Dropped{ItemID: raw.ID, Field: field, Reason: "unparsable base cost"})
			continue
		}
		costWindow := domain.BaseCostWindow{Window: window, BaseCost: cost}
		if err := costWindow.Validate(); err != nil {
			dropped = append(dropped, Dropped{ItemID: raw.ID, Field: field, Reason: err.Error()})
			continue
		}
		raw.Costs = append(raw.Costs, costWindow)
	}
	return raw, dropped
}

// ToListParams converts domain filters into upstream query parameters for page.
func ToListParams(filters domain.CatalogFilters, page, pageSize int) catalogclient.ListItemsParams {
	params := catalogclient.ListItemsParams{
		Page:          page,
		PageSize:      pageSize,
		AvailableFrom: filters.AvailableFrom,
		AvailableTo:   filters.AvailableTo,
	}
	if filters.Brand != "" {
		brand := filters.Brand
		params.Brand = &brand
	}
	return params
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
