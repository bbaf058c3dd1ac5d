package catalog

import "time"

// Window is an optional-bounded time range on the wire.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Cost is a base cost window; BaseCost is a decimal string.
type Cost struct {
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	BaseCost string     `json:"baseCost"`
}

// Item is a raw catalog item as served by the upstream.
type Item struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  *string           `json:"description,omitempty"`
	Brand        *string           `json:"brand,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty"`
	Availability []Window          `json:"availability,omitempty"`
	Costs        []Cost            `json:"costs,omitempty"`
}

// ItemsPage is the body of a list items response.
type ItemsPage struct {
	Items   []Item `json:"items"`
	HasNext bool   `json:"hasNext"`
}

// ListItemsParams defines the query parameters of a list items call.
type ListItemsParams struct {
	Page          int
	PageSize      int
	AvailableFrom *time.Time
	AvailableTo   *time.Time
	Brand         *string
}

// Error is the problem body returned by the upstream on failures.
type Error struct {
	Code    *int32  `json:"code,omitempty"`
	Message *string `json:"message,omitempty"`
}
