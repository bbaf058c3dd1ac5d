package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidAvailabilityRange rejects filters whose availableFrom lies after availableTo.
var ErrInvalidAvailabilityRange = errors.New("availableFrom must not be after availableTo")

// CatalogFilters narrows the pantry catalog by availability and brand.
type CatalogFilters struct {
	AvailableFrom *time.Time `json:"availableFrom,omitempty"`
	AvailableTo   *time.Time `json:"availableTo,omitempty"`
	Brand         string     `json:"brand,omitempty"`
}

// Normalize trims the brand and validates the availability range.
func (f CatalogFilters) Normalize() (CatalogFilters, error) {
	f.Brand = strings.TrimSpace(f.Brand)
	if f.AvailableFrom != nil && f.AvailableTo != nil && f.AvailableFrom.After(*f.AvailableTo) {
		return CatalogFilters{}, ErrInvalidAvailabilityRange
	}
	return f, nil
}
