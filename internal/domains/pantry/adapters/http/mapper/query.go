package mapper

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	pantrytypes "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application/types"
)

// ListItemsQuery holds the raw query parameters of GET /v1/pantry/items.
type ListItemsQuery struct {
	Page          *int
	PageSize      *int
	SnapshotID    *string
	AvailableFrom *string
	AvailableTo   *string
	Brand         *string
}

// PageBounds carries the configured page size default and ceiling.
type PageBounds struct {
	DefaultPageSize int
	MaxPageSize     int
}

// BindListItemsQuery binds the query string using form style. Field errors are keyed by parameter name.
func BindListItemsQuery(query url.Values) (ListItemsQuery, map[string]string) {
	var q ListItemsQuery
	fields := map[string]string{}
	bind := func(name string, dest interface{}) {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			fields[name] = err.Error()
		}
	}
	bind("page", &q.Page)
	bind("pageSize", &q.PageSize)
	bind("snapshotId", &q.SnapshotID)
	bind("availableFrom", &q.AvailableFrom)
	bind("availableTo", &q.AvailableTo)
	bind("brand", &q.Brand)
	return q, fields
}

// ToFetchInput validates the bound query and converts it into the application input.
func ToFetchInput(q ListItemsQuery, partnerID, baseURL string, bounds PageBounds) (pantrytypes.FetchInput, map[string]string) {
	fields := map[string]string{}
	input := pantrytypes.FetchInput{
		PartnerID: partnerID,
		Page:      1,
		PageSize:  bounds.DefaultPageSize,
		BaseURL:   baseURL,
	}
	if q.Page != nil {
		if *q.Page < 1 {
			fields["page"] = "must be greater than zero"
		}
		input.Page = *q.Page
	}
	if q.PageSize != nil {
		switch {
		case *q.PageSize < 1:
			fields["pageSize"] = "must be greater than zero"
		case bounds.MaxPageSize > 0 && *q.PageSize > bounds.MaxPageSize:
			fields["pageSize"] = fmt.Sprintf("must not exceed %d", bounds.MaxPageSize)
		}
		input.PageSize = *q.PageSize
	}
	if q.SnapshotID != nil {
		input.SnapshotID = strings.TrimSpace(*q.SnapshotID)
	}
	if q.Brand != nil {
		input.Filters.Brand = strings.TrimSpace(*q.Brand)
	}
	if q.AvailableFrom != nil {
		t, err := ParseInstant(*q.AvailableFrom)
		if err != nil {
			fields["availableFrom"] = err.Error()
		}
		input.Filters.AvailableFrom = t
	}
	if q.AvailableTo != nil {
		t, err := ParseInstant(*q.AvailableTo)
		if err != nil {
			fields["availableTo"] = err.Error()
		}
		input.Filters.AvailableTo = t
	}
	return input, fields
}

// ParseInstant accepts RFC 3339 timestamps or plain dates, interpreted as UTC midnight.
func ParseInstant(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}
