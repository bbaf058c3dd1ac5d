// Package errors renders RFC 7807 problem documents for the pantry HTTP surface.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Extensions carries problem-specific members such as field errors or the failing upstream page.
	Extensions map[string]any `json:"extensions,omitempty"`
	// RetryAfterSeconds, when positive, is sent as a Retry-After header and never serialized.
	RetryAfterSeconds int `json:"-"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with an additional extension member. The receiver's map is never
// mutated, so templates stay shareable.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	extensions := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		extensions[k] = v
	}
	extensions[key] = value
	p.Extensions = extensions
	return p
}

// WithRetryAfter returns a copy that asks clients to retry after seconds.
func (p ProblemDetail) WithRetryAfter(seconds int) ProblemDetail {
	p.RetryAfterSeconds = seconds
	return p
}

const (
	TypeValidation   = "/problems/validation-error"
	TypeNotFound     = "/problems/not-found"
	TypeInternal     = "/problems/internal-error"
	TypeUnauthorized = "/problems/unauthorized"
	TypeUpstream     = "/problems/upstream-error"
	TypeUnavailable  = "/problems/service-unavailable"
)

var (
	// ErrNotFound covers unknown snapshots, including snapshots owned by another partner.
	ErrNotFound = ProblemDetail{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
	}

	// ErrValidation covers malformed paging or filter parameters.
	ErrValidation = ProblemDetail{
		Type:   TypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}

	// ErrUnauthorized is returned when the caller does not identify a partner.
	ErrUnauthorized = ProblemDetail{
		Type:   TypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
	}

	// ErrBadGateway reports a catalog failure while serving the request.
	ErrBadGateway = ProblemDetail{
		Type:   TypeUpstream,
		Title:  "Bad Gateway",
		Status: http.StatusBadGateway,
	}

	// ErrServiceUnavailable reports that the snapshot store could not serve the request.
	ErrServiceUnavailable = ProblemDetail{
		Type:   TypeUnavailable,
		Title:  "Service Unavailable",
		Status: http.StatusServiceUnavailable,
	}
)

// NewValidationProblem creates a validation problem listing offending parameters.
func NewValidationProblem(fieldErrors map[string]string) ProblemDetail {
	return ErrValidation.
		WithDetail(fmt.Sprintf("%d invalid parameter(s)", len(fieldErrors))).
		WithExtension("fields", fieldErrors)
}
