package http

import (
	"errors"
	"log/slog"

	pantryapp "github.com/Apurer/pantry-partner-api/internal/domains/pantry/application"
	apierrors "github.com/Apurer/pantry-partner-api/internal/shared/errors"
)

const storeRetryAfterSeconds = 5

// ProblemFromError maps pantry application errors to problem details.
func ProblemFromError(err error) (apierrors.ProblemDetail, bool) {
	var upstream *pantryapp.UpstreamError
	var store *pantryapp.StoreError
	switch {
	case errors.Is(err, pantryapp.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, pantryapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.As(err, &upstream):
		return apierrors.ErrBadGateway.WithDetail(err.Error()).WithExtension("upstreamPage", upstream.Page), true
	case errors.As(err, &store):
		return apierrors.ErrServiceUnavailable.
			WithDetail(err.Error()).
			WithExtension("operation", store.Op).
			WithRetryAfter(storeRetryAfterSeconds), true
	}
	return apierrors.ProblemDetail{}, false
}

// NewResponder builds a problem responder that understands pantry errors.
func NewResponder(baseURI string, logger *slog.Logger) *apierrors.ChainedResponder {
	return apierrors.NewChainedResponder(baseURI,
		apierrors.WithMappers(ProblemFromError),
		apierrors.WithResponderLogger(logger),
	)
}
