package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/domain"
	"github.com/Apurer/pantry-partner-api/internal/domains/pantry/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid pantry request")
	// ErrNotFound signals the snapshot is unknown for the requesting partner.
	ErrNotFound = errors.New("snapshot not found")
)

// UpstreamError wraps a catalog failure together with the upstream page being pulled.
type UpstreamError struct {
	Page int
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog upstream failed on page %d: %v", e.Page, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StoreError wraps a snapshot store or markup provider failure with the failing operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("snapshot store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvertedWindow) ||
		errors.Is(err, domain.ErrInvalidAvailabilityRange) ||
		errors.Is(err, domain.ErrMarkupBelowFloor) ||
		errors.Is(err, domain.ErrNegativeBaseCost) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
