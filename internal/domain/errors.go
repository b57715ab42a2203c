package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed query or request body.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownFacet signals a facet key outside the configured set.
	ErrUnknownFacet = errors.New("unknown facet")
	// ErrBackendUnavailable signals that a search backend failed or timed out.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrCacheUnavailable signals that the cache store is unreachable.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrGraphInconsistency signals a malformed relationship edge.
	ErrGraphInconsistency = errors.New("graph inconsistency")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals that the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrTenantMissing signals a request without a resolved tenant.
	ErrTenantMissing = errors.New("tenant not resolved")
)

// BackendError wraps ErrBackendUnavailable with the failing entity type.
type BackendError struct {
	EntityType string
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: entity type %q: %v", ErrBackendUnavailable.Error(), e.EntityType, e.Err)
}

func (e *BackendError) Unwrap() error { return ErrBackendUnavailable }

// NewBackendError creates a per-entity-type backend failure.
func NewBackendError(entityType string, err error) error {
	return &BackendError{EntityType: entityType, Err: err}
}
