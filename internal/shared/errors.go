package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor lacks the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrTenantRequired indicates a request without a resolved tenant.
	ErrTenantRequired = errors.New("tenant context required")
)
