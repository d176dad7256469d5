package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps ledger domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrMixedLine),
		errors.Is(err, shared.ErrNegativeAmount),
		errors.Is(err, shared.ErrZeroLine),
		errors.Is(err, shared.ErrInactiveAccount),
		errors.Is(err, shared.ErrInvalidParent),
		errors.Is(err, shared.ErrMappingNotFound),
		errors.Is(err, shared.ErrAccountInUse):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrPeriodLocked),
		errors.Is(err, shared.ErrAlreadyClosed),
		errors.Is(err, shared.ErrNotClosed),
		errors.Is(err, shared.ErrPeriodOverlap),
		errors.Is(err, shared.ErrAlreadyReversed),
		errors.Is(err, shared.ErrNotPosted),
		errors.Is(err, shared.ErrSystemAccountProtected),
		errors.Is(err, shared.ErrSourceAlreadyLinked),
		errors.Is(err, internalshared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrDuplicateCode):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrNoPeriodDefined),
		errors.Is(err, shared.ErrEntryNotFound),
		errors.Is(err, shared.ErrAccountNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrSequenceExhausted):
		Problem(w, http.StatusServiceUnavailable, "Sequence Exhausted", err.Error())
	case errors.Is(err, internalshared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
