package apperror

import (
	"errors"
	"net/http"
	"time"
)

// Internal wraps an infrastructure failure that callers cannot recover from.
func Internal(err error, message string) *AppError {
	return Wrap(err, CodeInternalError, message, http.StatusInternalServerError)
}

// ConflictRange describes the record that blocked an admission.
type ConflictRange struct {
	Family string
	Start  time.Time
	End    time.Time
}

// OverlapError is a CONFLICT carrying the range that already occupies the slot.
type OverlapError struct {
	*AppError
	Conflict ConflictRange
}

func NewOverlap(message string, conflict ConflictRange) *OverlapError {
	return &OverlapError{
		AppError: New(CodeConflict, message, http.StatusConflict),
		Conflict: conflict,
	}
}

// AsOverlap extracts an OverlapError from an error chain.
func AsOverlap(err error) (*OverlapError, bool) {
	var oe *OverlapError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
