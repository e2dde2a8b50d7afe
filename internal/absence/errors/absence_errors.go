package absenceerrors

import (
	"errors"
	"net/http"

	"github.com/pixelotes/Tempus/internal/shared/apperror"
)

var (
	ErrInvalidFamily = apperror.New(
		apperror.CodeInvalidInput,
		"family must be VACATION or LEAVE",
		http.StatusBadRequest,
	)
	ErrInvalidSubjectID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid subject id",
		http.StatusBadRequest,
	)
	ErrInvalidEditorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid editor id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"end date must not be before start date",
		http.StatusBadRequest,
	)
	ErrZeroDayCount = apperror.New(
		apperror.CodeInvalidInput,
		"the requested range contains no countable days",
		http.StatusBadRequest,
	)
	ErrLeaveTypeRequired = apperror.New(
		apperror.CodeInvalidInput,
		"leave requests require a leave type",
		http.StatusBadRequest,
	)
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave type not found",
		http.StatusNotFound,
	)
	ErrLeaveTypeInactive = apperror.New(
		apperror.CodeInvalidState,
		"leave type is no longer offered",
		http.StatusBadRequest,
	)
	ErrMaxDurationExceeded = apperror.New(
		apperror.CodeInvalidInput,
		"the requested range exceeds the leave type's maximum duration",
		http.StatusBadRequest,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"absence request not found",
		http.StatusNotFound,
	)
	ErrStaleVersion = apperror.New(
		apperror.CodeConflict,
		"the request was modified concurrently, reload and retry",
		http.StatusConflict,
	)
	ErrPendingChangeExists = apperror.New(
		apperror.CodeConflict,
		"a pending change already exists for this request",
		http.StatusConflict,
	)
	ErrPastDate = apperror.New(
		apperror.CodeInvalidState,
		"the requested range has already elapsed",
		http.StatusBadRequest,
	)
	ErrInvalidState = apperror.New(
		apperror.CodeInvalidState,
		"the request is not in a state that allows this change",
		http.StatusBadRequest,
	)
	ErrNotAdmin = apperror.New(
		apperror.CodeInvalidState,
		"only an administrator may create requests on behalf of another subject",
		http.StatusForbidden,
	)
)

// AdvanceLimitError blocks an admission whose projected balance would fall
// below the configured advance ceiling.
type AdvanceLimitError struct {
	*apperror.AppError
	Available  int
	Requested  int
	MaxAdvance int
}

func NewAdvanceLimit(available, requested, maxAdvance int) *AdvanceLimitError {
	return &AdvanceLimitError{
		AppError: apperror.New(
			apperror.CodeConflict,
			"the request would exceed the maximum advance allowed",
			http.StatusConflict,
		),
		Available:  available,
		Requested:  requested,
		MaxAdvance: maxAdvance,
	}
}

func AsAdvanceLimit(err error) (*AdvanceLimitError, bool) {
	var ae *AdvanceLimitError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
