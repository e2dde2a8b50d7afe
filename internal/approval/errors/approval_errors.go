package approvalerrors

import (
	"net/http"

	"github.com/pixelotes/Tempus/internal/shared/apperror"
)

var (
	ErrInvalidApproverID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid approver id",
		http.StatusBadRequest,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"absence request not found",
		http.StatusNotFound,
	)
	ErrAlreadyResolved = apperror.New(
		apperror.CodeInvalidState,
		"the request has already been resolved",
		http.StatusConflict,
	)
	ErrBaselineConflict = apperror.New(
		apperror.CodeConflict,
		"the approved baseline changed concurrently, reload and retry",
		http.StatusConflict,
	)
)
