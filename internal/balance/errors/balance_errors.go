package balanceerrors

import (
	"net/http"

	"github.com/pixelotes/Tempus/internal/shared/apperror"
)

var (
	ErrInvalidSubjectID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid subject id",
		http.StatusBadRequest,
	)
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"invalid fiscal year",
		http.StatusBadRequest,
	)
	ErrInvalidHolidayPolicy = apperror.New(
		apperror.CodeInvalidInput,
		"holiday policy must be none, archive or delete",
		http.StatusBadRequest,
	)
	ErrAccountNotFound = apperror.New(
		apperror.CodeNotFound,
		"balance account not found",
		http.StatusNotFound,
	)
)
