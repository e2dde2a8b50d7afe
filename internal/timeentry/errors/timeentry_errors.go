package timeentryerrors

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
	ErrInvalidTimeFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid time format, expected HH:MM",
		http.StatusBadRequest,
	)
	ErrInvalidInterval = apperror.New(
		apperror.CodeInvalidInput,
		"clock-out must differ from clock-in",
		http.StatusBadRequest,
	)
	ErrInvalidBreak = apperror.New(
		apperror.CodeInvalidInput,
		"break minutes must be zero or positive",
		http.StatusBadRequest,
	)
	ErrReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"a correction reason is required",
		http.StatusBadRequest,
	)
	ErrEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"time entry not found",
		http.StatusNotFound,
	)
	ErrStaleVersion = apperror.New(
		apperror.CodeConflict,
		"the entry was modified concurrently, reload and retry",
		http.StatusConflict,
	)
	ErrLineageDeleted = apperror.New(
		apperror.CodeInvalidState,
		"only the current version of a non-deleted lineage may be edited",
		http.StatusBadRequest,
	)
)
