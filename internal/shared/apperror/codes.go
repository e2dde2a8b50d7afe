package apperror

// Stable machine-readable codes. Everything a caller can recover from sits in
// the 4xx group; CodeInternalError is the catch-all for infrastructure faults.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"

	CodeInternalError = "INTERNAL_ERROR"
)
