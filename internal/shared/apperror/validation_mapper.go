package apperror

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

func formatFieldName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", " ")
}

// MapValidationError turns the first validator violation into an AppError the
// calling layer can show as-is.
func MapValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		field := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return New(
				CodeInvalidInput,
				fmt.Sprintf("%s is required", field),
				http.StatusBadRequest,
			)
		default:
			return New(
				CodeInvalidInput,
				fmt.Sprintf("%s is invalid", field),
				http.StatusBadRequest,
			)
		}
	}

	return New(
		CodeInvalidInput,
		"Invalid input",
		http.StatusBadRequest,
	)
}
