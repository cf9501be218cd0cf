package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSONBody decodes the request body into dst and runs struct validation.
// Unknown fields are rejected so client typos surface as 400s instead of
// silently dropped input.
func DecodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(formatValidationErrors(validationErrors))
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			details[field] = "is required"
		case "min":
			details[field] = fmt.Sprintf("must be at least %s", fieldErr.Param())
		case "max":
			details[field] = fmt.Sprintf("must be at most %s", fieldErr.Param())
		case "uuid":
			details[field] = "must be a valid uuid"
		case "oneof":
			details[field] = fmt.Sprintf("must be one of: %s", fieldErr.Param())
		case "gt":
			details[field] = fmt.Sprintf("must be greater than %s", fieldErr.Param())
		default:
			details[field] = fmt.Sprintf("failed %s validation", fieldErr.Tag())
		}
	}
	return details
}
