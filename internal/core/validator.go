package core

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"subsync/internal/types"
)

// Validator wraps go-playground/validator and translates its failures into
// structured AppErrors suitable for client responses.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator that reports field names from their json
// tags, matching the wire contract rather than Go struct field names.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s against its struct tags. On failure it returns
// a *types.AppError whose code reflects the first failing rule and whose
// details map every failing field to its violated rule.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: the caller passed a non-struct value.
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	fields := make(map[string]any, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Field()] = fe.Tag()
	}

	first := validationErrs[0]
	code := types.ErrCodeValidationInvalidField
	message := "invalid value for field " + first.Field()
	switch first.Tag() {
	case "required":
		code = types.ErrCodeValidationMissingField
		message = "missing required field " + first.Field()
	case "email":
		code = types.ErrCodeValidationInvalidEmail
		message = "invalid email address"
	}

	return types.NewAppErrorWithDetails(code, message, err, map[string]any{
		"fields": fields,
	})
}
