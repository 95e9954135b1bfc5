package location

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterStructValidation(validateOpeningHours, Location{})
	return &Validator{validate: v}
}

func validateOpeningHours(sl validator.StructLevel) {
	l := sl.Current().Interface().(Location)
	if l.OpensAt >= l.ClosesAt {
		sl.ReportError(l.ClosesAt, "ClosesAt", "closes_at", "after_opens_at", "")
	}
}

// Validate returns an InvalidRequest error listing every failing field.
func (v *Validator) Validate(l Location) error {
	err := v.validate.Struct(l)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate location: %w", err)
	}

	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return ErrInvalidLocation.WithDetails(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "timezone":
		return "must be an IANA timezone name"
	case "unique":
		return "must not repeat values"
	case "after_opens_at":
		return "must be after opens_at"
	default:
		return "failed " + fe.Tag()
	}
}
