package task

import (
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the task enum tags used in request bindings.
func RegisterValidators(v *validator.Validate) error {
	tags := map[string]validator.Func{
		"taskstatus": func(fl validator.FieldLevel) bool {
			return Status(fl.Field().String()).IsValid()
		},
		"tasktype": func(fl validator.FieldLevel) bool {
			return Type(fl.Field().String()).IsValid()
		},
		"recurrence": func(fl validator.FieldLevel) bool {
			return Recurrence(fl.Field().String()).IsValid()
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
