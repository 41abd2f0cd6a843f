package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// at least one selling point that is not blank
	_ = v.RegisterValidation("usp", func(fl validator.FieldLevel) bool {
		usp, ok := fl.Field().Interface().([]string)
		if !ok {
			return false
		}
		for _, u := range usp {
			if strings.TrimSpace(u) != "" {
				return true
			}
		}
		return false
	})
	_ = v.RegisterValidation("creativestyle", func(fl validator.FieldLevel) bool {
		return models.CreativeStyle(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("aimodel", func(fl validator.FieldLevel) bool {
		return models.AIModel(fl.Field().String()).Valid()
	})

	return v
}

// fields checked when leaving each step
var stepFields = map[int][]string{
	StepInfo:  {"ProductDescription", "TargetAudience", "USP"},
	StepStyle: {"CreativeStyle", "VariantCount", "AIModel"},
}

// checkStep applies the gate for leaving step
func checkStep(step int, form models.FormSnapshot) error {
	if step == StepGoal {
		if !form.Goal.Valid() {
			return fmt.Errorf("%w: goal must be selected", ErrInvalidForm)
		}
		return nil
	}

	fields, ok := stepFields[step]
	if !ok {
		return nil
	}
	if step == StepInfo {
		// blank-only text counts as missing
		form.ProductDescription = strings.TrimSpace(form.ProductDescription)
		form.TargetAudience = strings.TrimSpace(form.TargetAudience)
	}
	if err := validate.StructPartial(form, fields...); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidForm, describe(err))
	}
	return nil
}

// describe lists the failing fields in a stable, readable form
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
