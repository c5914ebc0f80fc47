package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is wrapped by every boundary validation failure.
var ErrInvalidInput = errors.New("invalid input")

// MaxHorizonHours bounds the horizons accepted from callers.
const MaxHorizonHours = 168

// ValidationError describes the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		return isFinite(fl.Field().Float())
	}); err != nil {
		panic(fmt.Sprintf("register finite validation: %v", err))
	}
	return v
}

// ValidateProfile rejects profiles with out-of-range or unknown values.
// A zero HealthProfile is rejected because it has no activity level.
func ValidateProfile(p HealthProfile) error {
	return structError(validate.Struct(p))
}

// ValidateWeather rejects weather with non-finite fields.
func ValidateWeather(w WeatherInput) error {
	return structError(validate.Struct(w))
}

// ValidateReading rejects readings that cannot be projected.
func ValidateReading(r Reading) error {
	if err := structError(validate.Struct(r)); err != nil {
		return err
	}
	if r.Weather != nil {
		if err := ValidateWeather(*r.Weather); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAQI rejects non-finite or negative AQI values.
func ValidateAQI(field string, aqi float64) error {
	if !isFinite(aqi) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if aqi < 0 {
		return &ValidationError{Field: field, Reason: "must be >= 0"}
	}
	return nil
}

// ValidateHorizon rejects horizons outside 1..MaxHorizonHours.
func ValidateHorizon(hours int) error {
	if hours < 1 || hours > MaxHorizonHours {
		return &ValidationError{Field: "horizon_hours", Reason: fmt.Sprintf("must be between 1 and %d", MaxHorizonHours)}
	}
	return nil
}

// ValidateSensitivityLevel rejects dial positions other than 0, 1 and 2.
func ValidateSensitivityLevel(level int) error {
	if level < SensitivityLow || level > SensitivityHigh {
		return &ValidationError{Field: "sensitivity_level", Reason: "must be 0, 1 or 2"}
	}
	return nil
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Reason: describeTag(fe)}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "must be a finite number"
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// isFinite reports whether x is neither NaN nor infinite.
func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
