package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		identifiers := map[string]func(string) bool{
			"order_number":     ValidOrderNumber,
			"container_number": ValidContainerNumber,
			"tax_id":           ValidTaxID,
			"location_code":    ValidLocationCode,
			"date":             ValidDate,
		}
		for tag, check := range identifiers {
			check := check
			// Ошибка возможна только при пустом теге или nil-функции.
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return check(fl.Field().String())
			})
		}
		validate = v
	})
	return validate
}

// ValidateRecord проверяет формат ключа и обязательные поля записи.
// Нарушения возвращаются одной ошибкой VALIDATION_ERROR.
func ValidateRecord(rec Record) error {
	if err := ValidateKey(rec.Kind(), rec.Key()); err != nil {
		return err
	}
	err := recordValidator().Struct(rec)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("invalid %s: %v", rec.Kind(), err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return NewValidationError("invalid %s: %s", rec.Kind(), strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		path = path[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s has invalid format (%s)", path, fe.Tag())
	}
}
