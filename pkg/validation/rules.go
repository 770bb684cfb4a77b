package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// TimeBuckets - допустимые шаги временных рядов (аргумент date_trunc).
var TimeBuckets = []string{"day", "week", "month", "year"}

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("not_blank", isNotBlank); err != nil {
		return err
	}
	if err := v.RegisterValidation("time_bucket", isTimeBucket); err != nil {
		return err
	}
	return nil
}

// isNotBlank - строка не состоит из одних пробелов
func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func isTimeBucket(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, b := range TimeBuckets {
		if s == b {
			return true
		}
	}
	return false
}
