package validation

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator - обертка для использования в Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate реализует интерфейс echo.Validator
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Engine отдаёт настроенный *validator.Validate для сервисов.
func (cv *CustomValidator) Engine() *validator.Validate {
	return cv.validator
}

// New создает и настраивает валидатор
func New() *CustomValidator {
	v := validator.New()

	// 1. Поддержка null-типов (types_adapter.go)
	registerNullTypes(v)

	// 2. Кастомные правила (rules.go). Сервер не должен стартовать без них.
	if err := registerRules(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}

	return &CustomValidator{validator: v}
}
