package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Импорт
	ErrMissingColumns    = fmt.Errorf("в таблице отсутствуют обязательные колонки")
	ErrUnsupportedEntity = fmt.Errorf("неизвестный тип справочника")
	ErrUnsupportedFile   = fmt.Errorf("неподдерживаемый формат файла")
	ErrEmptyFile         = fmt.Errorf("файл не содержит данных")
	ErrNoValidRows       = fmt.Errorf("в файле нет ни одной корректной строки")
	ErrFileTooLarge      = fmt.Errorf("файл превышает допустимый размер")
)

// Кастомные типы ошибок
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// MissingColumnsError перечисляет канонические поля, которые не удалось сопоставить.
type MissingColumnsError struct {
	Entity  string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrMissingColumns.Error(), e.Entity, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// HttpError - ошибка, которую контроллер отдаёт клиенту как есть.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// IsInvalidInput - ошибка вызвана входными данными, а не сбоем системы.
func IsInvalidInput(err error) bool {
	var inputErr *InvalidInputError
	var colsErr *MissingColumnsError
	return errors.As(err, &inputErr) ||
		errors.As(err, &colsErr) ||
		errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrUnsupportedEntity) ||
		errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrNoValidRows) ||
		errors.Is(err, ErrFileTooLarge)
}
