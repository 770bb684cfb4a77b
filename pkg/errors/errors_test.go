package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingColumnsError(t *testing.T) {
	err := fmt.Errorf("чтение файла: %w", &MissingColumnsError{Entity: "branch", Missing: []string{"rede", "filial"}})

	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "rede, filial")
	assert.True(t, IsInvalidInput(err))
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(NewInvalidInputError("плохой bucket %q", "hour")))
	assert.True(t, IsInvalidInput(fmt.Errorf("x: %w", ErrUnsupportedFile)))
	assert.False(t, IsInvalidInput(errors.New("connection refused")))
	assert.False(t, IsInvalidInput(ErrNotFound))
}

func TestHttpError(t *testing.T) {
	cause := errors.New("boom")
	httpErr := NewHttpError(http.StatusBadRequest, "Неверный запрос", cause, nil)

	assert.ErrorIs(t, httpErr, cause)
	assert.Equal(t, "Неверный запрос: boom", httpErr.Error())
	assert.Equal(t, "Неверный запрос", NewHttpError(400, "Неверный запрос", nil, nil).Error())
}
