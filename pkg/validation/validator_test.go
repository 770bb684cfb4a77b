package validation

import (
	"bytes"
	"mime/multipart"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "bi-dashboard/pkg/errors"
)

type recordForTest struct {
	Name      string      `validate:"required,not_blank,max=10"`
	Bucket    string      `validate:"omitempty,time_bucket"`
	StartDate null.Time   `validate:"omitempty"`
	Note      null.String `validate:"omitempty,max=3"`
}

func TestValidator_Rules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(recordForTest{Name: "Rede Sul", Bucket: "month"}))
	assert.NoError(t, v.Validate(recordForTest{Name: "Rede Sul", StartDate: null.TimeFrom(time.Now())}))

	assert.Error(t, v.Validate(recordForTest{Name: "   "}), "пробелы не проходят not_blank")
	assert.Error(t, v.Validate(recordForTest{Name: "Rede", Bucket: "hour"}))
	assert.Error(t, v.Validate(recordForTest{Name: "Rede", Note: null.StringFrom("longo")}))
	assert.NoError(t, v.Validate(recordForTest{Name: "Rede", Note: null.String{}}), "пустой null.String пропускается")
}

func TestValidateFile(t *testing.T) {
	csvBody := []byte("rede;filial;ativo\nRede Sul;Centro;sim\n")

	t.Run("csv принимается", func(t *testing.T) {
		fh := &multipart.FileHeader{Filename: "filiais.csv", Size: int64(len(csvBody))}
		err := ValidateFile(fh, bytes.NewReader(csvBody), "spreadsheet", 0)
		assert.NoError(t, err)
	})

	t.Run("xlsx принимается", func(t *testing.T) {
		f := excelize.NewFile()
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"rede", "filial"}))
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)

		fh := &multipart.FileHeader{Filename: "filiais.xlsx", Size: int64(buf.Len())}
		assert.NoError(t, ValidateFile(fh, bytes.NewReader(buf.Bytes()), "spreadsheet", 0))
	})

	t.Run("неверное расширение", func(t *testing.T) {
		fh := &multipart.FileHeader{Filename: "filiais.pdf", Size: int64(len(csvBody))}
		err := ValidateFile(fh, bytes.NewReader(csvBody), "spreadsheet", 0)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedFile)
	})

	t.Run("картинка под видом csv", func(t *testing.T) {
		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
		fh := &multipart.FileHeader{Filename: "filiais.csv", Size: int64(len(png))}
		err := ValidateFile(fh, bytes.NewReader(png), "spreadsheet", 0)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedFile)
	})

	t.Run("слишком большой файл", func(t *testing.T) {
		fh := &multipart.FileHeader{Filename: "filiais.csv", Size: 3 * 1024 * 1024}
		err := ValidateFile(fh, bytes.NewReader(csvBody), "spreadsheet", 1)
		assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	})

	t.Run("неизвестный контекст", func(t *testing.T) {
		fh := &multipart.FileHeader{Filename: "filiais.csv", Size: 1}
		assert.Error(t, ValidateFile(fh, bytes.NewReader(csvBody), "avatar", 0))
	})
}
