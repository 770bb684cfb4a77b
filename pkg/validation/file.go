package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"bi-dashboard/config"
	apperrors "bi-dashboard/pkg/errors"
)

// ValidateFile проверяет размер, расширение и MIME-тип файла.
// contextName - ключ из config.UploadContexts, maxSizeMB > 0 переопределяет лимит контекста.
func ValidateFile(fileHeader *multipart.FileHeader, file io.ReadSeeker, contextName string, maxSizeMB int64) error {
	// 1. Получаем правила из конфига
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return fmt.Errorf("внутренняя ошибка: неизвестный контекст загрузки '%s'", contextName)
	}
	if maxSizeMB > 0 {
		rules.MaxSizeMB = maxSizeMB
	}

	// 2. Проверка размера
	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return fmt.Errorf("%w: %.2f MB при лимите %d MB", apperrors.ErrFileTooLarge, float64(fileHeader.Size)/1024/1024, rules.MaxSizeMB)
		}
	}

	// 3. Расширение
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if len(rules.AllowedExtensions) > 0 && !slices.Contains(rules.AllowedExtensions, ext) {
		return fmt.Errorf("%w: расширение %q", apperrors.ErrUnsupportedFile, ext)
	}

	// 4. Проверка содержимого (Magic Numbers)
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("не удалось определить тип файла: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("не удалось сбросить указатель файла: %w", err)
	}

	for _, allowed := range rules.AllowedMimeTypes {
		if mtype.Is(allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFile, mtype.String())
}
