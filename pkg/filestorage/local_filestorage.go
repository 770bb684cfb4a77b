package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStorageInterface - архив загруженных выгрузок.
type FileStorageInterface interface {
	Save(file io.Reader, originalFileName string, prefix string) (filePath string, err error)
	Delete(filePath string) error
}

type LocalFileStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalFileStorage(basePath string) (FileStorageInterface, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию архива: %w", err)
	}
	return &LocalFileStorage{basePath: basePath, now: time.Now}, nil
}

// Save кладёт файл в prefix/ГГГГ/ММ/ДД под уникальным именем и возвращает относительный путь.
// Исходное имя сохраняется в конце, чтобы архив можно было разобрать глазами.
func (s *LocalFileStorage) Save(file io.Reader, originalFileName string, prefix string) (string, error) {
	now := s.now()
	base := filepath.Base(originalFileName)
	uniqueFileName := fmt.Sprintf("%s-%s-%s", now.Format("150405"), uuid.New().String()[:8], base)

	datePath := now.Format("2006/01/02")
	fullDirPath := filepath.Join(s.basePath, prefix, datePath)
	if err := os.MkdirAll(fullDirPath, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(fullDirPath, uniqueFileName))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(prefix, datePath, uniqueFileName)), nil
}

// Delete принимает путь, который вернул Save. Отсутствующий файл - не ошибка.
func (s *LocalFileStorage) Delete(filePath string) error {
	relative := strings.TrimPrefix(filepath.ToSlash(filePath), "/")
	if strings.Contains(relative, "..") {
		return fmt.Errorf("недопустимый путь %q", filePath)
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relative))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
