package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	apperrors "bi-dashboard/pkg/errors"
)

const defaultHeaderSearchRows = 20

// SpreadsheetReader превращает выгрузку .xlsx/.csv в таблицу строк для сверки.
type SpreadsheetReader struct {
	headerSearchRows int
	logger           *zap.Logger
}

func NewSpreadsheetReader(headerSearchRows int, logger *zap.Logger) *SpreadsheetReader {
	if headerSearchRows <= 0 {
		headerSearchRows = defaultHeaderSearchRows
	}
	return &SpreadsheetReader{headerSearchRows: headerSearchRows, logger: logger}
}

// ReadFile открывает файл с диска (используется CLI).
func (r *SpreadsheetReader) ReadFile(entity entities.ImportEntity, path string) (*dto.TabularRowsDTO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл %s: %w", path, err)
	}
	defer f.Close()
	return r.Read(entity, filepath.Base(path), f)
}

// Read определяет формат по расширению, находит строку заголовков и отдаёт строки данных после неё.
func (r *SpreadsheetReader) Read(entity entities.ImportEntity, filename string, src io.Reader) (*dto.TabularRowsDTO, error) {
	var (
		sheets map[string][][]string
		order  []string
		err    error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		sheets, order, err = readExcel(src)
	case ".csv", ".txt":
		var rows [][]string
		rows, err = readCSV(src)
		sheets, order = map[string][][]string{"csv": rows}, []string{"csv"}
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFile, filename)
	}
	if err != nil {
		return nil, err
	}

	table, err := r.locateHeader(entity, sheets, order)
	if err != nil {
		return nil, err
	}
	table.SourceName = filename
	return table, nil
}

// locateHeader ищет первую строку (в пределах headerSearchRows на каждом листе),
// в которой находятся все обязательные колонки сущности.
func (r *SpreadsheetReader) locateHeader(entity entities.ImportEntity, sheets map[string][][]string, order []string) (*dto.TabularRowsDTO, error) {
	var bestErr error
	bestMissing := -1
	empty := true

	for _, sheet := range order {
		rows := sheets[sheet]
		limit := r.headerSearchRows
		if limit > len(rows) {
			limit = len(rows)
		}
		for i := 0; i < limit; i++ {
			if isBlankRow(rows[i]) {
				continue
			}
			empty = false

			_, err := MapColumns(entity, rows[i])
			if err == nil {
				r.logger.Debug("найдена строка заголовков",
					zap.String("sheet", sheet), zap.Int("line", i+1), zap.Strings("headers", rows[i]))
				return &dto.TabularRowsDTO{
					Headers:   rows[i],
					Rows:      rows[i+1:],
					FirstLine: i + 2,
				}, nil
			}

			var colsErr *apperrors.MissingColumnsError
			if !errors.As(err, &colsErr) {
				return nil, err
			}
			if bestMissing < 0 || len(colsErr.Missing) < bestMissing {
				bestMissing = len(colsErr.Missing)
				bestErr = err
			}
		}
	}

	if empty {
		return nil, apperrors.ErrEmptyFile
	}
	return nil, bestErr
}

func readExcel(src io.Reader) (map[string][][]string, []string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: не удалось прочитать xlsx: %v", apperrors.ErrUnsupportedFile, err)
	}
	defer f.Close()

	sheets := make(map[string][][]string)
	var order []string
	for _, sheet := range f.GetSheetList() {
		// Сырые значения: даты приходят серийными номерами, числа без форматирования
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка чтения листа %s: %w", sheet, err)
		}
		sheets[sheet] = rows
		order = append(order, sheet)
	}
	return sheets, order, nil
}

func readCSV(src io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.ErrEmptyFile
	}

	// Выгрузки из Excel под Windows приходят в cp1252
	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("не удалось перекодировать csv: %w", err)
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: некорректный csv: %v", apperrors.ErrUnsupportedFile, err)
		}
		// csv.Reader пропускает пустые строки, а номера строк в отчёте должны совпадать с файлом
		line, _ := reader.FieldPos(0)
		for len(rows) < line-1 {
			rows = append(rows, nil)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// detectDelimiter выбирает самый частый из ; , \t в первой непустой строке.
func detectDelimiter(raw []byte) rune {
	var line []byte
	for _, l := range bytes.Split(raw, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	best, bestCount := ';', -1
	for _, d := range []rune{';', ',', '\t'} {
		if c := bytes.Count(line, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
