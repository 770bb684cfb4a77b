package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Форматы дат, которые встречаются в выгрузках. Порядок важен: день идёт раньше месяца.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"01/2006",
	"2006-01",
}

// Разумные границы для серийных дат Excel: 1950-01-01 .. 2100-01-01.
const (
	minExcelSerial = 18264
	maxExcelSerial = 73051
)

// ParseFlexibleDate разбирает дату из ячейки. Пустая строка -> (nil, true).
// Возвращает ok=false, если значение есть, но ни один формат не подошёл.
func ParseFlexibleDate(raw string) (*time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			d := TruncateDay(t)
			return &d, true
		}
	}

	// Серийный номер Excel (ячейка в формате даты, прочитанная как сырое значение)
	if serial, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		if serial >= minExcelSerial && serial <= maxExcelSerial {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				d := TruncateDay(t)
				return &d, true
			}
		}
	}

	return nil, false
}

// TruncateDay оставляет только календарную дату (UTC, 00:00).
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay сравнивает календарные даты, nil равен только nil.
func SameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return TruncateDay(*a).Equal(TruncateDay(*b))
}
