package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Группы разрядов: "1.000", "12.345.678", "1,000"
var (
	dotThousands   = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)
	commaThousands = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)
)

// ParseAmount разбирает денежное значение в любом из встречающихся форматов:
// "R$ 1.234,56", "1,234.56", "1234.5", "-10,00".
// С префиксом R$ одиночная точка перед тремя цифрами - разделитель тысяч: "R$ 1.500" = 1500.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	brl := strings.Contains(s, "R$")
	s = strings.NewReplacer("R$", "", "$", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Разделитель дробной части - тот, что правее
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 && (strings.Count(s, ".") > 1 || brl && dotThousands.MatchString(s)):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("некорректная сумма %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseQuantity разбирает целое количество; дробная часть ".0" из Excel допускается.
// "1.000" и "1,000" - тысяча: у целого количества другого прочтения нет.
func ParseQuantity(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if dotThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	} else if commaThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := ParseAmount(s)
	if err != nil {
		return 0, fmt.Errorf("некорректное количество %q", raw)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("количество %q не является целым числом", raw)
	}
	return d.IntPart(), nil
}
