package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonCodeChars = regexp.MustCompile(`[^a-z0-9]+`)

// FoldAccents убирает диакритику: "São João" -> "Sao Joao".
// Трансформер собирается на каждый вызов: transform.Chain не потокобезопасен.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	res, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return res
}

// CleanName обрезает пробелы и схлопывает внутренние (включая NBSP).
func CleanName(s string) string {
	return strings.Join(strings.Fields(strings.TrimPrefix(s, "\ufeff")), " ")
}

// NameKey - ключ сопоставления имени: без регистра, диакритики и лишних пробелов.
// "  Filial  SÃO Paulo " -> "filial sao paulo"
func NameKey(s string) string {
	return cases.Fold().String(FoldAccents(CleanName(s)))
}

// GenerateCodeFromName создает системный код из заголовка колонки.
// "Data de Início (Admissão)" -> "data_de_inicio_admissao"
func GenerateCodeFromName(name string) string {
	res := strings.ToLower(FoldAccents(CleanName(name)))
	res = nonCodeChars.ReplaceAllString(res, "_")
	return strings.Trim(res, "_")
}
