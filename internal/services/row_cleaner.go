package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/pkg/utils"
)

var (
	truthyValues = map[string]bool{
		"1": true, "true": true, "sim": true, "s": true, "yes": true, "y": true, "ativo": true,
		"ativa": true, "x": true, "verdadeiro": true, "t": true, "a": true,
	}
	falsyValues = map[string]bool{
		"0": true, "false": true, "nao": true, "n": true, "no": true, "inativo": true, "inativa": true,
		"desligado": true, "desativado": true, "falso": true, "f": true, "i": true,
	}
	subtotalMarkers = []string{"total", "subtotal", "totais", "total geral"}
)

// ParseActive разбирает флаг активности. Пустое значение -> true.
// ok=false означает нераспознанное значение: вызывающий считает его активным и пишет предупреждение.
func ParseActive(raw string) (active bool, ok bool) {
	key := utils.NameKey(raw)
	switch {
	case key == "":
		return true, true
	case truthyValues[key]:
		return true, true
	case falsyValues[key]:
		return false, true
	}
	return true, false
}

// CleanResult - очищенные записи одной загрузки и всё, что было пропущено по дороге.
type CleanResult struct {
	Entity    entities.ImportEntity
	Networks  []dto.NetworkRecord
	Branches  []dto.BranchRecord
	Employees []dto.EmployeeRecord
	Vouchers  []dto.VoucherRecord
	Issues    []dto.RowIssue
	RowsRead  int
}

func (r CleanResult) RowsValid() int {
	return len(r.Networks) + len(r.Branches) + len(r.Employees) + len(r.Vouchers)
}

func (r CleanResult) RowsSkipped() int {
	return r.RowsRead - r.RowsValid()
}

// RowCleaner приводит строки таблицы к записям сущности.
type RowCleaner struct {
	validate *validator.Validate
}

func NewRowCleaner(validate *validator.Validate) *RowCleaner {
	return &RowCleaner{validate: validate}
}

// Clean проходит по строкам: пустые строки пропускаются молча, итоговые и строки без обязательных
// значений попадают в Issues как пропущенные. При повторе ключа побеждает последняя строка.
func (c *RowCleaner) Clean(table dto.TabularRowsDTO, m ColumnMapping) CleanResult {
	res := CleanResult{Entity: m.Entity}
	seen := make(map[string]int)

	for i, row := range table.Rows {
		if isBlankRow(row) {
			continue
		}
		res.RowsRead++
		line := table.LineOf(i)
		if isSubtotalRow(row) {
			res.skip(line, "", utils.CleanName(strings.Join(row, " ")), "итоговая строка")
			continue
		}

		switch m.Entity {
		case entities.EntityNetwork:
			rec, ok := c.cleanNetwork(line, row, m, &res)
			if ok {
				keepLast(seen, rec.Key, line, &res.Networks, rec, &res.Issues)
			}
		case entities.EntityBranch:
			rec, ok := c.cleanBranch(line, row, m, &res)
			if ok {
				keepLast(seen, rec.NetworkKey+"|"+rec.Key, line, &res.Branches, rec, &res.Issues)
			}
		case entities.EntityEmployee:
			rec, ok := c.cleanEmployee(line, row, m, &res)
			if ok {
				keepLast(seen, rec.NetworkKey+"|"+rec.BranchKey+"|"+rec.Key, line, &res.Employees, rec, &res.Issues)
			}
		case entities.EntityVoucher:
			// В продажах повтор строки - это отдельная продажа, дедупликации нет
			if rec, ok := c.cleanVoucher(line, row, m, &res); ok {
				res.Vouchers = append(res.Vouchers, rec)
			}
		}
	}
	return res
}

func (c *RowCleaner) cleanNetwork(line int, row []string, m ColumnMapping, res *CleanResult) (dto.NetworkRecord, bool) {
	name, ok := requiredName(line, row, m, FieldNetwork, res)
	if !ok {
		return dto.NetworkRecord{}, false
	}
	rec := dto.NetworkRecord{
		Line:   line,
		Name:   name,
		Key:    utils.NameKey(name),
		Active: activeFlag(line, row, m, res),
	}
	return rec, c.check(line, rec, res)
}

func (c *RowCleaner) cleanBranch(line int, row []string, m ColumnMapping, res *CleanResult) (dto.BranchRecord, bool) {
	network, ok := requiredName(line, row, m, FieldNetwork, res)
	if !ok {
		return dto.BranchRecord{}, false
	}
	name, ok := requiredName(line, row, m, FieldBranch, res)
	if !ok {
		return dto.BranchRecord{}, false
	}
	rec := dto.BranchRecord{
		Line:        line,
		NetworkName: network,
		NetworkKey:  utils.NameKey(network),
		Name:        name,
		Key:         utils.NameKey(name),
		Active:      activeFlag(line, row, m, res),
		StartDate:   startDate(line, row, m, res),
	}
	return rec, c.check(line, rec, res)
}

func (c *RowCleaner) cleanEmployee(line int, row []string, m ColumnMapping, res *CleanResult) (dto.EmployeeRecord, bool) {
	name, ok := requiredName(line, row, m, FieldEmployee, res)
	if !ok {
		return dto.EmployeeRecord{}, false
	}
	branch, ok := requiredName(line, row, m, FieldBranch, res)
	if !ok {
		return dto.EmployeeRecord{}, false
	}
	network, ok := requiredName(line, row, m, FieldNetwork, res)
	if !ok {
		return dto.EmployeeRecord{}, false
	}
	rec := dto.EmployeeRecord{
		Line:        line,
		NetworkName: network,
		NetworkKey:  utils.NameKey(network),
		BranchName:  branch,
		BranchKey:   utils.NameKey(branch),
		Name:        name,
		Key:         utils.NameKey(name),
		Active:      activeFlag(line, row, m, res),
		StartDate:   startDate(line, row, m, res),
	}
	return rec, c.check(line, rec, res)
}

func (c *RowCleaner) cleanVoucher(line int, row []string, m ColumnMapping, res *CleanResult) (dto.VoucherRecord, bool) {
	rawDate := m.Value(row, FieldDate)
	saleDate, ok := utils.ParseFlexibleDate(rawDate)
	if !ok || saleDate == nil {
		res.skip(line, FieldDate, rawDate, "некорректная или пустая дата продажи")
		return dto.VoucherRecord{}, false
	}
	network, ok := requiredName(line, row, m, FieldNetwork, res)
	if !ok {
		return dto.VoucherRecord{}, false
	}
	branch, ok := requiredName(line, row, m, FieldBranch, res)
	if !ok {
		return dto.VoucherRecord{}, false
	}

	rawAmount := m.Value(row, FieldAmount)
	if rawAmount == "" {
		res.skip(line, FieldAmount, "", "не заполнено поле valor")
		return dto.VoucherRecord{}, false
	}
	amount, err := utils.ParseAmount(rawAmount)
	if err != nil {
		res.skip(line, FieldAmount, rawAmount, err.Error())
		return dto.VoucherRecord{}, false
	}

	// Без колонки количества каждая строка - один ваучер
	quantity := int64(1)
	if rawQty := m.Value(row, FieldQuantity); rawQty != "" {
		quantity, err = utils.ParseQuantity(rawQty)
		if err != nil {
			res.skip(line, FieldQuantity, rawQty, err.Error())
			return dto.VoucherRecord{}, false
		}
	}

	employee := utils.CleanName(m.Value(row, FieldEmployee))
	rec := dto.VoucherRecord{
		Line:         line,
		SaleDate:     *saleDate,
		NetworkName:  network,
		NetworkKey:   utils.NameKey(network),
		BranchName:   branch,
		BranchKey:    utils.NameKey(branch),
		EmployeeName: employee,
		EmployeeKey:  utils.NameKey(employee),
		Quantity:     quantity,
		Amount:       amount,
	}
	return rec, c.check(line, rec, res)
}

// check прогоняет запись через validator; ошибка превращается в пропуск строки.
func (c *RowCleaner) check(line int, rec interface{}, res *CleanResult) bool {
	err := c.validate.Struct(rec)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		res.skip(line, Field(strings.ToLower(fe.Field())), fmt.Sprint(fe.Value()),
			fmt.Sprintf("поле %s не прошло проверку %s", fe.Field(), fe.Tag()))
		return false
	}
	res.skip(line, "", "", err.Error())
	return false
}

func requiredName(line int, row []string, m ColumnMapping, f Field, res *CleanResult) (string, bool) {
	v := utils.CleanName(m.Value(row, f))
	if v == "" {
		res.skip(line, f, "", fmt.Sprintf("не заполнено поле %s", f))
		return "", false
	}
	return v, true
}

func activeFlag(line int, row []string, m ColumnMapping, res *CleanResult) bool {
	raw := m.Value(row, FieldActive)
	active, ok := ParseActive(raw)
	if !ok {
		res.warn(line, FieldActive, raw, "нераспознанный признак активности, запись считается активной")
	}
	return active
}

func startDate(line int, row []string, m ColumnMapping, res *CleanResult) null.Time {
	raw := m.Value(row, FieldStartDate)
	d, ok := utils.ParseFlexibleDate(raw)
	if !ok {
		res.warn(line, FieldStartDate, raw, "нераспознанная дата начала, поле оставлено пустым")
		return null.Time{}
	}
	if d == nil {
		return null.Time{}
	}
	return null.TimeFrom(*d)
}

func keepLast[T any](seen map[string]int, key string, line int, list *[]T, rec T, issues *[]dto.RowIssue) {
	if idx, dup := seen[key]; dup {
		prevLine := lineOf((*list)[idx])
		*issues = append(*issues, dto.RowIssue{
			Line:    prevLine,
			Reason:  fmt.Sprintf("дубликат: перекрыта строкой %d", line),
			Skipped: true,
		})
		(*list)[idx] = rec
		return
	}
	seen[key] = len(*list)
	*list = append(*list, rec)
}

func lineOf(rec interface{}) int {
	switch r := rec.(type) {
	case dto.NetworkRecord:
		return r.Line
	case dto.BranchRecord:
		return r.Line
	case dto.EmployeeRecord:
		return r.Line
	case dto.VoucherRecord:
		return r.Line
	}
	return 0
}

// isSubtotalRow - строка итогов внизу выгрузки ("Total", "Subtotal: Rede Sul", "TOTAL GERAL | 123").
// Маркер в первой непустой ячейке считается итогом, только если за ним идёт ":" или число,
// либо остальные ячейки пустые или числовые. "Total Express" - обычное имя.
func isSubtotalRow(row []string) bool {
	first := -1
	for i, cell := range row {
		if strings.TrimSpace(cell) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return false
	}

	head := strings.ToLower(utils.FoldAccents(utils.CleanName(row[first])))
	for _, marker := range subtotalMarkers {
		if !strings.HasPrefix(head, marker) {
			continue
		}
		rest := strings.TrimSpace(head[len(marker):])
		switch {
		case strings.HasPrefix(rest, ":"):
			return true
		case rest == "" || isNumericCell(rest):
			if allNumericOrEmpty(row[first+1:]) {
				return true
			}
		}
	}
	return false
}

func isNumericCell(s string) bool {
	_, err := utils.ParseAmount(s)
	return err == nil
}

func allNumericOrEmpty(cells []string) bool {
	for _, c := range cells {
		if !isNumericCell(c) {
			return false
		}
	}
	return true
}

func (r *CleanResult) skip(line int, f Field, value, reason string) {
	r.Issues = append(r.Issues, dto.RowIssue{Line: line, Field: string(f), Value: value, Reason: reason, Skipped: true})
}

func (r *CleanResult) warn(line int, f Field, value, reason string) {
	r.Issues = append(r.Issues, dto.RowIssue{Line: line, Field: string(f), Value: value, Reason: reason})
}
