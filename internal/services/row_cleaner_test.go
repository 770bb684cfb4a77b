package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/pkg/validation"
)

func newTestCleaner() *RowCleaner {
	return NewRowCleaner(validation.New().Engine())
}

func mustMap(t *testing.T, entity entities.ImportEntity, headers []string) ColumnMapping {
	t.Helper()
	m, err := MapColumns(entity, headers)
	require.NoError(t, err)
	return m
}

func TestParseActive(t *testing.T) {
	tests := []struct {
		in     string
		active bool
		ok     bool
	}{
		{"", true, true},
		{"Sim", true, true},
		{"ATIVO", true, true},
		{"x", true, true},
		{"1", true, true},
		{"Não", false, true},
		{"inativa", false, true},
		{"Desligado", false, true},
		{"0", false, true},
		{"talvez", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			active, ok := ParseActive(tt.in)
			assert.Equal(t, tt.active, active)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRowCleaner_Branches(t *testing.T) {
	m := mustMap(t, entities.EntityBranch, []string{"Rede", "Filial", "Ativo", "Data Abertura"})
	table := dto.TabularRowsDTO{
		Headers: []string{"Rede", "Filial", "Ativo", "Data Abertura"},
		Rows: [][]string{
			{"Rede  Sul", " Centro ", "sim", "15/03/2024"},
			{"", "Norte", "sim", ""},
			{"", "", "", ""},
			{"Rede Sul", "Oeste", "talvez", "ontem"},
			{"Rede Sul", "CENTRO", "não", ""},
			{"Total", "", "", ""},
		},
	}

	res := newTestCleaner().Clean(table, m)

	assert.Equal(t, 5, res.RowsRead, "пустая строка не считается")
	require.Len(t, res.Branches, 2)
	assert.Equal(t, 3, res.RowsSkipped())

	// Последняя строка с тем же ключом победила, но осталась на месте первой
	centro := res.Branches[0]
	assert.Equal(t, "CENTRO", centro.Name)
	assert.Equal(t, "centro", centro.Key)
	assert.Equal(t, "Rede Sul", centro.NetworkName)
	assert.Equal(t, "rede sul", centro.NetworkKey)
	assert.False(t, centro.Active)
	assert.False(t, centro.StartDate.Valid)
	assert.Equal(t, 6, centro.Line)

	oeste := res.Branches[1]
	assert.True(t, oeste.Active, "нераспознанный флаг считается активным")
	assert.False(t, oeste.StartDate.Valid)

	var skipped, warnings []dto.RowIssue
	for _, is := range res.Issues {
		if is.Skipped {
			skipped = append(skipped, is)
		} else {
			warnings = append(warnings, is)
		}
	}
	require.Len(t, skipped, 3)
	assert.Equal(t, 3, skipped[0].Line)
	assert.Equal(t, "rede", skipped[0].Field)
	assert.Equal(t, 2, skipped[1].Line, "перекрытый дубликат")
	assert.Equal(t, 7, skipped[2].Line)
	assert.Equal(t, "итоговая строка", skipped[2].Reason)

	require.Len(t, warnings, 2)
	assert.Equal(t, "ativo", warnings[0].Field)
	assert.Equal(t, "data_inicio", warnings[1].Field)
}

func TestRowCleaner_EmployeesDuplicateScope(t *testing.T) {
	m := mustMap(t, entities.EntityEmployee, []string{"Colaborador", "Filial", "Rede", "Admissão"})
	table := dto.TabularRowsDTO{
		Rows: [][]string{
			{"Ana Souza", "Centro", "Rede Sul", "2024-01-10"},
			{"Ana Souza", "Norte", "Rede Sul", ""},
			{"ana  souza", "Centro", "Rede Sul", ""},
		},
	}

	res := newTestCleaner().Clean(table, m)

	require.Len(t, res.Employees, 2, "одно имя в разных филиалах - разные сотрудники")
	assert.Equal(t, "ana souza", res.Employees[0].Name)
	assert.False(t, res.Employees[0].StartDate.Valid)
	assert.Equal(t, "norte", res.Employees[1].BranchKey)
	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 1, res.RowsSkipped())
}

func TestRowCleaner_Vouchers(t *testing.T) {
	m := mustMap(t, entities.EntityVoucher, []string{"Data", "Rede", "Filial", "Vendedor", "Qtd", "Valor"})
	table := dto.TabularRowsDTO{
		Rows: [][]string{
			{"15/03/2024", "Rede Sul", "Centro", "Ana", "2", "R$ 1.234,50"},
			{"15/03/2024", "Rede Sul", "Centro", "Ana", "2", "R$ 1.234,50"},
			{"", "Rede Sul", "Centro", "", "1", "10"},
			{"16/03/2024", "Rede Sul", "Centro", "", "", "abc"},
			{"16/03/2024", "Rede Sul", "Centro", "", "", "99,90"},
			{"16/03/2024", "Rede Sul", "Centro", "", "-1", "5"},
		},
	}

	res := newTestCleaner().Clean(table, m)

	require.Len(t, res.Vouchers, 3, "повтор продажи не схлопывается")
	first := res.Vouchers[0]
	assert.True(t, decimal.RequireFromString("1234.5").Equal(first.Amount))
	assert.Equal(t, int64(2), first.Quantity)
	assert.Equal(t, "ana", first.EmployeeKey)
	assert.True(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).Equal(first.SaleDate))

	assert.Equal(t, int64(1), res.Vouchers[2].Quantity, "пустое количество = один ваучер")
	assert.Equal(t, "", res.Vouchers[2].EmployeeKey)
	assert.Equal(t, 3, res.RowsSkipped())
}

func TestIsSubtotalRow(t *testing.T) {
	assert.True(t, isSubtotalRow([]string{"", "TOTAL GERAL", "123"}))
	assert.True(t, isSubtotalRow([]string{"Subtotal: Rede Sul"}))
	assert.True(t, isSubtotalRow([]string{"Totais"}))
	assert.False(t, isSubtotalRow([]string{"Totalidade Ltda", "Centro"}))
	assert.False(t, isSubtotalRow([]string{"Rede Sul", "Total"}))
	assert.True(t, isSubtotalRow([]string{"Total", "", "", ""}))
	assert.True(t, isSubtotalRow([]string{"Total 1.234,50"}))
	assert.True(t, isSubtotalRow([]string{"Total", "12", "R$ 1.500,00"}))

	assert.False(t, isSubtotalRow([]string{"Total Express", "sim"}))
	assert.False(t, isSubtotalRow([]string{"Total Distribuidora"}))
	assert.False(t, isSubtotalRow([]string{"Total", "Centro", "sim"}), "сеть с именем Total")
}

func TestRowCleaner_NetworkNamedTotal(t *testing.T) {
	m := mustMap(t, entities.EntityNetwork, []string{"Rede", "Ativo"})
	table := dto.TabularRowsDTO{
		Headers: []string{"Rede", "Ativo"},
		Rows: [][]string{
			{"Total Express", "sim"},
			{"Rede Sul", "sim"},
			{"Total", ""},
		},
	}

	res := newTestCleaner().Clean(table, m)

	require.Len(t, res.Networks, 2)
	assert.Equal(t, "Total Express", res.Networks[0].Name)
	assert.Equal(t, 3, res.RowsRead)
	require.Len(t, res.Issues, 1)
	assert.True(t, res.Issues[0].Skipped)
	assert.Equal(t, 4, res.Issues[0].Line)
}
