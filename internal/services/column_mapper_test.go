package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bi-dashboard/internal/entities"
	apperrors "bi-dashboard/pkg/errors"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "data_de_inicio_admissao", NormalizeHeader(" Data de Início (Admissão) "))
	assert.Equal(t, "nome_da_filial", NormalizeHeader("\ufeffNOME DA  FILIAL"))
	assert.Equal(t, "", NormalizeHeader("  --  "))
}

func TestMapColumns_ExactAndFuzzy(t *testing.T) {
	headers := []string{"Nome da Rede", "Nome Filial Loja", "Situação (Ativo/Inativo)", "Data de Inauguração", "Observação"}

	m, err := MapColumns(entities.EntityBranch, headers)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Index[FieldNetwork])
	assert.Equal(t, 1, m.Index[FieldBranch])
	assert.Equal(t, 2, m.Index[FieldActive])
	assert.Equal(t, 3, m.Index[FieldStartDate])

	assert.False(t, m.Fuzzy[FieldNetwork], "точный синоним")
	assert.True(t, m.Fuzzy[FieldBranch])
	assert.True(t, m.Fuzzy[FieldActive])
	assert.Equal(t, []string{"Observação"}, m.Unmapped)
}

func TestMapColumns_ExactBeatsFuzzy(t *testing.T) {
	m, err := MapColumns(entities.EntityBranch, []string{"Nome Filial Loja", "Loja", "Rede"})
	require.NoError(t, err)

	assert.Equal(t, 1, m.Index[FieldBranch])
	assert.Equal(t, 2, m.Index[FieldNetwork])
	assert.Contains(t, m.Unmapped, "Nome Filial Loja")
}

func TestMapColumns_DuplicateHeadersFirstWins(t *testing.T) {
	m, err := MapColumns(entities.EntityBranch, []string{"Rede", "Rede", "", "Filial"})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Index[FieldNetwork])
	assert.Equal(t, 3, m.Index[FieldBranch])
	assert.Equal(t, []string{"Rede"}, m.Unmapped, "пустой заголовок не попадает в список")
}

func TestMapColumns_NetworkNameColumn(t *testing.T) {
	m, err := MapColumns(entities.EntityNetwork, []string{"Nome", "Status"})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Index[FieldNetwork])
	assert.Equal(t, 1, m.Index[FieldActive])
}

func TestMapColumns_Voucher(t *testing.T) {
	headers := []string{"Data da Venda", "Rede", "Loja", "Vendedor", "Qtd", "Valor Total (R$)"}

	m, err := MapColumns(entities.EntityVoucher, headers)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Index[FieldDate])
	assert.Equal(t, 2, m.Index[FieldBranch])
	assert.Equal(t, 3, m.Index[FieldEmployee])
	assert.Equal(t, 4, m.Index[FieldQuantity])
	assert.Equal(t, 5, m.Index[FieldAmount])
	assert.True(t, m.Fuzzy[FieldAmount])
}

func TestMapColumns_MissingRequired(t *testing.T) {
	_, err := MapColumns(entities.EntityEmployee, []string{"Filial", "Ativo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingColumns)

	var colsErr *apperrors.MissingColumnsError
	require.ErrorAs(t, err, &colsErr)
	assert.Equal(t, []string{"colaborador", "rede"}, colsErr.Missing)
}

func TestMapColumns_UnknownEntity(t *testing.T) {
	_, err := MapColumns(entities.ImportEntity("produto"), []string{"Rede"})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedEntity)
}

func TestColumnMapping_Value(t *testing.T) {
	m, err := MapColumns(entities.EntityBranch, []string{"Rede", "Filial", "Ativo"})
	require.NoError(t, err)

	row := []string{" Rede Sul ", "Centro"}
	assert.Equal(t, "Rede Sul", m.Value(row, FieldNetwork))
	assert.Equal(t, "", m.Value(row, FieldActive), "короткая строка")
	assert.Equal(t, "", m.Value(row, FieldStartDate), "колонка не сопоставлена")
}
