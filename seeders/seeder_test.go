package seeders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
)

func TestDemoTables_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	first := DemoTables(now, 30, 7)
	second := DemoTables(now, 30, 7)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	assert.Len(t, first[entities.EntityNetwork].Rows, len(demoNetworks))

	branches := 0
	for _, n := range demoNetworks {
		branches += len(n.Branches)
	}
	assert.Len(t, first[entities.EntityBranch].Rows, branches)
	assert.NotEmpty(t, first[entities.EntityVoucher].Rows)

	for _, row := range first[entities.EntityVoucher].Rows {
		require.Len(t, row, len(first[entities.EntityVoucher].Headers))
		day, err := time.Parse(time.DateOnly, row[0])
		require.NoError(t, err)
		assert.False(t, day.After(now))
		assert.NotEqual(t, "Rede Litoral", row[1], "закрытая сеть не продаёт")
	}
}

type orderImporter struct {
	order []entities.ImportEntity
}

func (o *orderImporter) ImportFile(context.Context, entities.ImportEntity, string, io.Reader, dto.ImportOptionsDTO) (*dto.ImportReportDTO, error) {
	return nil, errors.New("не используется")
}

func (o *orderImporter) ImportRows(_ context.Context, entity entities.ImportEntity, table dto.TabularRowsDTO, _ dto.ImportOptionsDTO) (*dto.ImportReportDTO, error) {
	o.order = append(o.order, entity)
	return &dto.ImportReportDTO{Entity: string(entity), RowsRead: len(table.Rows)}, nil
}

func TestSeedDemo_ImportsInDependencyOrder(t *testing.T) {
	imp := &orderImporter{}
	require.NoError(t, SeedDemo(context.Background(), imp, 5, zap.NewNop()))

	assert.Equal(t, []entities.ImportEntity{
		entities.EntityNetwork, entities.EntityBranch, entities.EntityEmployee, entities.EntityVoucher,
	}, imp.order)
}
