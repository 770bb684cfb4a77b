package dto

import (
	"time"

	"bi-dashboard/pkg/types"
)

// EvolutionQueryDTO - параметры временного ряда по справочникам.
type EvolutionQueryDTO struct {
	Entity string     `query:"entity" validate:"required,oneof=network branch employee"`
	Bucket string     `query:"bucket" validate:"omitempty,time_bucket"`
	From   *time.Time `validate:"omitempty"`
	To     *time.Time `validate:"omitempty"`
}

type RankingQueryDTO struct {
	Dimension string     `query:"dimension" validate:"required,oneof=network branch employee"`
	Metric    string     `query:"metric" validate:"omitempty,oneof=amount quantity"`
	Limit     int        `query:"limit" validate:"gte=0,lte=100"`
	From      *time.Time `validate:"omitempty"`
	To        *time.Time `validate:"omitempty"`
}

type VoucherSeriesQueryDTO struct {
	Bucket string     `query:"bucket" validate:"omitempty,time_bucket"`
	From   *time.Time `validate:"omitempty"`
	To     *time.Time `validate:"omitempty"`
}

type DashboardSummaryDTO struct {
	types.DashboardSummary
	LastImport *ImportRunDTO `json:"last_import,omitempty"`
}

type VoucherKPIsDTO struct {
	From          time.Time                `json:"from"`
	To            time.Time                `json:"to"`
	PreviousFrom  time.Time                `json:"previous_from"`
	PreviousTo    time.Time                `json:"previous_to"`
	Amount        types.DashboardKPIMetric `json:"amount"`
	Quantity      types.DashboardKPIMetric `json:"quantity"`
	AverageTicket types.DashboardKPIMetric `json:"average_ticket"`
	ActiveSellers types.DashboardKPIMetric `json:"active_sellers"`
}

type EvolutionDTO struct {
	Entity   string                          `json:"entity"`
	Bucket   string                          `json:"bucket"`
	Baseline int64                           `json:"baseline"`
	Points   []types.DashboardEvolutionPoint `json:"points"`
}

// VoucherKPIQueryDTO - период KPI. Без дат берутся последние 30 дней.
type VoucherKPIQueryDTO struct {
	From *time.Time `validate:"omitempty"`
	To   *time.Time `validate:"omitempty"`
}

type ImportRunsQueryDTO struct {
	Entity string `query:"entity" validate:"omitempty,oneof=network branch employee voucher"`
	Limit  int    `query:"limit" validate:"gte=0,lte=200"`
}
