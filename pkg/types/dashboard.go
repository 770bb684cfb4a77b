package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CountPair - всего / активных.
type CountPair struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type DashboardSummary struct {
	Networks            CountPair `json:"networks"`
	Branches            CountPair `json:"branches"`
	Employees           CountPair `json:"employees"`
	AutoCreatedBranches int64     `json:"auto_created_branches"`
}

type DashboardNetworkStat struct {
	NetworkID       uint64 `json:"network_id"`
	Name            string `json:"name"`
	Active          bool   `json:"active"`
	ActiveBranches  int64  `json:"active_branches"`
	ActiveEmployees int64  `json:"active_employees"`
}

// DashboardEvolutionPoint - сколько строк "стартовало" в бакете и накопительный итог.
type DashboardEvolutionPoint struct {
	Bucket        time.Time `json:"bucket"`
	Started       int64     `json:"started"`
	StartedActive int64     `json:"started_active"`
	Cumulative    int64     `json:"cumulative"`
}

type DashboardRankingItem struct {
	Position int             `json:"position"`
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int64           `json:"quantity"`
}

type DashboardVoucherTotals struct {
	Amount   decimal.Decimal `json:"amount"`
	Quantity int64           `json:"quantity"`
	Sales    int64           `json:"sales"`
	Sellers  int64           `json:"sellers"`
}

type DashboardVoucherPoint struct {
	Bucket   time.Time       `json:"bucket"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int64           `json:"quantity"`
}

// DashboardKPIMetric - текущее значение против предыдущего периода той же длины.
type DashboardKPIMetric struct {
	Current      float64 `json:"current"`
	Previous     float64 `json:"previous"`
	TrendPct     float64 `json:"trend_pct"`
	IsIncreasing bool    `json:"is_increasing"`
}
