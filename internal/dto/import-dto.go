package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

// TabularRowsDTO - уже разобранная таблица: заголовки + строки.
// FirstLine - номер строки файла, на которой начинаются данные (для сообщений об ошибках).
type TabularRowsDTO struct {
	Headers    []string   `json:"headers" validate:"required,min=1"`
	Rows       [][]string `json:"rows"`
	FirstLine  int        `json:"first_line" validate:"gte=0"`
	SourceName string     `json:"source_name" validate:"max=255"`
}

// LineOf возвращает номер строки файла для i-й строки данных.
func (t TabularRowsDTO) LineOf(i int) int {
	if t.FirstLine <= 0 {
		return i + 2
	}
	return t.FirstLine + i
}

type ImportOptionsDTO struct {
	DeactivateMissing *bool  `json:"deactivate_missing" query:"deactivate_missing"`
	SourceName        string `json:"source_name"`
}

// RowIssue - строка, которая была пропущена или принята с предупреждением.
type RowIssue struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Reason  string `json:"reason"`
	Skipped bool   `json:"skipped"`
}

// --- Очищенные записи ---

type NetworkRecord struct {
	Line   int
	Name   string `validate:"required,not_blank,max=255"`
	Key    string `validate:"required"`
	Active bool
}

type BranchRecord struct {
	Line        int
	NetworkName string `validate:"required,not_blank,max=255"`
	NetworkKey  string `validate:"required"`
	Name        string `validate:"required,not_blank,max=255"`
	Key         string `validate:"required"`
	Active      bool
	StartDate   null.Time `validate:"omitempty"`
}

type EmployeeRecord struct {
	Line        int
	NetworkName string `validate:"required,not_blank,max=255"`
	NetworkKey  string `validate:"required"`
	BranchName  string `validate:"required,not_blank,max=255"`
	BranchKey   string `validate:"required"`
	Name        string `validate:"required,not_blank,max=255"`
	Key         string `validate:"required"`
	Active      bool
	StartDate   null.Time `validate:"omitempty"`
}

type VoucherRecord struct {
	Line         int
	SaleDate     time.Time `validate:"required"`
	NetworkName  string    `validate:"required,not_blank,max=255"`
	NetworkKey   string    `validate:"required"`
	BranchName   string    `validate:"required,not_blank,max=255"`
	BranchKey    string    `validate:"required"`
	EmployeeName string    `validate:"max=255"`
	EmployeeKey  string
	Quantity     int64 `validate:"gte=0"`
	Amount       decimal.Decimal
}

// --- Отчёт о загрузке ---

type ImportReportDTO struct {
	RunID               string     `json:"run_id"`
	Entity              string     `json:"entity"`
	SourceName          string     `json:"source_name,omitempty"`
	RowsRead            int        `json:"rows_read"`
	RowsValid           int        `json:"rows_valid"`
	RowsSkipped         int        `json:"rows_skipped"`
	Added               int        `json:"added"`
	Updated             int        `json:"updated"`
	Renamed             int        `json:"renamed"`
	Reactivated         int        `json:"reactivated"`
	Deactivated         int        `json:"deactivated"`
	Unchanged           int        `json:"unchanged"`
	Replaced            int        `json:"replaced,omitempty"`
	AutoCreatedNetworks int        `json:"auto_created_networks"`
	AutoCreatedBranches int        `json:"auto_created_branches"`
	Issues              []RowIssue `json:"issues"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          time.Time  `json:"finished_at"`
}

type ImportRunDTO struct {
	ID                  string    `json:"id"`
	Entity              string    `json:"entity"`
	SourceName          string    `json:"source_name"`
	RowsRead            int       `json:"rows_read"`
	RowsValid           int       `json:"rows_valid"`
	RowsSkipped         int       `json:"rows_skipped"`
	Added               int       `json:"added"`
	Updated             int       `json:"updated"`
	Renamed             int       `json:"renamed"`
	Reactivated         int       `json:"reactivated"`
	Deactivated         int       `json:"deactivated"`
	Unchanged           int       `json:"unchanged"`
	Replaced            int       `json:"replaced"`
	AutoCreatedNetworks int       `json:"auto_created_networks"`
	AutoCreatedBranches int       `json:"auto_created_branches"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// ImportRowsRequestDTO - тело POST /api/imports/:entity/rows: таблица уже разобрана вызывающей стороной.
type ImportRowsRequestDTO struct {
	TabularRowsDTO
	DeactivateMissing *bool `json:"deactivate_missing"`
}
