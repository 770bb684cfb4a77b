package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherSale - строка выгрузки продаж ваучеров.
type VoucherSale struct {
	ID          uint64
	SaleDate    time.Time
	NetworkID   uint64
	BranchID    uint64
	EmployeeID  *uint64
	Quantity    int64
	Amount      decimal.Decimal
	ImportRunID uuid.UUID
}
