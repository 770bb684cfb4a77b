package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportEntity - тип загружаемой таблицы.
type ImportEntity string

const (
	EntityNetwork  ImportEntity = "network"
	EntityBranch   ImportEntity = "branch"
	EntityEmployee ImportEntity = "employee"
	EntityVoucher  ImportEntity = "voucher"
)

var importEntityAliases = map[string]ImportEntity{
	"network": EntityNetwork, "networks": EntityNetwork, "rede": EntityNetwork, "redes": EntityNetwork,
	"branch": EntityBranch, "branches": EntityBranch, "filial": EntityBranch, "filiais": EntityBranch,
	"employee": EntityEmployee, "employees": EntityEmployee, "colaborador": EntityEmployee, "colaboradores": EntityEmployee,
	"voucher": EntityVoucher, "vouchers": EntityVoucher,
}

// ParseImportEntity принимает как английские, так и португальские названия.
func ParseImportEntity(s string) (ImportEntity, error) {
	if e, ok := importEntityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return e, nil
	}
	return "", fmt.Errorf("неизвестный тип справочника %q", s)
}

// ImportRun - запись журнала загрузок. Каждая сверка оставляет ровно одну.
type ImportRun struct {
	ID           uuid.UUID
	Entity       ImportEntity
	SourceName   string
	RowsRead     int
	RowsValid    int
	RowsSkipped  int
	Added        int
	Updated      int
	Renamed      int
	Reactivated  int
	Deactivated  int
	Unchanged    int
	Replaced     int
	AutoNetworks int
	AutoBranches int
	StartedAt    time.Time
	FinishedAt   time.Time
}
