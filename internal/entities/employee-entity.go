package entities

import (
	"time"

	"bi-dashboard/pkg/types"
)

// Employee - сотрудник (colaborador), уникален в паре (name_key, branch_id).
type Employee struct {
	ID        uint64
	Name      string
	NameKey   string
	BranchID  uint64
	NetworkID uint64
	Active    bool
	StartDate *time.Time

	Branch  *Branch
	Network *Network

	types.BaseEntity
}
