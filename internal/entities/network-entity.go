package entities

import (
	"bi-dashboard/pkg/types"
)

// Network - торговая сеть (rede).
type Network struct {
	ID      uint64
	Name    string
	NameKey string
	Active  bool

	types.BaseEntity
}
