package entities

import (
	"time"

	"bi-dashboard/pkg/types"
)

// Branch - филиал (filial), уникален в паре (network_id, name_key).
type Branch struct {
	ID          uint64
	NetworkID   uint64
	Name        string
	NameKey     string
	Active      bool
	StartDate   *time.Time
	AutoCreated bool

	Network *Network

	types.BaseEntity
}
