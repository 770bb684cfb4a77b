package services

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bi-dashboard/internal/entities"
)

type networkRef struct {
	Key  string
	Name string
}

type branchRef struct {
	NetworkKey string
	Key        string
	Name       string
}

// ensureNetworks возвращает id всех сетей, на которые ссылается загрузка.
// Отсутствующие сети создаются активными.
func (s *Reconciler) ensureNetworks(ctx context.Context, tx pgx.Tx, refs []networkRef, st *reconcileState) (map[string]uint64, error) {
	existing, err := s.networkRepo.ListNetworks(ctx, tx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]uint64, len(existing))
	for _, n := range existing {
		known[n.NameKey] = n.ID
	}

	result := make(map[string]uint64)
	for _, ref := range refs {
		if _, done := result[ref.Key]; done {
			continue
		}
		if id, ok := known[ref.Key]; ok {
			result[ref.Key] = id
			continue
		}

		id, err := s.networkRepo.CreateNetwork(ctx, tx, entities.Network{Name: ref.Name, NameKey: ref.Key, Active: true})
		if err != nil {
			return nil, err
		}
		s.logger.Info("создана отсутствующая сеть", zap.String("network", ref.Name), zap.Uint64("id", id))
		result[ref.Key] = id
		st.run.AutoNetworks++
	}
	return result, nil
}

// ensureBranches возвращает id филиалов по ключу "network_id|branch_key".
// Отсутствующая пара (филиал, сеть) создаётся активным филиалом с датой начала "сегодня".
func (s *Reconciler) ensureBranches(ctx context.Context, tx pgx.Tx, networkIDs map[string]uint64, refs []branchRef, st *reconcileState) (map[string]uint64, error) {
	existing, err := s.branchRepo.ListByNetworks(ctx, tx, scopeIDs(scopeOf(networkIDs)))
	if err != nil {
		return nil, err
	}
	result := make(map[string]uint64, len(existing))
	for _, b := range existing {
		result[compositeKey(b.NetworkID, b.NameKey)] = b.ID
	}

	for _, ref := range refs {
		netID := networkIDs[ref.NetworkKey]
		key := compositeKey(netID, ref.Key)
		if _, ok := result[key]; ok {
			continue
		}

		today := st.today
		id, err := s.branchRepo.CreateBranch(ctx, tx, entities.Branch{
			NetworkID:   netID,
			Name:        ref.Name,
			NameKey:     ref.Key,
			Active:      true,
			StartDate:   &today,
			AutoCreated: true,
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("создан отсутствующий филиал",
			zap.String("branch", ref.Name), zap.Uint64("network_id", netID), zap.Uint64("id", id))
		result[key] = id
		st.run.AutoBranches++
	}
	return result, nil
}

// scopeOf - сети, затронутые загрузкой: деактивация не выходит за их пределы.
func scopeOf(networkIDs map[string]uint64) map[uint64]bool {
	scope := make(map[uint64]bool, len(networkIDs))
	for _, id := range networkIDs {
		scope[id] = true
	}
	return scope
}

func scopeIDs(scope map[uint64]bool) []uint64 {
	ids := make([]uint64, 0, len(scope))
	for id := range scope {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
