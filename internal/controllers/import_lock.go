package controllers

import (
	"sync"
	"time"

	"bi-dashboard/internal/entities"
)

// importLocks не даёт запустить две сверки одной сущности одновременно.
// ttl страхует от блокировки, которую не отпустили.
type importLocks struct {
	locks sync.Map
	ttl   time.Duration
}

func newImportLocks(ttl time.Duration) *importLocks {
	return &importLocks{ttl: ttl}
}

func (l *importLocks) TryAcquire(entity entities.ImportEntity) bool {
	now := time.Now()
	expiry := now.Add(l.ttl)

	prev, loaded := l.locks.LoadOrStore(entity, expiry)
	if !loaded {
		return true
	}
	if now.Before(prev.(time.Time)) {
		return false
	}
	return l.locks.CompareAndSwap(entity, prev, expiry)
}

func (l *importLocks) Release(entity entities.ImportEntity) {
	l.locks.Delete(entity)
}
