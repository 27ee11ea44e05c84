// pkg/accounts/memory.go
package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portalgate/pkg/placement"
)

type memStore struct {
	log   *zap.SugaredLogger
	mu    sync.Mutex
	byID  map[uuid.UUID]Account
	byKey map[accountKey]uuid.UUID
	inst  map[uuid.UUID]Installation
}

// NewMemoryStore returns a process-local Store, optionally pre-populated from seeds.
func NewMemoryStore(log *zap.SugaredLogger, seeds []Seed) Store {
	m := &memStore{log: log, byID: map[uuid.UUID]Account{}, byKey: map[accountKey]uuid.UUID{}, inst: map[uuid.UUID]Installation{}}
	now := time.Now().UTC()
	for _, s := range seeds {
		a, err := s.account(now)
		if err != nil {
			log.Warnw("skipping account seed", "domain", s.Domain, "err", err)
			continue
		}
		m.byID[a.ID] = a
		m.byKey[accountKey{a.Domain, a.MemberID}] = a.ID
	}
	return m
}

type accountKey struct {
	domain   string
	memberID string
}

func (m *memStore) FindOrCreate(ctx context.Context, d placement.Data) (Account, error) {
	if err := checkKey(d); err != nil {
		return Account{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	k := accountKey{d.Domain(), d.MemberID()}
	var a Account
	id, ok := m.byKey[k]
	if ok {
		a, ok = m.byID[id]
	}
	if !ok {
		a = Account{ID: uuid.New(), Domain: d.Domain(), MemberID: d.MemberID(), CreatedAt: now}
		m.byKey[k] = a.ID
		m.log.Infow("account created", "domain", a.Domain, "member_id", a.MemberID, "id", a.ID)
	}
	a.apply(d, now)
	m.byID[a.ID] = a
	return a, nil
}

func (m *memStore) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return Account{}, ErrNotFound
}

func (m *memStore) SaveInstallation(ctx context.Context, inst Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[inst.AccountID]; !ok {
		return ErrNotFound
	}
	inst.UpdatedAt = time.Now().UTC()
	m.inst[inst.AccountID] = inst
	return nil
}

// installation is exposed to tests in this package.
func (m *memStore) installation(id uuid.UUID) (Installation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.inst[id]
	return i, ok
}
