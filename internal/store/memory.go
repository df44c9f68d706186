package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-user-admin/internal/domain"
	"go-user-admin/pkg/utils"
)

// Memory 内存存储：mutex + 双索引（guid / login），默认内置 Admin 账号。
// 唯一性检查与写入在同一把锁内完成。
type Memory struct {
	mu       sync.RWMutex
	byGUID   map[string]*domain.User
	loginIdx map[string]string // login -> guid
}

func NewMemory() *Memory {
	m := &Memory{
		byGUID:   make(map[string]*domain.User),
		loginIdx: make(map[string]string),
	}
	now := time.Now()
	seed := &domain.User{
		GUID:         utils.NewID(),
		Login:        "Admin",
		PasswordHash: utils.HashPassword("Admin123"),
		Name:         "Administrator",
		Gender:       domain.GenderUnknown,
		Admin:        true,
		CreatedOn:    now,
		CreatedBy:    "System",
		ModifiedOn:   now,
		ModifiedBy:   "System",
	}
	m.byGUID[seed.GUID] = seed
	m.loginIdx[seed.Login] = seed.GUID
	return m
}

func (m *Memory) Add(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loginIdx[u.Login]; ok {
		return domain.Conflict("login already exists")
	}
	cp := *u
	m.byGUID[cp.GUID] = &cp
	m.loginIdx[cp.Login] = cp.GUID
	return nil
}

func (m *Memory) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byGUID[u.GUID]
	if !ok {
		return domain.NotFound("user not found")
	}
	if u.Login != old.Login {
		if _, taken := m.loginIdx[u.Login]; taken {
			return domain.Conflict("login already exists")
		}
		delete(m.loginIdx, old.Login)
		m.loginIdx[u.Login] = u.GUID
	}
	cp := *u
	m.byGUID[cp.GUID] = &cp
	return nil
}

func (m *Memory) FindByLogin(_ context.Context, login string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	guid, ok := m.loginIdx[login]
	if !ok {
		return nil, nil
	}
	cp := *m.byGUID[guid]
	return &cp, nil
}

func (m *Memory) List(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.User, 0, len(m.byGUID))
	for _, u := range m.byGUID {
		out = append(out, *u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].Login < out[j].Login
		}
		return out[i].CreatedOn.Before(out[j].CreatedOn)
	})
	return out, nil
}

func (m *Memory) Remove(_ context.Context, login string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	guid, ok := m.loginIdx[login]
	if !ok {
		return domain.NotFound("user not found")
	}
	delete(m.byGUID, guid)
	delete(m.loginIdx, login)
	return nil
}
