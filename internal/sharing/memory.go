package sharing

import (
	"context"
	"sync"

	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	groups  map[uuid.UUID]models.UserGroup
	members map[uuid.UUID]map[uuid.UUID]bool // group -> member set
	shares  map[uuid.UUID]map[uuid.UUID]models.FileShare // file -> group -> share
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:  make(map[uuid.UUID]models.UserGroup),
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
		shares:  make(map[uuid.UUID]map[uuid.UUID]models.FileShare),
	}
}

func (m *MemoryStore) CreateGroup(_ context.Context, group models.UserGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = group
	m.members[group.ID] = make(map[uuid.UUID]bool)
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, id uuid.UUID) (models.UserGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[id]
	if !ok {
		return models.UserGroup{}, ErrGroupNotFound
	}
	return group, nil
}

func (m *MemoryStore) DeleteGroup(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return ErrGroupNotFound
	}
	delete(m.groups, id)
	delete(m.members, id)
	for fileID := range m.shares {
		delete(m.shares[fileID], id)
	}
	return nil
}

func (m *MemoryStore) AddMember(_ context.Context, groupID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.members[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	members[userID] = true
	return nil
}

func (m *MemoryStore) RemoveMember(_ context.Context, groupID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.members[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	delete(members, userID)
	return nil
}

func (m *MemoryStore) ListMembers(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members, ok := m.members[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	var out []uuid.UUID
	for userID := range members {
		out = append(out, userID)
	}
	return out, nil
}

func (m *MemoryStore) IsMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.members[groupID][userID], nil
}

func (m *MemoryStore) CreateShare(_ context.Context, share models.FileShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shares[share.FileID] == nil {
		m.shares[share.FileID] = make(map[uuid.UUID]models.FileShare)
	}
	m.shares[share.FileID][share.GroupID] = share
	return nil
}

func (m *MemoryStore) DeleteShare(_ context.Context, fileID, groupID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[fileID][groupID]; !ok {
		return ErrShareNotFound
	}
	delete(m.shares[fileID], groupID)
	return nil
}

func (m *MemoryStore) ListSharedFileIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []uuid.UUID
	for fileID, byGroup := range m.shares {
		for groupID := range byGroup {
			if m.members[groupID][userID] {
				out = append(out, fileID)
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) GroupsSharingFile(_ context.Context, fileID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []uuid.UUID
	for groupID := range m.shares[fileID] {
		out = append(out, groupID)
	}
	return out, nil
}
