package storage

import (
	"context"
	"sync"
	"time"

	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	folders map[uuid.UUID]models.Folder
	files   map[uuid.UUID]models.File
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		folders: make(map[uuid.UUID]models.Folder),
		files:   make(map[uuid.UUID]models.File),
	}
}

func (m *MemoryStore) CreateFolder(_ context.Context, folder models.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[folder.ID] = folder
	return nil
}

func (m *MemoryStore) GetFolder(_ context.Context, id uuid.UUID) (models.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	folder, ok := m.folders[id]
	if !ok {
		return models.Folder{}, ErrNotFound
	}
	return folder, nil
}

func (m *MemoryStore) RenameFolder(_ context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder, ok := m.folders[id]
	if !ok {
		return ErrNotFound
	}
	folder.Name = name
	m.folders[id] = folder
	return nil
}

func (m *MemoryStore) SoftDeleteFolder(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder, ok := m.folders[id]
	if !ok {
		return ErrNotFound
	}
	folder.DeletedAt = &at
	m.folders[id] = folder
	return nil
}

func (m *MemoryStore) ListFolders(_ context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Folder
	for _, folder := range m.folders {
		if folder.OwnerID != ownerID || folder.DeletedAt != nil {
			continue
		}
		if !sameParent(folder.ParentID, parentID) {
			continue
		}
		out = append(out, folder)
	}
	return out, nil
}

func (m *MemoryStore) CountLiveContents(_ context.Context, folderID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, file := range m.files {
		if file.FolderID == folderID && file.DeletedAt == nil {
			count++
		}
	}
	for _, folder := range m.folders {
		if folder.ParentID != nil && *folder.ParentID == folderID && folder.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CreateFile(_ context.Context, file models.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.ID] = file
	return nil
}

func (m *MemoryStore) GetFile(_ context.Context, id uuid.UUID) (models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok {
		return models.File{}, ErrNotFound
	}
	return file, nil
}

func (m *MemoryStore) ListFiles(_ context.Context, folderID uuid.UUID) ([]models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.File
	for _, file := range m.files {
		if file.FolderID == folderID && file.DeletedAt == nil {
			out = append(out, file)
		}
	}
	return out, nil
}

func (m *MemoryStore) SoftDeleteFile(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	file.DeletedAt = &at
	m.files[id] = file
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
