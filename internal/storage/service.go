package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytevault/server/pkg/events"
	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements folder hierarchy and file metadata operations with
// ownership enforcement. Physical blob I/O is handled elsewhere; this
// service only manages the metadata the rest of the system (sharing,
// billing) works from.
type Service struct {
	store  Store
	bus    *events.Bus
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new storage metadata service
func NewService(store Store, bus *events.Bus, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateFolder creates a folder for ownerID. parentID nil creates a
// top-level folder; otherwise the parent must exist, be live, and belong
// to the same owner.
func (s *Service) CreateFolder(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Folder{}, fmt.Errorf("folder name must not be empty")
	}

	if parentID != nil {
		parent, err := s.store.GetFolder(ctx, *parentID)
		if err != nil {
			return models.Folder{}, err
		}
		if parent.OwnerID != ownerID {
			return models.Folder{}, ErrNotOwner
		}
		if parent.DeletedAt != nil {
			return models.Folder{}, ErrFolderDeleted
		}
	}

	folder := models.Folder{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateFolder(ctx, folder); err != nil {
		return models.Folder{}, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

// RenameFolder renames a live folder owned by ownerID.
func (s *Service) RenameFolder(ctx context.Context, ownerID, folderID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("folder name must not be empty")
	}

	folder, err := s.ownedFolder(ctx, ownerID, folderID)
	if err != nil {
		return err
	}
	if folder.DeletedAt != nil {
		return ErrFolderDeleted
	}

	return s.store.RenameFolder(ctx, folderID, name)
}

// ListFolders returns ownerID's live folders under parentID (nil for top
// level).
func (s *Service) ListFolders(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error) {
	return s.store.ListFolders(ctx, ownerID, parentID)
}

// DeleteFolder soft-deletes an empty folder. A folder with live files or
// subfolders cannot be deleted.
func (s *Service) DeleteFolder(ctx context.Context, ownerID, folderID uuid.UUID) error {
	folder, err := s.ownedFolder(ctx, ownerID, folderID)
	if err != nil {
		return err
	}
	if folder.DeletedAt != nil {
		return ErrFolderDeleted
	}

	count, err := s.store.CountLiveContents(ctx, folderID)
	if err != nil {
		return fmt.Errorf("failed to count folder contents: %w", err)
	}
	if count > 0 {
		return ErrFolderNotEmpty
	}

	if err := s.store.SoftDeleteFolder(ctx, folderID, s.now()); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	s.bus.Publish(ctx, events.NewEvent(events.EventFolderDeleted, ownerID.String(), map[string]interface{}{
		"folder_id": folderID.String(),
	}))
	return nil
}

// RegisterFile records the metadata of a completed upload. Every upload
// creates a new record with a new id; a deleted file is never resurrected
// even when the name matches.
func (s *Service) RegisterFile(ctx context.Context, ownerID, folderID uuid.UUID, name string, sizeBytes int64) (models.File, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.File{}, fmt.Errorf("file name must not be empty")
	}
	if sizeBytes < 0 {
		return models.File{}, fmt.Errorf("file size must not be negative")
	}

	folder, err := s.ownedFolder(ctx, ownerID, folderID)
	if err != nil {
		return models.File{}, err
	}
	if folder.DeletedAt != nil {
		return models.File{}, ErrFolderDeleted
	}

	file := models.File{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		FolderID:  folderID,
		Name:      name,
		SizeBytes: sizeBytes,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateFile(ctx, file); err != nil {
		return models.File{}, fmt.Errorf("failed to register file: %w", err)
	}

	s.bus.Publish(ctx, events.NewEvent(events.EventFileUploaded, ownerID.String(), map[string]interface{}{
		"file_id":    file.ID.String(),
		"size_bytes": sizeBytes,
	}))

	s.logger.Debug("registered file",
		zap.String("file_id", file.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.Int64("size_bytes", sizeBytes),
	)
	return file, nil
}

// GetFile returns a file's metadata without an ownership check. Callers
// must resolve access themselves, typically through the sharing layer.
func (s *Service) GetFile(ctx context.Context, fileID uuid.UUID) (models.File, error) {
	return s.store.GetFile(ctx, fileID)
}

// StatFile returns a file's metadata to its owner.
func (s *Service) StatFile(ctx context.Context, ownerID, fileID uuid.UUID) (models.File, error) {
	file, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return models.File{}, err
	}
	if file.OwnerID != ownerID {
		return models.File{}, ErrNotOwner
	}
	return file, nil
}

// ListFiles returns the live files in a folder owned by ownerID.
func (s *Service) ListFiles(ctx context.Context, ownerID, folderID uuid.UUID) ([]models.File, error) {
	if _, err := s.ownedFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}
	return s.store.ListFiles(ctx, folderID)
}

// DeleteFile soft-deletes a file. The record keeps its deleted_at stamp
// forever so past billing periods can still count it.
func (s *Service) DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) error {
	file, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return ErrNotOwner
	}
	if file.Deleted() {
		return ErrFileDeleted
	}

	if err := s.store.SoftDeleteFile(ctx, fileID, s.now()); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.bus.Publish(ctx, events.NewEvent(events.EventFileDeleted, ownerID.String(), map[string]interface{}{
		"file_id":    fileID.String(),
		"size_bytes": file.SizeBytes,
	}))
	return nil
}

func (s *Service) ownedFolder(ctx context.Context, ownerID, folderID uuid.UUID) (models.Folder, error) {
	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return models.Folder{}, err
	}
	if folder.OwnerID != ownerID {
		return models.Folder{}, ErrNotOwner
	}
	return folder, nil
}
