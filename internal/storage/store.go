package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound means the folder or file does not exist (or is not
	// visible to the caller).
	ErrNotFound = errors.New("not found")

	// ErrNotOwner means the caller does not own the resource.
	ErrNotOwner = errors.New("not the owner")

	// ErrFolderNotEmpty means the folder still contains live files or
	// subfolders and cannot be deleted.
	ErrFolderNotEmpty = errors.New("folder is not empty")

	// ErrFolderDeleted means the target folder has been deleted.
	ErrFolderDeleted = errors.New("folder is deleted")

	// ErrFileDeleted means the file has already been deleted. Deleted
	// files are immutable; re-uploading creates a new record.
	ErrFileDeleted = errors.New("file is deleted")
)

// Store persists folder and file metadata. Deletes are soft: records keep
// their deleted_at stamp and never disappear, which is what the billing
// engine meters against.
type Store interface {
	CreateFolder(ctx context.Context, folder models.Folder) error
	GetFolder(ctx context.Context, id uuid.UUID) (models.Folder, error)
	RenameFolder(ctx context.Context, id uuid.UUID, name string) error
	SoftDeleteFolder(ctx context.Context, id uuid.UUID, at time.Time) error
	// ListFolders returns the caller's live folders under parentID;
	// parentID nil means top level.
	ListFolders(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error)
	// CountLiveContents counts live files plus live subfolders in a folder.
	CountLiveContents(ctx context.Context, folderID uuid.UUID) (int64, error)

	CreateFile(ctx context.Context, file models.File) error
	GetFile(ctx context.Context, id uuid.UUID) (models.File, error)
	ListFiles(ctx context.Context, folderID uuid.UUID) ([]models.File, error)
	SoftDeleteFile(ctx context.Context, id uuid.UUID, at time.Time) error
}
