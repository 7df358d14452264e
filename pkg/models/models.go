package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that owns folders, files and a price plan.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// APIKey represents credentials used to call the HTTP API.
type APIKey struct {
	Key        string
	UserID     uuid.UUID
	Label      string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// Folder is a node in a user's folder hierarchy. ParentID is nil for
// top-level folders.
type Folder struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	ParentID  *uuid.UUID
	Name      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// File is the metadata record for an uploaded file. Deletion is soft:
// DeletedAt is stamped and the record is never physically removed, so it
// stays countable for billing periods before its deletion.
type File struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	FolderID  uuid.UUID
	Name      string
	SizeBytes int64
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the file has been soft-deleted.
func (f File) Deleted() bool {
	return f.DeletedAt != nil
}

// UserGroup is a named set of users used for sharing.
type UserGroup struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
}

// FileShare grants a user group read access to a file.
type FileShare struct {
	ID        uuid.UUID
	FileID    uuid.UUID
	GroupID   uuid.UUID
	CreatedAt time.Time
}
