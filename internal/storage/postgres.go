package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytevault/server/pkg/database"
	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresStore is the production Store backed by the shared pool.
type PostgresStore struct {
	db *database.Database
}

// NewPostgresStore creates a Postgres-backed metadata store
func NewPostgresStore(db *database.Database) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateFolder(ctx context.Context, folder models.Folder) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO folders (id, owner_id, parent_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, folder.ID, folder.OwnerID, folder.ParentID, folder.Name, folder.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFolder(ctx context.Context, id uuid.UUID) (models.Folder, error) {
	var folder models.Folder
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, parent_id, name, created_at, deleted_at
		FROM folders WHERE id = $1
	`, id).Scan(&folder.ID, &folder.OwnerID, &folder.ParentID, &folder.Name, &folder.CreatedAt, &folder.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Folder{}, ErrNotFound
		}
		return models.Folder{}, fmt.Errorf("failed to query folder: %w", err)
	}
	return folder, nil
}

func (s *PostgresStore) RenameFolder(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE folders SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("failed to rename folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SoftDeleteFolder(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE folders SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListFolders(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, owner_id, parent_id, name, created_at, deleted_at
		FROM folders
		WHERE owner_id = $1
		  AND deleted_at IS NULL
		  AND (($2::uuid IS NULL AND parent_id IS NULL) OR parent_id = $2)
		ORDER BY name
	`, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := rows.Scan(&folder.ID, &folder.OwnerID, &folder.ParentID, &folder.Name, &folder.CreatedAt, &folder.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}
	return folders, nil
}

func (s *PostgresStore) CountLiveContents(ctx context.Context, folderID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM files WHERE folder_id = $1 AND deleted_at IS NULL) +
			(SELECT COUNT(*) FROM folders WHERE parent_id = $1 AND deleted_at IS NULL)
	`, folderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count folder contents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateFile(ctx context.Context, file models.File) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO files (id, owner_id, folder_id, name, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, file.ID, file.OwnerID, file.FolderID, file.Name, file.SizeBytes, file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFile(ctx context.Context, id uuid.UUID) (models.File, error) {
	var file models.File
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, folder_id, name, size_bytes, created_at, deleted_at
		FROM files WHERE id = $1
	`, id).Scan(&file.ID, &file.OwnerID, &file.FolderID, &file.Name, &file.SizeBytes, &file.CreatedAt, &file.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.File{}, ErrNotFound
		}
		return models.File{}, fmt.Errorf("failed to query file: %w", err)
	}
	return file, nil
}

func (s *PostgresStore) ListFiles(ctx context.Context, folderID uuid.UUID) ([]models.File, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, owner_id, folder_id, name, size_bytes, created_at, deleted_at
		FROM files
		WHERE folder_id = $1 AND deleted_at IS NULL
		ORDER BY name
	`, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var file models.File
		if err := rows.Scan(&file.ID, &file.OwnerID, &file.FolderID, &file.Name, &file.SizeBytes, &file.CreatedAt, &file.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}
	return files, nil
}

func (s *PostgresStore) SoftDeleteFile(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE files SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
