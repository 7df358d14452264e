package sharing

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytevault/server/pkg/database"
	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresStore is the production Store backed by the shared pool.
type PostgresStore struct {
	db *database.Database
}

// NewPostgresStore creates a Postgres-backed sharing store
func NewPostgresStore(db *database.Database) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateGroup(ctx context.Context, group models.UserGroup) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO user_groups (id, owner_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, group.ID, group.OwnerID, group.Name, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, id uuid.UUID) (models.UserGroup, error) {
	var group models.UserGroup
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, name, created_at FROM user_groups WHERE id = $1
	`, id).Scan(&group.ID, &group.OwnerID, &group.Name, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserGroup{}, ErrGroupNotFound
		}
		return models.UserGroup{}, fmt.Errorf("failed to query group: %w", err)
	}
	return group, nil
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM file_shares WHERE group_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete group shares: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM user_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT user_id FROM group_members WHERE group_id = $1
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2
		)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateShare(ctx context.Context, share models.FileShare) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO file_shares (id, file_id, group_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_id, group_id) DO NOTHING
	`, share.ID, share.FileID, share.GroupID, share.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert share: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteShare(ctx context.Context, fileID, groupID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM file_shares WHERE file_id = $1 AND group_id = $2
	`, fileID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShareNotFound
	}
	return nil
}

func (s *PostgresStore) ListSharedFileIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT DISTINCT fs.file_id
		FROM file_shares fs
		INNER JOIN group_members gm ON gm.group_id = fs.group_id
		WHERE gm.user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared files: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan shared file id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shared files: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) GroupsSharingFile(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT group_id FROM file_shares WHERE file_id = $1
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query file shares: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file shares: %w", err)
	}
	return ids, nil
}
