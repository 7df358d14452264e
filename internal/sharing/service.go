package sharing

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

// FileGetter is the slice of the storage layer sharing needs: just enough
// to verify that a shared file exists and who owns it.
type FileGetter interface {
	GetFile(ctx context.Context, id uuid.UUID) (models.File, error)
}

// Service implements user groups and file sharing. A file is shared with
// a group; members of the group gain read access.
type Service struct {
	store  Store
	files  FileGetter
	bus    *events.Bus
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new sharing service
func NewService(store Store, files FileGetter, bus *events.Bus, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		files:  files,
		bus:    bus,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateGroup creates a user group owned by ownerID. The owner is always
// a member.
func (s *Service) CreateGroup(ctx context.Context, ownerID uuid.UUID, name string) (models.UserGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.UserGroup{}, fmt.Errorf("group name must not be empty")
	}

	group := models.UserGroup{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return models.UserGroup{}, fmt.Errorf("failed to create group: %w", err)
	}
	if err := s.store.AddMember(ctx, group.ID, ownerID); err != nil {
		return models.UserGroup{}, fmt.Errorf("failed to add owner as member: %w", err)
	}
	return group, nil
}

// DeleteGroup removes a group and its memberships. Owner only.
func (s *Service) DeleteGroup(ctx context.Context, ownerID, groupID uuid.UUID) error {
	if err := s.ownedGroup(ctx, ownerID, groupID); err != nil {
		return err
	}
	return s.store.DeleteGroup(ctx, groupID)
}

// AddMember adds userID to a group. Owner only.
func (s *Service) AddMember(ctx context.Context, ownerID, groupID, userID uuid.UUID) error {
	if err := s.ownedGroup(ctx, ownerID, groupID); err != nil {
		return err
	}
	return s.store.AddMember(ctx, groupID, userID)
}

// RemoveMember removes userID from a group. Owner only; the owner cannot
// remove themselves.
func (s *Service) RemoveMember(ctx context.Context, ownerID, groupID, userID uuid.UUID) error {
	if err := s.ownedGroup(ctx, ownerID, groupID); err != nil {
		return err
	}
	if userID == ownerID {
		return fmt.Errorf("group owner cannot be removed")
	}
	return s.store.RemoveMember(ctx, groupID, userID)
}

// ListMembers returns the member ids of a group the caller belongs to.
func (s *Service) ListMembers(ctx context.Context, callerID, groupID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	member, err := s.store.IsMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotOwner
	}
	return s.store.ListMembers(ctx, groupID)
}

// ShareFile grants a group read access to a file. Only the file's owner
// may share it, and deleted files cannot be shared.
func (s *Service) ShareFile(ctx context.Context, ownerID, fileID, groupID uuid.UUID) error {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return ErrNotOwner
	}
	if file.Deleted() {
		return fmt.Errorf("cannot share a deleted file")
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}

	share := models.FileShare{
		ID:        uuid.New(),
		FileID:    fileID,
		GroupID:   groupID,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateShare(ctx, share); err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}

	s.bus.Publish(ctx, events.NewEvent(events.EventFileShared, ownerID.String(), map[string]interface{}{
		"file_id":  fileID.String(),
		"group_id": groupID.String(),
	}))
	return nil
}

// RevokeShare removes a grant. Only the file's owner may revoke.
func (s *Service) RevokeShare(ctx context.Context, ownerID, fileID, groupID uuid.UUID) error {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.store.DeleteShare(ctx, fileID, groupID); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.NewEvent(events.EventFileShareRevoked, ownerID.String(), map[string]interface{}{
		"file_id":  fileID.String(),
		"group_id": groupID.String(),
	}))
	return nil
}

// ListSharedFiles returns the live files shared with userID through group
// membership.
func (s *Service) ListSharedFiles(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	ids, err := s.store.ListSharedFileIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared files: %w", err)
	}

	var files []models.File
	for _, id := range ids {
		file, err := s.files.GetFile(ctx, id)
		if err != nil {
			s.logger.Warn("shared file missing", zap.String("file_id", id.String()), zap.Error(err))
			continue
		}
		if file.Deleted() {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// CanAccess reports whether userID may read fileID: the owner always can,
// anyone else needs a live share through a group they belong to.
func (s *Service) CanAccess(ctx context.Context, userID, fileID uuid.UUID) (bool, error) {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return false, err
	}
	if file.OwnerID == userID {
		return true, nil
	}
	if file.Deleted() {
		return false, nil
	}

	groupIDs, err := s.store.GroupsSharingFile(ctx, fileID)
	if err != nil {
		return false, err
	}
	for _, groupID := range groupIDs {
		member, err := s.store.IsMember(ctx, groupID, userID)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) ownedGroup(ctx context.Context, ownerID, groupID uuid.UUID) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != ownerID {
		return ErrNotOwner
	}
	return nil
}
