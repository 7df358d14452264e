package sharing

import (
	"context"
	"errors"

	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrGroupNotFound means the user group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrShareNotFound means no share grant exists for the file/group pair.
	ErrShareNotFound = errors.New("share not found")

	// ErrNotOwner means the caller does not own the group or file.
	ErrNotOwner = errors.New("not the owner")
)

// Store persists user groups, memberships and file share grants.
type Store interface {
	CreateGroup(ctx context.Context, group models.UserGroup) error
	GetGroup(ctx context.Context, id uuid.UUID) (models.UserGroup, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)

	CreateShare(ctx context.Context, share models.FileShare) error
	DeleteShare(ctx context.Context, fileID, groupID uuid.UUID) error
	// ListSharedFileIDs returns ids of files shared with userID through
	// any group the user is a member of.
	ListSharedFileIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// GroupsSharingFile returns the group ids a file is shared with.
	GroupsSharingFile(ctx context.Context, fileID uuid.UUID) ([]uuid.UUID, error)
}
