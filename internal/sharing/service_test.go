package sharing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytevault/server/pkg/events"
	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errFileNotFound = errors.New("file not found")

type fakeFiles struct {
	files map[uuid.UUID]models.File
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[uuid.UUID]models.File)}
}

func (f *fakeFiles) GetFile(_ context.Context, id uuid.UUID) (models.File, error) {
	file, ok := f.files[id]
	if !ok {
		return models.File{}, errFileNotFound
	}
	return file, nil
}

func (f *fakeFiles) add(ownerID uuid.UUID, size int64) models.File {
	file := models.File{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		FolderID:  uuid.New(),
		Name:      "report.pdf",
		SizeBytes: size,
		CreatedAt: time.Now().UTC(),
	}
	f.files[file.ID] = file
	return file
}

func (f *fakeFiles) markDeleted(id uuid.UUID) {
	file := f.files[id]
	now := time.Now().UTC()
	file.DeletedAt = &now
	f.files[id] = file
}

func newTestService(t *testing.T) (*Service, *fakeFiles) {
	t.Helper()
	files := newFakeFiles()
	svc := NewService(NewMemoryStore(), files, events.NewBus(zap.NewNop()), zap.NewNop())
	return svc, files
}

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	owner := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "  engineering  ")
	require.NoError(t, err)
	assert.Equal(t, "engineering", group.Name)
	assert.Equal(t, owner, group.OwnerID)

	members, err := svc.ListMembers(ctx, owner, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner}, members)

	require.NoError(t, svc.DeleteGroup(ctx, owner, group.ID))
	_, err = svc.ListMembers(ctx, owner, group.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestCreateGroupRejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateGroup(context.Background(), uuid.New(), "   ")
	assert.Error(t, err)
}

func TestGroupOperationsAreOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	owner := uuid.New()
	stranger := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AddMember(ctx, stranger, group.ID, uuid.New()), ErrNotOwner)
	assert.ErrorIs(t, svc.RemoveMember(ctx, stranger, group.ID, owner), ErrNotOwner)
	assert.ErrorIs(t, svc.DeleteGroup(ctx, stranger, group.ID), ErrNotOwner)
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	owner := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, group.ID, member))

	// Any member may list, non-members may not.
	members, err := svc.ListMembers(ctx, member, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.ListMembers(ctx, uuid.New(), group.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	// The owner cannot be removed, regular members can.
	assert.Error(t, svc.RemoveMember(ctx, owner, group.ID, owner))
	require.NoError(t, svc.RemoveMember(ctx, owner, group.ID, member))

	members, err = svc.ListMembers(ctx, owner, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner}, members)
}

func TestShareAndRevoke(t *testing.T) {
	ctx := context.Background()
	svc, files := newTestService(t)
	owner := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, group.ID, member))

	file := files.add(owner, 1024)
	require.NoError(t, svc.ShareFile(ctx, owner, file.ID, group.ID))

	shared, err := svc.ListSharedFiles(ctx, member)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, file.ID, shared[0].ID)

	require.NoError(t, svc.RevokeShare(ctx, owner, file.ID, group.ID))

	shared, err = svc.ListSharedFiles(ctx, member)
	require.NoError(t, err)
	assert.Empty(t, shared)

	assert.ErrorIs(t, svc.RevokeShare(ctx, owner, file.ID, group.ID), ErrShareNotFound)
}

func TestShareGuards(t *testing.T) {
	ctx := context.Background()
	svc, files := newTestService(t)
	owner := uuid.New()
	stranger := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)
	file := files.add(owner, 1024)

	// Only the file owner may share or revoke.
	assert.ErrorIs(t, svc.ShareFile(ctx, stranger, file.ID, group.ID), ErrNotOwner)
	assert.ErrorIs(t, svc.RevokeShare(ctx, stranger, file.ID, group.ID), ErrNotOwner)

	// Unknown group.
	assert.ErrorIs(t, svc.ShareFile(ctx, owner, file.ID, uuid.New()), ErrGroupNotFound)

	// Deleted files cannot be shared.
	files.markDeleted(file.ID)
	assert.Error(t, svc.ShareFile(ctx, owner, file.ID, group.ID))
}

func TestListSharedFilesSkipsDeleted(t *testing.T) {
	ctx := context.Background()
	svc, files := newTestService(t)
	owner := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, group.ID, member))

	kept := files.add(owner, 10)
	gone := files.add(owner, 20)
	require.NoError(t, svc.ShareFile(ctx, owner, kept.ID, group.ID))
	require.NoError(t, svc.ShareFile(ctx, owner, gone.ID, group.ID))

	files.markDeleted(gone.ID)

	shared, err := svc.ListSharedFiles(ctx, member)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, kept.ID, shared[0].ID)
}

func TestCanAccess(t *testing.T) {
	ctx := context.Background()
	svc, files := newTestService(t)
	owner := uuid.New()
	member := uuid.New()
	stranger := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, group.ID, member))

	file := files.add(owner, 1024)

	check := func(userID uuid.UUID) bool {
		ok, err := svc.CanAccess(ctx, userID, file.ID)
		require.NoError(t, err)
		return ok
	}

	// Before sharing only the owner can read.
	assert.True(t, check(owner))
	assert.False(t, check(member))

	require.NoError(t, svc.ShareFile(ctx, owner, file.ID, group.ID))
	assert.True(t, check(member))
	assert.False(t, check(stranger))

	// Revocation and deletion both close access for non-owners.
	require.NoError(t, svc.RevokeShare(ctx, owner, file.ID, group.ID))
	assert.False(t, check(member))

	require.NoError(t, svc.ShareFile(ctx, owner, file.ID, group.ID))
	files.markDeleted(file.ID)
	assert.False(t, check(member))
	assert.True(t, check(owner))
}

func TestDeleteGroupRemovesShares(t *testing.T) {
	ctx := context.Background()
	svc, files := newTestService(t)
	owner := uuid.New()
	member := uuid.New()

	group, err := svc.CreateGroup(ctx, owner, "team")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, owner, group.ID, member))

	file := files.add(owner, 1024)
	require.NoError(t, svc.ShareFile(ctx, owner, file.ID, group.ID))
	require.NoError(t, svc.DeleteGroup(ctx, owner, group.ID))

	ok, err := svc.CanAccess(ctx, member, file.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
