package storage

import (
	"context"
	"testing"

	"github.com/bytevault/server/pkg/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	logger := zap.NewNop()
	return NewService(NewMemoryStore(), events.NewBus(logger), logger)
}

func TestFolderLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	root, err := svc.CreateFolder(ctx, owner, nil, "documents")
	require.NoError(t, err)
	assert.Equal(t, owner, root.OwnerID)
	assert.Nil(t, root.ParentID)

	child, err := svc.CreateFolder(ctx, owner, &root.ID, "taxes")
	require.NoError(t, err)
	assert.Equal(t, &root.ID, child.ParentID)

	require.NoError(t, svc.RenameFolder(ctx, owner, child.ID, "taxes-2024"))

	folders, err := svc.ListFolders(ctx, owner, &root.ID)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "taxes-2024", folders[0].Name)
}

func TestDeleteFolderGuards(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	root, err := svc.CreateFolder(ctx, owner, nil, "documents")
	require.NoError(t, err)
	child, err := svc.CreateFolder(ctx, owner, &root.ID, "taxes")
	require.NoError(t, err)

	t.Run("non-empty folder cannot be deleted", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteFolder(ctx, owner, root.ID), ErrFolderNotEmpty)
	})

	t.Run("folder with live files cannot be deleted", func(t *testing.T) {
		file, err := svc.RegisterFile(ctx, owner, child.ID, "w2.pdf", 2048)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.DeleteFolder(ctx, owner, child.ID), ErrFolderNotEmpty)

		// Deleting the file makes the folder deletable.
		require.NoError(t, svc.DeleteFile(ctx, owner, file.ID))
		assert.NoError(t, svc.DeleteFolder(ctx, owner, child.ID))
	})

	t.Run("deleting an already-deleted folder fails", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteFolder(ctx, owner, child.ID), ErrFolderDeleted)
	})

	t.Run("only the owner may delete", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteFolder(ctx, uuid.New(), root.ID), ErrNotOwner)
	})
}

func TestFileLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	folder, err := svc.CreateFolder(ctx, owner, nil, "photos")
	require.NoError(t, err)

	file, err := svc.RegisterFile(ctx, owner, folder.ID, "cat.jpg", 1000)
	require.NoError(t, err)
	assert.False(t, file.Deleted())

	got, err := svc.StatFile(ctx, owner, file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.SizeBytes)

	t.Run("stranger cannot stat or delete", func(t *testing.T) {
		_, err := svc.StatFile(ctx, uuid.New(), file.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.ErrorIs(t, svc.DeleteFile(ctx, uuid.New(), file.ID), ErrNotOwner)
	})

	require.NoError(t, svc.DeleteFile(ctx, owner, file.ID))

	t.Run("deleted file is immutable", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteFile(ctx, owner, file.ID), ErrFileDeleted)
	})

	t.Run("deleted file keeps its record", func(t *testing.T) {
		got, err := svc.StatFile(ctx, owner, file.ID)
		require.NoError(t, err)
		assert.True(t, got.Deleted())
	})

	t.Run("re-upload creates a fresh record", func(t *testing.T) {
		again, err := svc.RegisterFile(ctx, owner, folder.ID, "cat.jpg", 1000)
		require.NoError(t, err)
		assert.NotEqual(t, file.ID, again.ID)
		assert.False(t, again.Deleted())
	})

	t.Run("deleted files drop out of listings", func(t *testing.T) {
		files, err := svc.ListFiles(ctx, owner, folder.ID)
		require.NoError(t, err)
		require.Len(t, files, 1) // only the re-upload
		assert.NotEqual(t, file.ID, files[0].ID)
	})
}

func TestRegisterFileValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	folder, err := svc.CreateFolder(ctx, owner, nil, "inbox")
	require.NoError(t, err)

	_, err = svc.RegisterFile(ctx, owner, folder.ID, "", 10)
	assert.Error(t, err)

	_, err = svc.RegisterFile(ctx, owner, folder.ID, "x.bin", -1)
	assert.Error(t, err)

	_, err = svc.RegisterFile(ctx, owner, uuid.New(), "x.bin", 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RegisterFile(ctx, uuid.New(), folder.ID, "x.bin", 10)
	assert.ErrorIs(t, err, ErrNotOwner)
}
