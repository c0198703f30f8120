package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkoutsias/stashfs/pkg/content"
	contentmem "github.com/pkoutsias/stashfs/pkg/content/memory"
	"github.com/pkoutsias/stashfs/pkg/metadata"
	metamem "github.com/pkoutsias/stashfs/pkg/metadata/memory"
)

// recordingNotifier captures index announcements for assertions.
type recordingNotifier struct {
	updated []uuid.UUID
	deleted []uuid.UUID
}

func (n *recordingNotifier) FileUpdated(id uuid.UUID) { n.updated = append(n.updated, id) }
func (n *recordingNotifier) FileDeleted(id uuid.UUID) { n.deleted = append(n.deleted, id) }

func (n *recordingNotifier) reset() {
	n.updated = nil
	n.deleted = nil
}

func (n *recordingNotifier) deletedContains(id uuid.UUID) bool {
	for _, d := range n.deleted {
		if d == id {
			return true
		}
	}
	return false
}

// fixture wires a Service against in-memory metadata and content stores,
// with a controllable clock and a deterministic blob namer.
type fixture struct {
	svc      *Service
	store    metadata.Store
	blobs    *contentmem.Store
	notifier *recordingNotifier
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    metamem.New(),
		blobs:    contentmem.New(content.NewRandomNamer(42)),
		notifier: &recordingNotifier{},
		clock:    time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	t.Cleanup(func() { _ = f.store.Close() })

	f.svc = New(Options{
		Store:    f.store,
		Blobs:    f.blobs,
		Notifier: f.notifier,
		Clock:    func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

// setQuota installs a "default" user class with the given byte allowance.
// Called before the first createUser it becomes the class new users join.
func (f *fixture) setQuota(t *testing.T, quota int64) {
	t.Helper()
	err := f.svc.SaveUserClass(context.Background(), &metadata.UserClass{
		ID:    uuid.New(),
		Name:  DefaultUserClassName,
		Quota: quota,
	})
	require.NoError(t, err)
}

func (f *fixture) createUser(t *testing.T, username string) *metadata.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), username, username, username+"@example.com")
	require.NoError(t, err)
	return u
}

func (f *fixture) rootOf(t *testing.T, userID uuid.UUID) *metadata.Folder {
	t.Helper()
	root, err := f.svc.UserRootFolder(context.Background(), userID, userID)
	require.NoError(t, err)
	return root
}

func (f *fixture) createFolder(t *testing.T, principal, parentID uuid.UUID, name string) *metadata.Folder {
	t.Helper()
	folder, err := f.svc.CreateFolder(context.Background(), principal, parentID, name)
	require.NoError(t, err)
	return folder
}

func (f *fixture) createFile(t *testing.T, principal, folderID uuid.UUID, name, body string) *metadata.FileHeader {
	t.Helper()
	file, err := f.svc.CreateFile(context.Background(), principal, folderID, name, "", strings.NewReader(body))
	require.NoError(t, err)
	return file
}

func (f *fixture) readFile(t *testing.T, principal, fileID uuid.UUID, version int) string {
	t.Helper()
	reader, _, err := f.svc.FileContents(context.Background(), principal, fileID, version)
	require.NoError(t, err)
	defer reader.Close()
	var sb strings.Builder
	buf := make([]byte, 512)
	for {
		n, err := reader.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String()
}

// shareFolder grants caps on a folder while keeping the owner's full entry.
func (f *fixture) shareFolder(t *testing.T, owner uuid.UUID, folder *metadata.Folder, extra metadata.Permission) {
	t.Helper()
	acl := append(metadata.SnapshotACL(folder.Permissions), extra)
	_, err := f.svc.UpdateFolder(context.Background(), owner, folder.ID, UpdateFolderRequest{Permissions: acl})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code metadata.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.True(t, metadata.IsCode(err, code), "expected code %d, got %v", code, err)
}
