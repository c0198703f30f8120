package metadata

import (
	"context"

	"github.com/google/uuid"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store provides transactional access to the metadata catalog: users, user
// classes, folders, file headers, groups and nonces.
//
// All reads and writes happen inside a transaction obtained through Update or
// View. A transaction sees its own writes, and either commits atomically when
// the closure returns nil, or discards every staged write when it returns an
// error. Service-level operations map one-to-one onto transactions, so an
// operation that fails mid-way leaves no partial state behind.
//
// Separation of Concerns:
//
// The store manages structure and attributes only. File bytes live in a
// content repository and are referenced from FileBody.StoredPath; the store
// never touches blob storage. This keeps metadata transactions small and lets
// content backends scale independently.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent transactions that conflict on the same keys may fail with
// ErrIOFailure and can be retried by the caller.
type Store interface {
	// Update runs fn inside a read-write transaction. The transaction
	// commits if fn returns nil and is discarded otherwise, in which case
	// Update returns fn's error unchanged.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn inside a read-only transaction. Writes made through a
	// View transaction fail or are ignored depending on the backend; callers
	// must not attempt them.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the store's resources. No transaction may be started
	// after Close returns.
	Close() error
}

// ============================================================================
// Transaction Interface
// ============================================================================

// Tx is a single unit of work against the catalog.
//
// Lookup methods return StoreError with ErrNotFound when no record matches.
// Save methods upsert: they insert a new record or replace the stored one
// with the same ID, maintaining every secondary index (name uniqueness,
// ownership, membership) to match the saved state. Renames and moves are
// therefore plain saves; the transaction diffs against the stored record and
// rewrites index entries itself.
//
// Name-uniqueness indexes are authoritative: a Save that would create a
// second child with an existing name in the same parent fails with
// ErrDuplicateName even if the caller's pre-check passed, which closes the
// race between two concurrent creates.
type Tx interface {
	// ========================================================================
	// Users
	// ========================================================================

	// User retrieves a user by ID.
	User(id uuid.UUID) (*User, error)

	// UserByUsername retrieves a user by unique username.
	UserByUsername(username string) (*User, error)

	// UserByEmail retrieves a user by unique email address.
	UserByEmail(email string) (*User, error)

	// SaveUser inserts or updates a user. Username and email uniqueness is
	// enforced here; a conflicting save fails with ErrDuplicateName.
	SaveUser(u *User) error

	// DeleteUser removes the user record and its identity index entries.
	// It does not cascade to the user's files, folders or groups; the
	// service layer orchestrates that inside the same transaction.
	DeleteUser(id uuid.UUID) error

	// ========================================================================
	// User Classes
	// ========================================================================

	// UserClass retrieves a user class by ID.
	UserClass(id uuid.UUID) (*UserClass, error)

	// UserClasses returns every defined user class.
	UserClasses() ([]*UserClass, error)

	// SaveUserClass inserts or updates a user class.
	SaveUserClass(c *UserClass) error

	// ========================================================================
	// Folders
	// ========================================================================

	// Folder retrieves a folder by ID.
	Folder(id uuid.UUID) (*Folder, error)

	// RootFolder retrieves the owner's root folder, the unique folder with
	// no parent.
	RootFolder(ownerID uuid.UUID) (*Folder, error)

	// ChildFolder retrieves the subfolder of parentID named name.
	ChildFolder(parentID uuid.UUID, name string) (*Folder, error)

	// FolderExists reports whether parentID has a subfolder named name.
	FolderExists(parentID uuid.UUID, name string) (bool, error)

	// Subfolders returns the direct subfolders of parentID, trashed
	// entries included.
	Subfolders(parentID uuid.UUID) ([]*Folder, error)

	// FoldersOwnedBy returns every folder owned by ownerID.
	FoldersOwnedBy(ownerID uuid.UUID) ([]*Folder, error)

	// AllFolders returns every folder in the catalog. Used by maintenance
	// sweeps such as purging a deleted group from every ACL.
	AllFolders() ([]*Folder, error)

	// SaveFolder inserts or updates a folder, rewriting the child-name,
	// ownership and root indexes to match.
	SaveFolder(f *Folder) error

	// DeleteFolder removes the folder record and its index entries. The
	// folder's children must already be gone; the service layer walks the
	// subtree first.
	DeleteFolder(id uuid.UUID) error

	// ========================================================================
	// Files
	// ========================================================================

	// File retrieves a file header by ID.
	File(id uuid.UUID) (*FileHeader, error)

	// ChildFile retrieves the file in folderID named name.
	ChildFile(folderID uuid.UUID, name string) (*FileHeader, error)

	// FileExists reports whether folderID contains a file named name.
	FileExists(folderID uuid.UUID, name string) (bool, error)

	// FilesInFolder returns the files directly inside folderID, trashed
	// entries included.
	FilesInFolder(folderID uuid.UUID) ([]*FileHeader, error)

	// FilesOwnedBy returns every file header owned by ownerID.
	FilesOwnedBy(ownerID uuid.UUID) ([]*FileHeader, error)

	// AllFiles returns every file header in the catalog.
	AllFiles() ([]*FileHeader, error)

	// TotalFileSize sums the billed size of every file owned by ownerID,
	// counting all versions of versioned files. Quota checks call this
	// inside the same transaction that adds the new bytes.
	TotalFileSize(ownerID uuid.UUID) (int64, error)

	// FileCount returns the number of file headers owned by ownerID.
	FileCount(ownerID uuid.UUID) (int64, error)

	// SaveFile inserts or updates a file header, rewriting the child-name
	// and ownership indexes to match.
	SaveFile(h *FileHeader) error

	// DeleteFile removes the file header and its index entries. Blob
	// removal is the caller's responsibility.
	DeleteFile(id uuid.UUID) error

	// ========================================================================
	// Groups
	// ========================================================================

	// Group retrieves a group by ID.
	Group(id uuid.UUID) (*Group, error)

	// GroupByName retrieves the group named name owned by ownerID. Group
	// names are unique per owner, not globally.
	GroupByName(ownerID uuid.UUID, name string) (*Group, error)

	// GroupsOwnedBy returns every group owned by ownerID.
	GroupsOwnedBy(ownerID uuid.UUID) ([]*Group, error)

	// GroupsWithMember returns every group the user is a member of.
	GroupsWithMember(userID uuid.UUID) ([]*Group, error)

	// SaveGroup inserts or updates a group, rewriting the name and
	// membership indexes to match.
	SaveGroup(g *Group) error

	// DeleteGroup removes the group record and its index entries. ACL
	// entries referencing the group are purged by the service layer.
	DeleteGroup(id uuid.UUID) error

	// ========================================================================
	// Nonces
	// ========================================================================

	// Nonce retrieves a nonce by ID.
	Nonce(id uuid.UUID) (*Nonce, error)

	// NonceByValue retrieves a nonce by its opaque value.
	NonceByValue(value string) (*Nonce, error)

	// SaveNonce inserts or updates a nonce.
	SaveNonce(n *Nonce) error

	// DeleteNonce removes a nonce.
	DeleteNonce(id uuid.UUID) error
}

var _ GroupResolver = (Tx)(nil)
