package metadata

import (
	"time"

	"github.com/google/uuid"
)

// AuditInfo tracks who created and last modified an entity and when.
//
// Every mutating operation updates ModifiedBy/ModifiedAt on the affected
// entity and, through the ancestor-touch pass, on every folder above it.
type AuditInfo struct {
	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedBy uuid.UUID `json:"modified_by"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewAuditInfo returns audit info for a freshly created entity.
func NewAuditInfo(creator uuid.UUID, now time.Time) AuditInfo {
	return AuditInfo{
		CreatedBy:  creator,
		CreatedAt:  now,
		ModifiedBy: creator,
		ModifiedAt: now,
	}
}

// Touch records a modification without changing creation info.
func (a *AuditInfo) Touch(modifier uuid.UUID, now time.Time) {
	a.ModifiedBy = modifier
	a.ModifiedAt = now
}

// User is a principal: the subject of permission checks and the owner of
// folders, files, groups and tags.
//
// Users reference their quota tier through UserClassID. They do not own
// folders by composition; folders reference their owner by ID, which lets
// ownership change independently during cross-user moves.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	UserClassID uuid.UUID `json:"user_class_id"`

	// Tags is the user's tag vocabulary, maintained alongside file tags.
	Tags []string `json:"tags,omitempty"`

	// AuthToken is an opaque credential for session authentication.
	AuthToken       string    `json:"auth_token,omitempty"`
	AuthTokenExpiry time.Time `json:"auth_token_expiry,omitempty"`

	// WebDAVPassword is the credential handed to WebDAV clients that
	// cannot carry the auth token.
	WebDAVPassword string `json:"webdav_password,omitempty"`

	// Nonce holds an activated out-of-band confirmation token, if any.
	Nonce       string    `json:"nonce,omitempty"`
	NonceExpiry time.Time `json:"nonce_expiry,omitempty"`

	Active bool      `json:"active"`
	Audit  AuditInfo `json:"audit"`
}

// HasTag reports whether the tag is already part of the user's vocabulary.
func (u *User) HasTag(tag string) bool {
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds a tag to the vocabulary if not already present.
func (u *User) AddTag(tag string) {
	if !u.HasTag(tag) {
		u.Tags = append(u.Tags, tag)
	}
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	c.Tags = append([]string(nil), u.Tags...)
	return &c
}

// UserClass is a quota tier shared by many users.
type UserClass struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	// Quota is the storage allowance in bytes for every user of the class.
	Quota int64 `json:"quota"`
}

// Clone returns a copy.
func (c *UserClass) Clone() *UserClass {
	d := *c
	return &d
}

// Folder is a node of the hierarchical namespace.
//
// A folder exclusively owns its Permissions. Subfolders and files are not
// embedded; parent/child navigation is a store query over identifier
// references (see Tx), which avoids cyclic in-memory graphs.
type Folder struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"owner_id"`

	// ParentID is nil only for a user's root folder.
	ParentID *uuid.UUID `json:"parent_id,omitempty"`

	// Deleted marks the folder as trashed. Trash is recoverable until an
	// explicit hard delete or empty-trash.
	Deleted bool `json:"deleted"`

	// ReadForAll makes the folder readable by any principal.
	ReadForAll bool `json:"read_for_all"`

	Permissions []Permission `json:"permissions"`
	Audit       AuditInfo    `json:"audit"`
}

// IsRoot reports whether this is a user's root folder.
func (f *Folder) IsRoot() bool { return f.ParentID == nil }

// Clone returns a deep copy.
func (f *Folder) Clone() *Folder {
	c := *f
	if f.ParentID != nil {
		p := *f.ParentID
		c.ParentID = &p
	}
	c.Permissions = clonePermissions(f.Permissions)
	return &c
}

// Securable interface implementation.

func (f *Folder) OwnerUUID() uuid.UUID { return f.OwnerID }
func (f *Folder) ACL() []Permission    { return f.Permissions }
func (f *Folder) PublicRead() bool     { return f.ReadForAll }

// FileBody is one content version of a file.
//
// Version numbers are dense and ascending within a header once versioning
// is enabled, never reused, and reset to 1 only when pruning after turning
// versioning off.
type FileBody struct {
	Version      int       `json:"version"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"stored_path"`
	Audit        AuditInfo `json:"audit"`
}

// FileHeader is a file's metadata plus its ordered list of content versions.
//
// The header exclusively owns its bodies: deleting the header deletes every
// body record and, at the service layer, every physical blob.
type FileHeader struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	OwnerID  uuid.UUID `json:"owner_id"`
	FolderID uuid.UUID `json:"folder_id"`

	// Versioned controls whether content updates append a new body or
	// replace the current one.
	Versioned  bool `json:"versioned"`
	ReadForAll bool `json:"read_for_all"`
	Deleted    bool `json:"deleted"`

	Permissions []Permission `json:"permissions"`
	Tags        []string     `json:"tags,omitempty"`

	// Bodies is ordered by ascending version. Exactly one version is
	// current except during construction, when the list is empty.
	Bodies []FileBody `json:"bodies"`

	// CurrentVersion is the version number of the current body.
	CurrentVersion int `json:"current_version"`

	Audit AuditInfo `json:"audit"`
}

// CurrentBody returns the body the header considers its live content, or
// nil when the header has no bodies yet.
func (f *FileHeader) CurrentBody() *FileBody {
	for i := range f.Bodies {
		if f.Bodies[i].Version == f.CurrentVersion {
			return &f.Bodies[i]
		}
	}
	return nil
}

// Body returns the body with the given version number, or nil.
func (f *FileHeader) Body(version int) *FileBody {
	for i := range f.Bodies {
		if f.Bodies[i].Version == version {
			return &f.Bodies[i]
		}
	}
	return nil
}

// MaxVersion returns the highest version number among retained bodies,
// or 0 when the header has none.
func (f *FileHeader) MaxVersion() int {
	max := 0
	for i := range f.Bodies {
		if f.Bodies[i].Version > max {
			max = f.Bodies[i].Version
		}
	}
	return max
}

// TotalSize is the stored footprint of the file: the sum of all retained
// body sizes when versioned, or the current body's size when not.
func (f *FileHeader) TotalSize() int64 {
	if f.Versioned {
		var total int64
		for i := range f.Bodies {
			total += f.Bodies[i].Size
		}
		return total
	}
	if body := f.CurrentBody(); body != nil {
		return body.Size
	}
	return 0
}

// HasTag reports whether the file carries the tag.
func (f *FileHeader) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (f *FileHeader) Clone() *FileHeader {
	c := *f
	c.Permissions = clonePermissions(f.Permissions)
	c.Tags = append([]string(nil), f.Tags...)
	c.Bodies = append([]FileBody(nil), f.Bodies...)
	return &c
}

// Securable interface implementation.

func (f *FileHeader) OwnerUUID() uuid.UUID { return f.OwnerID }
func (f *FileHeader) ACL() []Permission    { return f.Permissions }
func (f *FileHeader) PublicRead() bool     { return f.ReadForAll }

// Group is a named set of users, owned by the creating user, usable as a
// permission subject.
type Group struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"owner_id"`

	MemberIDs []uuid.UUID `json:"member_ids"`
}

// Contains reports whether the user is a member of the group.
func (g *Group) Contains(userID uuid.UUID) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops the user from the member list if present.
func (g *Group) RemoveMember(userID uuid.UUID) {
	for i, id := range g.MemberIDs {
		if id == userID {
			g.MemberIDs = append(g.MemberIDs[:i], g.MemberIDs[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy.
func (g *Group) Clone() *Group {
	c := *g
	c.MemberIDs = append([]uuid.UUID(nil), g.MemberIDs...)
	return &c
}

// Nonce is an opaque token bound to a user for short-lived out-of-band
// confirmation flows (e.g. password reset). It is created on demand and
// deleted on use or explicit invalidation.
type Nonce struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Value   string    `json:"value"`
	Created time.Time `json:"created"`
	Expiry  time.Time `json:"expiry"`
}

// NonceLifetime is how long a freshly created nonce stays valid.
const NonceLifetime = 5 * time.Minute

// NewNonce creates a nonce for the given user with a random value.
func NewNonce(userID uuid.UUID, now time.Time) *Nonce {
	return &Nonce{
		ID:      uuid.New(),
		UserID:  userID,
		Value:   uuid.NewString(),
		Created: now,
		Expiry:  now.Add(NonceLifetime),
	}
}

// Clone returns a copy.
func (n *Nonce) Clone() *Nonce {
	c := *n
	return &c
}
