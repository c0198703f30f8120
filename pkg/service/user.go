package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

const (
	// DefaultUserClassName is the class synthesized when no user class
	// exists yet.
	DefaultUserClassName = "default"

	// DefaultUserClassQuota is the synthesized class's quota: 50 MiB.
	DefaultUserClassQuota int64 = 52428800

	// AuthTokenLifetime is how long an issued auth token stays valid.
	AuthTokenLifetime = 30 * 24 * time.Hour

	webdavPasswordLength = 12
)

// UserStatistics is a usage snapshot for one user.
type UserStatistics struct {
	FileCount  int64
	TotalSize  int64
	QuotaLeft  int64
	QuotaTotal int64
}

// CreateUser provisions a user: the record itself, a fresh auth token and
// WebDAV password, the default user class when the user has none, and the
// user's root folder carrying a sole owner-all permission entry.
func (s *Service) CreateUser(ctx context.Context, username, name, email string) (*metadata.User, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	webdavPassword, err := randomPassword(webdavPasswordLength)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &metadata.User{
		ID:              uuid.New(),
		Username:        username,
		Name:            name,
		Email:           email,
		AuthToken:       token,
		AuthTokenExpiry: now.Add(AuthTokenLifetime),
		WebDAVPassword:  webdavPassword,
		Active:          true,
		Audit:           metadata.NewAuditInfo(uuid.Nil, now),
	}

	err = s.store.Update(ctx, func(tx metadata.Tx) error {
		class, err := s.defaultClass(tx)
		if err != nil {
			return err
		}
		user.UserClassID = class.ID

		if err := tx.SaveUser(user); err != nil {
			return err
		}

		root := &metadata.Folder{
			ID:          uuid.New(),
			Name:        username,
			OwnerID:     user.ID,
			Permissions: []metadata.Permission{metadata.OwnerPermission(user.ID)},
			Audit:       metadata.NewAuditInfo(user.ID, now),
		}
		return tx.SaveFolder(root)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserByUsername retrieves a user by unique username.
func (s *Service) UserByUsername(ctx context.Context, username string) (*metadata.User, error) {
	var user *metadata.User
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		u, err := tx.UserByUsername(username)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// UserByEmail retrieves a user by email, case-insensitively.
func (s *Service) UserByEmail(ctx context.Context, email string) (*metadata.User, error) {
	var user *metadata.User
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		u, err := tx.UserByEmail(email)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// UpdateUserToken issues a fresh auth token with a full lifetime.
func (s *Service) UpdateUserToken(ctx context.Context, userID uuid.UUID) (*metadata.User, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	var user *metadata.User
	err = s.store.Update(ctx, func(tx metadata.Tx) error {
		u, err := tx.User(userID)
		if err != nil {
			return err
		}
		u.AuthToken = token
		u.AuthTokenExpiry = s.now().UTC().Add(AuthTokenLifetime)
		if err := tx.SaveUser(u); err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// InvalidateUserToken expires the user's auth token immediately.
func (s *Service) InvalidateUserToken(ctx context.Context, userID uuid.UUID) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		u, err := tx.User(userID)
		if err != nil {
			return err
		}
		u.AuthToken = ""
		u.AuthTokenExpiry = time.Time{}
		return tx.SaveUser(u)
	})
}

// UserStatistics reports the user's file count, stored bytes and remaining
// quota.
func (s *Service) UserStatistics(ctx context.Context, userID uuid.UUID) (*UserStatistics, error) {
	var stats UserStatistics
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		user, err := tx.User(userID)
		if err != nil {
			return err
		}
		count, err := tx.FileCount(userID)
		if err != nil {
			return err
		}
		total, err := tx.TotalFileSize(userID)
		if err != nil {
			return err
		}
		quota, err := s.quotaOf(tx, user)
		if err != nil {
			return err
		}
		stats = UserStatistics{
			FileCount:  count,
			TotalSize:  total,
			QuotaLeft:  quota - total,
			QuotaTotal: quota,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UserClasses lists the defined user classes. When none exist yet the
// default class is synthesized and persisted first.
func (s *Service) UserClasses(ctx context.Context) ([]*metadata.UserClass, error) {
	var classes []*metadata.UserClass
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		if _, err := s.defaultClass(tx); err != nil {
			return err
		}
		all, err := tx.UserClasses()
		if err != nil {
			return err
		}
		classes = all
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// SaveUserClass creates or updates a quota tier.
func (s *Service) SaveUserClass(ctx context.Context, class *metadata.UserClass) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		return tx.SaveUserClass(class)
	})
}

// AddUserTag records a tag in the user's tag vocabulary. Adding an already
// present tag is a no-op.
func (s *Service) AddUserTag(ctx context.Context, userID uuid.UUID, tag string) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		u, err := tx.User(userID)
		if err != nil {
			return err
		}
		if u.HasTag(tag) {
			return nil
		}
		u.AddTag(tag)
		return tx.SaveUser(u)
	})
}

// UserTags returns the user's tag vocabulary.
func (s *Service) UserTags(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tags []string
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		u, err := tx.User(userID)
		if err != nil {
			return err
		}
		tags = append([]string(nil), u.Tags...)
		return nil
	})
	return tags, err
}

// CreateNonce issues a short-lived nonce bound to the user.
func (s *Service) CreateNonce(ctx context.Context, userID uuid.UUID) (*metadata.Nonce, error) {
	nonce := metadata.NewNonce(userID, s.now().UTC())
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		if _, err := tx.User(userID); err != nil {
			return err
		}
		return tx.SaveNonce(nonce)
	})
	if err != nil {
		return nil, err
	}
	return nonce, nil
}

// GetNonce retrieves a nonce by value, rejecting expired ones.
func (s *Service) GetNonce(ctx context.Context, value string) (*metadata.Nonce, error) {
	var nonce *metadata.Nonce
	err := s.store.View(ctx, func(tx metadata.Tx) error {
		n, err := tx.NonceByValue(value)
		if err != nil {
			return err
		}
		if s.now().UTC().After(n.Expiry) {
			return metadata.NotFound("nonce expired", "")
		}
		nonce = n
		return nil
	})
	return nonce, err
}

// RemoveNonce invalidates a nonce without consuming it.
func (s *Service) RemoveNonce(ctx context.Context, id uuid.UUID) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		return tx.DeleteNonce(id)
	})
}

// ActivateUserNonce consumes the nonce: its value and expiry move onto the
// user record and the standalone nonce is deleted.
func (s *Service) ActivateUserNonce(ctx context.Context, userID uuid.UUID, value string) error {
	return s.store.Update(ctx, func(tx metadata.Tx) error {
		n, err := tx.NonceByValue(value)
		if err != nil {
			return err
		}
		if n.UserID != userID {
			return metadata.NotFound("nonce not found", "")
		}
		if s.now().UTC().After(n.Expiry) {
			return metadata.NotFound("nonce expired", "")
		}
		u, err := tx.User(userID)
		if err != nil {
			return err
		}
		u.Nonce = n.Value
		u.NonceExpiry = n.Expiry
		if err := tx.SaveUser(u); err != nil {
			return err
		}
		return tx.DeleteNonce(n.ID)
	})
}

// DeleteUser removes the user after cascading over everything it owns:
// every owned file (blobs included), every owned folder, every owned group
// with its ACL references, the user's memberships in other groups, and the
// permission entries naming the user on other owners' folders and files.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	var orphanBlobs []string
	err := s.store.Update(ctx, func(tx metadata.Tx) error {
		if _, err := tx.User(userID); err != nil {
			return err
		}

		files, err := tx.FilesOwnedBy(userID)
		if err != nil {
			return err
		}
		for _, h := range files {
			for _, body := range h.Bodies {
				orphanBlobs = append(orphanBlobs, body.StoredPath)
			}
			if err := tx.DeleteFile(h.ID); err != nil {
				return err
			}
		}

		folders, err := tx.FoldersOwnedBy(userID)
		if err != nil {
			return err
		}
		// Children before parents, so each delete sees an empty folder.
		sortByDepthDescending(tx, folders)
		for _, f := range folders {
			if err := tx.DeleteFolder(f.ID); err != nil {
				return err
			}
		}

		groups, err := tx.GroupsOwnedBy(userID)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if err := purgeGroupFromACLs(tx, g.ID); err != nil {
				return err
			}
			if err := tx.DeleteGroup(g.ID); err != nil {
				return err
			}
		}

		memberships, err := tx.GroupsWithMember(userID)
		if err != nil {
			return err
		}
		for _, g := range memberships {
			g.RemoveMember(userID)
			if err := tx.SaveGroup(g); err != nil {
				return err
			}
		}

		if err := purgeUserFromACLs(tx, userID); err != nil {
			return err
		}

		return tx.DeleteUser(userID)
	})
	if err != nil {
		return err
	}
	s.deleteBlobs(ctx, orphanBlobs)
	return nil
}

// ============================================================================
// Quota helpers
// ============================================================================

// defaultClass finds the class named "default", creating it with the
// standard quota when no class exists at all.
func (s *Service) defaultClass(tx metadata.Tx) (*metadata.UserClass, error) {
	classes, err := tx.UserClasses()
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		if c.Name == DefaultUserClassName {
			return c, nil
		}
	}
	if len(classes) > 0 {
		// Classes exist but none is named "default": the lowest quota
		// tier stands in.
		lowest := classes[0]
		for _, c := range classes[1:] {
			if c.Quota < lowest.Quota {
				lowest = c
			}
		}
		return lowest, nil
	}
	class := &metadata.UserClass{
		ID:    uuid.New(),
		Name:  DefaultUserClassName,
		Quota: DefaultUserClassQuota,
	}
	if err := tx.SaveUserClass(class); err != nil {
		return nil, err
	}
	return class, nil
}

// quotaOf resolves the user's class quota, falling back to the default
// quota when the user has no resolvable class.
func (s *Service) quotaOf(tx metadata.Tx, user *metadata.User) (int64, error) {
	if user.UserClassID == uuid.Nil {
		return DefaultUserClassQuota, nil
	}
	class, err := tx.UserClass(user.UserClassID)
	if err != nil {
		if metadata.IsCode(err, metadata.ErrNotFound) {
			return DefaultUserClassQuota, nil
		}
		return 0, err
	}
	return class.Quota, nil
}

// availableQuota computes the owner's remaining quota inside the current
// transaction: class quota minus the bytes currently billed to the owner.
func (s *Service) availableQuota(tx metadata.Tx, ownerID uuid.UUID) (int64, error) {
	owner, err := tx.User(ownerID)
	if err != nil {
		return 0, err
	}
	quota, err := s.quotaOf(tx, owner)
	if err != nil {
		return 0, err
	}
	used, err := tx.TotalFileSize(ownerID)
	if err != nil {
		return 0, err
	}
	return quota - used, nil
}

// sortByDepthDescending orders folders so descendants come before their
// ancestors. Depth is resolved by walking parent IDs within the slice's own
// records first and the store second.
func sortByDepthDescending(tx metadata.Tx, folders []*metadata.Folder) {
	byID := make(map[uuid.UUID]*metadata.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}
	depth := func(f *metadata.Folder) int {
		d := 0
		for f.ParentID != nil {
			d++
			parent, ok := byID[*f.ParentID]
			if !ok {
				stored, err := tx.Folder(*f.ParentID)
				if err != nil {
					break
				}
				parent = stored
			}
			f = parent
		}
		return d
	}
	sort.Slice(folders, func(i, j int) bool { return depth(folders[i]) > depth(folders[j]) })
}

// ============================================================================
// Credential generation
// ============================================================================

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

const passwordCharset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomPassword(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = passwordCharset[int(b)%len(passwordCharset)]
	}
	return string(out), nil
}
