package memory

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// ============================================================================
// Users
// ============================================================================

func (t *tx) User(id uuid.UUID) (*metadata.User, error) {
	u, ok := t.users.get(id)
	if !ok {
		return nil, metadata.NotFound("user not found", id.String())
	}
	return u, nil
}

func (t *tx) UserByUsername(username string) (*metadata.User, error) {
	var found *metadata.User
	t.users.each(func(_ uuid.UUID, u *metadata.User) bool {
		if u.Username == username {
			found = u
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("user not found", username)
	}
	return found, nil
}

func (t *tx) UserByEmail(email string) (*metadata.User, error) {
	var found *metadata.User
	t.users.each(func(_ uuid.UUID, u *metadata.User) bool {
		if strings.EqualFold(u.Email, email) {
			found = u
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("user not found", email)
	}
	return found, nil
}

func (t *tx) SaveUser(u *metadata.User) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	var conflict bool
	t.users.each(func(id uuid.UUID, other *metadata.User) bool {
		if id == u.ID {
			return true
		}
		if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
			conflict = true
			return false
		}
		return true
	})
	if conflict {
		return metadata.DuplicateName("username or email already registered", u.Username)
	}

	t.users.put(u.ID, u)
	return nil
}

func (t *tx) DeleteUser(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if _, ok := t.users.get(id); !ok {
		return metadata.NotFound("user not found", id.String())
	}
	t.users.del(id)
	return nil
}

// ============================================================================
// User Classes
// ============================================================================

func (t *tx) UserClass(id uuid.UUID) (*metadata.UserClass, error) {
	c, ok := t.classes.get(id)
	if !ok {
		return nil, metadata.NotFound("user class not found", id.String())
	}
	return c, nil
}

func (t *tx) UserClasses() ([]*metadata.UserClass, error) {
	var out []*metadata.UserClass
	t.classes.each(func(_ uuid.UUID, c *metadata.UserClass) bool {
		out = append(out, c)
		return true
	})
	return out, nil
}

func (t *tx) SaveUserClass(c *metadata.UserClass) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	t.classes.put(c.ID, c)
	return nil
}

// ============================================================================
// Nonces
// ============================================================================

func (t *tx) Nonce(id uuid.UUID) (*metadata.Nonce, error) {
	n, ok := t.nonces.get(id)
	if !ok {
		return nil, metadata.NotFound("nonce not found", id.String())
	}
	return n, nil
}

func (t *tx) NonceByValue(value string) (*metadata.Nonce, error) {
	var found *metadata.Nonce
	t.nonces.each(func(_ uuid.UUID, n *metadata.Nonce) bool {
		if n.Value == value {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, metadata.NotFound("nonce not found", "")
	}
	return found, nil
}

func (t *tx) SaveNonce(n *metadata.Nonce) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	t.nonces.put(n.ID, n)
	return nil
}

func (t *tx) DeleteNonce(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if _, ok := t.nonces.get(id); !ok {
		return metadata.NotFound("nonce not found", id.String())
	}
	t.nonces.del(id)
	return nil
}
