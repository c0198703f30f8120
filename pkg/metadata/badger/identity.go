package badger

import (
	"github.com/google/uuid"

	"github.com/pkoutsias/stashfs/pkg/metadata"
)

// ============================================================================
// Users
// ============================================================================

func (t *tx) User(id uuid.UUID) (*metadata.User, error) {
	var u metadata.User
	if err := t.getRecord(userKey(id), &u, metadata.NotFound("user not found", id.String())); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *tx) UserByUsername(username string) (*metadata.User, error) {
	id, err := t.getIndexID(usernameKey(username), metadata.NotFound("user not found", username))
	if err != nil {
		return nil, err
	}
	return t.User(id)
}

func (t *tx) UserByEmail(email string) (*metadata.User, error) {
	id, err := t.getIndexID(emailKey(email), metadata.NotFound("user not found", email))
	if err != nil {
		return nil, err
	}
	return t.User(id)
}

func (t *tx) SaveUser(u *metadata.User) error {
	if err := t.requireWritable(); err != nil {
		return err
	}

	// Drop identity index entries the update abandons.
	old, err := t.User(u.ID)
	if err != nil && !metadata.IsCode(err, metadata.ErrNotFound) {
		return err
	}
	if old != nil {
		if old.Username != u.Username {
			if err := t.deleteKey(usernameKey(old.Username)); err != nil {
				return err
			}
		}
		if lowercaseEmail(old.Email) != lowercaseEmail(u.Email) {
			if err := t.deleteKey(emailKey(old.Email)); err != nil {
				return err
			}
		}
	}

	dup := metadata.DuplicateName("username or email already registered", u.Username)
	if err := t.setUniqueIndex(usernameKey(u.Username), u.ID, dup); err != nil {
		return err
	}
	if err := t.setUniqueIndex(emailKey(u.Email), u.ID, dup); err != nil {
		return err
	}
	return t.setRecord(userKey(u.ID), u)
}

func (t *tx) DeleteUser(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	u, err := t.User(id)
	if err != nil {
		return err
	}
	if err := t.deleteKey(usernameKey(u.Username)); err != nil {
		return err
	}
	if err := t.deleteKey(emailKey(u.Email)); err != nil {
		return err
	}
	return t.deleteKey(userKey(id))
}

// ============================================================================
// User Classes
// ============================================================================

func (t *tx) UserClass(id uuid.UUID) (*metadata.UserClass, error) {
	var c metadata.UserClass
	if err := t.getRecord(userClassKey(id), &c, metadata.NotFound("user class not found", id.String())); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *tx) UserClasses() ([]*metadata.UserClass, error) {
	var out []*metadata.UserClass
	err := t.scan([]byte(prefixUserClass), func(_, value []byte) (bool, error) {
		var c metadata.UserClass
		if err := decodeJSON(value, &c); err != nil {
			return false, err
		}
		out = append(out, &c)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *tx) SaveUserClass(c *metadata.UserClass) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	return t.setRecord(userClassKey(c.ID), c)
}

// ============================================================================
// Nonces
// ============================================================================

func (t *tx) Nonce(id uuid.UUID) (*metadata.Nonce, error) {
	var n metadata.Nonce
	if err := t.getRecord(nonceKey(id), &n, metadata.NotFound("nonce not found", id.String())); err != nil {
		return nil, err
	}
	return &n, nil
}

func (t *tx) NonceByValue(value string) (*metadata.Nonce, error) {
	id, err := t.getIndexID(nonceValueKey(value), metadata.NotFound("nonce not found", ""))
	if err != nil {
		return nil, err
	}
	return t.Nonce(id)
}

func (t *tx) SaveNonce(n *metadata.Nonce) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if err := t.txn.Set(nonceValueKey(n.Value), encodeID(n.ID)); err != nil {
		return ioFailure("index write", err)
	}
	return t.setRecord(nonceKey(n.ID), n)
}

func (t *tx) DeleteNonce(id uuid.UUID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	n, err := t.Nonce(id)
	if err != nil {
		return err
	}
	if err := t.deleteKey(nonceValueKey(n.Value)); err != nil {
		return err
	}
	return t.deleteKey(nonceKey(id))
}
