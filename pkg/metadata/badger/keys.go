package badger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the catalog's
// entity kinds into logical namespaces. This design:
//   - Prevents collisions between entity kinds
//   - Enables efficient range scans (children of a folder, records per owner)
//   - Makes the database structure self-documenting
//   - Doubles as the uniqueness constraint for names
//
// Every entity is identified by a UUID v4. UUIDs are rendered in canonical
// string form inside keys, which keeps the database inspectable and gives
// every ID segment a fixed 36-byte width, so ':'-separated segments never
// become ambiguous even when the trailing name segment contains ':'.
//
// Key Namespace Prefixes:
//
// Data Type          Prefix   Key Format                        Value
// ==========================================================================
// User               "u:"     u:<uuid>                          User (JSON)
// Username Index     "un:"    un:<username>                     uuid (16 bytes)
// Email Index        "ue:"    ue:<lowercase email>              uuid (16 bytes)
// User Class         "uc:"    uc:<uuid>                         UserClass (JSON)
// Folder             "f:"     f:<uuid>                          Folder (JSON)
// Folder Child Index "fc:"    fc:<parentUUID>:<name>            uuid (16 bytes)
// Folder Owner Index "fo:"    fo:<ownerUUID>:<folderUUID>       (empty)
// Root Folder Index  "fr:"    fr:<ownerUUID>                    uuid (16 bytes)
// File Header        "h:"     h:<uuid>                          FileHeader (JSON)
// File Child Index   "hc:"    hc:<folderUUID>:<name>            uuid (16 bytes)
// File Owner Index   "ho:"    ho:<ownerUUID>:<fileUUID>         (empty)
// Group              "g:"     g:<uuid>                          Group (JSON)
// Group Name Index   "gn:"    gn:<ownerUUID>:<name>             uuid (16 bytes)
// Membership Index   "gm:"    gm:<memberUUID>:<groupUUID>       (empty)
// Nonce              "n:"     n:<uuid>                          Nonce (JSON)
// Nonce Value Index  "nv:"    nv:<value>                        uuid (16 bytes)
//
// Index Maintenance:
//
// Save operations load the previously stored record by ID, remove every
// index key derived from the old state, then write the record and the index
// keys derived from the new state. Renames and moves are therefore ordinary
// saves. The child-name and name indexes are checked before writing: a key
// that already exists and points at a different ID fails the save with
// ErrDuplicateName, which is what makes the indexes authoritative for
// uniqueness rather than advisory.
//
// The owner and membership indexes carry their payload in the key itself and
// store empty values; a range scan over the prefix yields the IDs directly.

const (
	prefixUser        = "u:"
	prefixUsername    = "un:"
	prefixEmail       = "ue:"
	prefixUserClass   = "uc:"
	prefixFolder      = "f:"
	prefixFolderChild = "fc:"
	prefixFolderOwner = "fo:"
	prefixRootFolder  = "fr:"
	prefixFile        = "h:"
	prefixFileChild   = "hc:"
	prefixFileOwner   = "ho:"
	prefixGroup       = "g:"
	prefixGroupName   = "gn:"
	prefixMembership  = "gm:"
	prefixNonce       = "n:"
	prefixNonceValue  = "nv:"
)

func userKey(id uuid.UUID) []byte        { return []byte(prefixUser + id.String()) }
func usernameKey(name string) []byte     { return []byte(prefixUsername + name) }
func userClassKey(id uuid.UUID) []byte   { return []byte(prefixUserClass + id.String()) }
func folderKey(id uuid.UUID) []byte      { return []byte(prefixFolder + id.String()) }
func rootFolderKey(owner uuid.UUID) []byte { return []byte(prefixRootFolder + owner.String()) }
func fileKey(id uuid.UUID) []byte        { return []byte(prefixFile + id.String()) }
func groupKey(id uuid.UUID) []byte       { return []byte(prefixGroup + id.String()) }
func nonceKey(id uuid.UUID) []byte       { return []byte(prefixNonce + id.String()) }
func nonceValueKey(value string) []byte  { return []byte(prefixNonceValue + value) }

func emailKey(email string) []byte {
	return []byte(prefixEmail + lowercaseEmail(email))
}

func folderChildKey(parent uuid.UUID, name string) []byte {
	return []byte(prefixFolderChild + parent.String() + ":" + name)
}

func folderOwnerKey(owner, folder uuid.UUID) []byte {
	return []byte(prefixFolderOwner + owner.String() + ":" + folder.String())
}

func fileChildKey(folder uuid.UUID, name string) []byte {
	return []byte(prefixFileChild + folder.String() + ":" + name)
}

func fileOwnerKey(owner, file uuid.UUID) []byte {
	return []byte(prefixFileOwner + owner.String() + ":" + file.String())
}

func groupNameKey(owner uuid.UUID, name string) []byte {
	return []byte(prefixGroupName + owner.String() + ":" + name)
}

func membershipKey(member, group uuid.UUID) []byte {
	return []byte(prefixMembership + member.String() + ":" + group.String())
}

// scanPrefix builders for per-owner and per-parent range scans.

func folderChildScanPrefix(parent uuid.UUID) []byte {
	return []byte(prefixFolderChild + parent.String() + ":")
}

func folderOwnerScanPrefix(owner uuid.UUID) []byte {
	return []byte(prefixFolderOwner + owner.String() + ":")
}

func fileChildScanPrefix(folder uuid.UUID) []byte {
	return []byte(prefixFileChild + folder.String() + ":")
}

func fileOwnerScanPrefix(owner uuid.UUID) []byte {
	return []byte(prefixFileOwner + owner.String() + ":")
}

func membershipScanPrefix(member uuid.UUID) []byte {
	return []byte(prefixMembership + member.String() + ":")
}

// trailingUUID parses the UUID that terminates an owner or membership index
// key, e.g. the folder ID in fo:<owner>:<folder>.
func trailingUUID(key []byte) (uuid.UUID, error) {
	const uuidLen = 36
	if len(key) < uuidLen {
		return uuid.Nil, fmt.Errorf("malformed index key %q", key)
	}
	return uuid.ParseBytes(key[len(key)-uuidLen:])
}

// Email lookups are case-insensitive; the index stores the folded form.
func lowercaseEmail(email string) string {
	return strings.ToLower(email)
}
