package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ProfileID identifies a profile within a profiles database. IDs are
// allocated sequentially per database and never reused after deletion.
type ProfileID int

func (id ProfileID) String() string {
	return strconv.Itoa(int(id))
}

// ParseProfileID parses a decimal directory name into a ProfileID.
// The name must round-trip exactly, so "007" and "+7" are rejected.
func ParseProfileID(name string) (ProfileID, error) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || strconv.Itoa(n) != name {
		return 0, fmt.Errorf("invalid profile directory name %q", name)
	}
	return ProfileID(n), nil
}

// AccountID identifies an account within one profile's accounts database.
type AccountID int

func (id AccountID) String() string {
	return strconv.Itoa(int(id))
}

// ParseAccountID parses a decimal directory name into an AccountID.
func ParseAccountID(name string) (AccountID, error) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || strconv.Itoa(n) != name {
		return 0, fmt.Errorf("invalid account directory name %q", name)
	}
	return AccountID(n), nil
}

// BookID is an opaque string key for a book within one account's book
// database. It is derived from the catalog entry identity so re-fetching
// the same entry updates the existing book instead of duplicating it.
type BookID string

// NewBookID derives the stable on-disk key for a catalog entry identity.
func NewBookID(entryID string) BookID {
	sum := sha256.Sum256([]byte(entryID))
	return BookID(hex.EncodeToString(sum[:]))
}
