package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/circulation/internal/entities"
)

// Usage errors indicate caller logic problems rather than environmental
// failure and are reported as distinct sentinels.
var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrNoCurrentProfile = errors.New("no profile is current")
	ErrNoCurrentAccount = errors.New("profile has no current account")
	ErrDisplayNameUsed  = errors.New("display name already used")
)

// OpenError aggregates every problem found while scanning a database
// directory. Opening is all-or-nothing: sibling entries are still
// scanned so the caller sees all causes at once, but any cause fails
// the open.
type OpenError struct {
	Dir    string
	Causes []error
}

func (e *OpenError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("open %s: %d problem(s): %s", e.Dir, len(e.Causes), strings.Join(msgs, "; "))
}

func (e *OpenError) Unwrap() []error { return e.Causes }

// BookError wraps any failure mutating a single book entry with the
// entity and operation it concerns.
type BookError struct {
	BookID entities.BookID
	Op     string
	Err    error
}

func (e *BookError) Error() string {
	return fmt.Sprintf("book database: %s book %s: %v", e.Op, e.BookID, e.Err)
}

func (e *BookError) Unwrap() error { return e.Err }
