package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mrlokans/circulation/internal/atomicfile"
	"github.com/mrlokans/circulation/internal/entities"
)

const (
	accountFileName = "account.json"
	booksDirName    = "books"
)

// accountRecord is the on-disk shape of account.json.
type accountRecord struct {
	Provider    entities.Provider     `json:"provider"`
	Credentials *entities.Credentials `json:"credentials,omitempty"`
}

// AccountsDatabase is the per-profile collection of accounts. Directory
// names are the literal decimal AccountID.
type AccountsDatabase struct {
	profileID entities.ProfileID
	dir       string

	mu       sync.RWMutex
	accounts map[entities.AccountID]*accountState
	nextID   entities.AccountID
}

type accountState struct {
	account entities.Account
	books   *BookDatabase
}

// OpenAccountsDatabase scans dir and reconstructs the account set for
// one profile. A non-numeric or duplicate directory name, an unreadable
// or unparseable account.json, and any nested book database problem are
// all collected; any of them fails the open.
func OpenAccountsDatabase(profileID entities.ProfileID, dir string) (*AccountsDatabase, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &OpenError{Dir: dir, Causes: []error{err}}
	}

	db := &AccountsDatabase{
		profileID: profileID,
		dir:       dir,
		accounts:  make(map[entities.AccountID]*accountState),
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, &OpenError{Dir: dir, Causes: []error{err}}
	}

	var causes []error
	for _, de := range dirents {
		if !de.IsDir() {
			causes = append(causes, fmt.Errorf("%s: not an account directory", de.Name()))
			continue
		}
		id, err := entities.ParseAccountID(de.Name())
		if err != nil {
			causes = append(causes, err)
			continue
		}
		if _, ok := db.accounts[id]; ok {
			causes = append(causes, fmt.Errorf("duplicate account directory for id %s", id))
			continue
		}
		state, err := db.loadAccount(id)
		if err != nil {
			causes = append(causes, err)
			continue
		}
		db.accounts[id] = state
		if id >= db.nextID {
			db.nextID = id + 1
		}
	}
	if len(causes) > 0 {
		return nil, &OpenError{Dir: dir, Causes: causes}
	}
	return db, nil
}

func (db *AccountsDatabase) loadAccount(id entities.AccountID) (*accountState, error) {
	accountDir := filepath.Join(db.dir, id.String())
	data, err := os.ReadFile(filepath.Join(accountDir, accountFileName))
	if err != nil {
		return nil, fmt.Errorf("account %s: read record: %w", id, err)
	}
	var record accountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("account %s: parse record: %w", id, err)
	}

	books, err := OpenBookDatabase(id, filepath.Join(accountDir, booksDirName))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}

	return &accountState{
		account: entities.Account{
			ID:          id,
			Directory:   accountDir,
			Provider:    record.Provider,
			Credentials: record.Credentials,
		},
		books: books,
	}, nil
}

// Directory returns the database root directory.
func (db *AccountsDatabase) Directory() string { return db.dir }

// ProfileID returns the owning profile's ID.
func (db *AccountsDatabase) ProfileID() entities.ProfileID { return db.profileID }

// CreateAccount allocates the next AccountID, persists the record
// atomically and opens the account's book database. Nothing is mutated
// on failure.
func (db *AccountsDatabase) CreateAccount(provider entities.Provider) (entities.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id := db.nextIDLocked()
	accountDir := filepath.Join(db.dir, id.String())
	if err := os.MkdirAll(accountDir, 0755); err != nil {
		return entities.Account{}, fmt.Errorf("create account %s: %w", id, err)
	}

	account := entities.Account{ID: id, Directory: accountDir, Provider: provider}
	if err := writeAccountRecord(account); err != nil {
		os.RemoveAll(accountDir)
		return entities.Account{}, fmt.Errorf("create account %s: %w", id, err)
	}

	books, err := OpenBookDatabase(id, filepath.Join(accountDir, booksDirName))
	if err != nil {
		os.RemoveAll(accountDir)
		return entities.Account{}, fmt.Errorf("create account %s: %w", id, err)
	}

	db.accounts[id] = &accountState{account: account, books: books}
	db.nextID = id + 1
	return account, nil
}

// nextIDLocked allocates from the monotonic high-water mark, never from
// the live set, so an ID stays retired after its account is deleted.
func (db *AccountsDatabase) nextIDLocked() entities.AccountID {
	return db.nextID
}

func writeAccountRecord(account entities.Account) error {
	record := accountRecord{Provider: account.Provider, Credentials: account.Credentials}
	return atomicfile.WriteJSON(filepath.Join(account.Directory, accountFileName), record)
}

// Account returns the record snapshot for an ID.
func (db *AccountsDatabase) Account(id entities.AccountID) (entities.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	state, ok := db.accounts[id]
	if !ok {
		return entities.Account{}, ErrAccountNotFound
	}
	return state.account, nil
}

// Accounts returns a snapshot of all account records ordered by ID.
func (db *AccountsDatabase) Accounts() []entities.Account {
	db.mu.RLock()
	accounts := make([]entities.Account, 0, len(db.accounts))
	for _, state := range db.accounts {
		accounts = append(accounts, state.account)
	}
	db.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts
}

// Books returns the book database owned by an account.
func (db *AccountsDatabase) Books(id entities.AccountID) (*BookDatabase, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	state, ok := db.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return state.books, nil
}

// SetCredentials atomically rewrites the account record with the given
// secret. Passing nil clears it and leaves no residual secret on disk,
// since the whole record is replaced.
func (db *AccountsDatabase) SetCredentials(id entities.AccountID, credentials *entities.Credentials) (entities.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	state, ok := db.accounts[id]
	if !ok {
		return entities.Account{}, ErrAccountNotFound
	}

	updated := state.account.WithCredentials(credentials)
	if err := writeAccountRecord(updated); err != nil {
		return entities.Account{}, fmt.Errorf("account %s: write credentials: %w", id, err)
	}
	state.account = updated
	return updated, nil
}

// Delete removes the account's directory subtree and index entry.
func (db *AccountsDatabase) Delete(id entities.AccountID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	state, ok := db.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if err := os.RemoveAll(state.account.Directory); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	delete(db.accounts, id)
	return nil
}
