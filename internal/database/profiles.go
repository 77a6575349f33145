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
	profileFileName = "profile.json"
	accountsDirName = "accounts"
)

// ProfilesDatabase is the top-level directory of profiles. It owns one
// accounts database per profile and tracks which profile, if any, is
// current. The current selection is process-local state and always
// starts out empty after open.
type ProfilesDatabase struct {
	dir string

	mu       sync.RWMutex
	profiles map[entities.ProfileID]*profileState
	current  *entities.ProfileID
	nextID   entities.ProfileID
}

type profileState struct {
	profile  entities.Profile
	accounts *AccountsDatabase
}

// OpenProfilesDatabase scans the immediate subdirectories of root and
// reconstructs the profile set. Every problem found (non-numeric
// directory name, unparseable profile.json, nested accounts problem) is
// collected into an OpenError; any of them fails the open. A missing
// root is created empty.
func OpenProfilesDatabase(root string) (*ProfilesDatabase, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &OpenError{Dir: root, Causes: []error{err}}
	}

	db := &ProfilesDatabase{
		dir:      root,
		profiles: make(map[entities.ProfileID]*profileState),
	}

	dirents, err := os.ReadDir(root)
	if err != nil {
		return nil, &OpenError{Dir: root, Causes: []error{err}}
	}

	var causes []error
	for _, de := range dirents {
		if !de.IsDir() {
			causes = append(causes, fmt.Errorf("%s: not a profile directory", de.Name()))
			continue
		}
		id, err := entities.ParseProfileID(de.Name())
		if err != nil {
			causes = append(causes, err)
			continue
		}
		state, err := db.loadProfile(id)
		if err != nil {
			causes = append(causes, err)
			continue
		}
		db.profiles[id] = state
		if id >= db.nextID {
			db.nextID = id + 1
		}
	}
	if len(causes) > 0 {
		return nil, &OpenError{Dir: root, Causes: causes}
	}
	return db, nil
}

func (db *ProfilesDatabase) loadProfile(id entities.ProfileID) (*profileState, error) {
	profileDir := filepath.Join(db.dir, id.String())
	data, err := os.ReadFile(filepath.Join(profileDir, profileFileName))
	if err != nil {
		return nil, fmt.Errorf("profile %s: read record: %w", id, err)
	}
	var profile entities.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("profile %s: parse record: %w", id, err)
	}
	profile.ID = id
	profile.Directory = profileDir

	accounts, err := OpenAccountsDatabase(id, filepath.Join(profileDir, accountsDirName))
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}

	return &profileState{profile: profile, accounts: accounts}, nil
}

// Directory returns the database root directory.
func (db *ProfilesDatabase) Directory() string { return db.dir }

// CreateProfile allocates the next ProfileID, persists profile.json
// atomically, creates the accounts subdirectory and, if a default
// provider is supplied, the profile's first account (which becomes its
// current account). Fails with ErrDisplayNameUsed if the name is taken;
// nothing is mutated on failure.
func (db *ProfilesDatabase) CreateProfile(displayName string, defaultProvider *entities.Provider) (entities.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, state := range db.profiles {
		if state.profile.DisplayName == displayName {
			return entities.Profile{}, ErrDisplayNameUsed
		}
	}

	id := db.nextIDLocked()
	profileDir := filepath.Join(db.dir, id.String())
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return entities.Profile{}, fmt.Errorf("create profile %s: %w", id, err)
	}

	profile := entities.Profile{
		ID:          id,
		Directory:   profileDir,
		DisplayName: displayName,
	}
	if err := atomicfile.WriteJSON(filepath.Join(profileDir, profileFileName), profile); err != nil {
		os.RemoveAll(profileDir)
		return entities.Profile{}, fmt.Errorf("create profile %s: %w", id, err)
	}

	accounts, err := OpenAccountsDatabase(id, filepath.Join(profileDir, accountsDirName))
	if err != nil {
		os.RemoveAll(profileDir)
		return entities.Profile{}, fmt.Errorf("create profile %s: %w", id, err)
	}

	if defaultProvider != nil {
		account, err := accounts.CreateAccount(*defaultProvider)
		if err != nil {
			os.RemoveAll(profileDir)
			return entities.Profile{}, fmt.Errorf("create profile %s: default account: %w", id, err)
		}
		profile = profile.WithCurrentAccount(account.ID)
		if err := atomicfile.WriteJSON(filepath.Join(profileDir, profileFileName), profile); err != nil {
			os.RemoveAll(profileDir)
			return entities.Profile{}, fmt.Errorf("create profile %s: %w", id, err)
		}
	}

	db.profiles[id] = &profileState{profile: profile, accounts: accounts}
	db.nextID = id + 1
	return profile, nil
}

// nextIDLocked allocates from the monotonic high-water mark, never from
// the live set, so an ID stays retired after its profile is deleted.
func (db *ProfilesDatabase) nextIDLocked() entities.ProfileID {
	return db.nextID
}

// Profile returns the record snapshot for an ID.
func (db *ProfilesDatabase) Profile(id entities.ProfileID) (entities.Profile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	state, ok := db.profiles[id]
	if !ok {
		return entities.Profile{}, ErrProfileNotFound
	}
	return state.profile, nil
}

// Profiles returns a snapshot of all profile records ordered by ID.
func (db *ProfilesDatabase) Profiles() []entities.Profile {
	db.mu.RLock()
	profiles := make([]entities.Profile, 0, len(db.profiles))
	for _, state := range db.profiles {
		profiles = append(profiles, state.profile)
	}
	db.mu.RUnlock()

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles
}

// FindByDisplayName returns the profile with the given display name.
func (db *ProfilesDatabase) FindByDisplayName(name string) (entities.Profile, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, state := range db.profiles {
		if state.profile.DisplayName == name {
			return state.profile, true
		}
	}
	return entities.Profile{}, false
}

// SetCurrent makes the given profile the single current one. The
// selection is never persisted.
func (db *ProfilesDatabase) SetCurrent(id entities.ProfileID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.profiles[id]; !ok {
		return ErrProfileNotFound
	}
	db.current = &id
	return nil
}

// Current returns the current profile, if one is selected.
func (db *ProfilesDatabase) Current() (entities.Profile, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.current == nil {
		return entities.Profile{}, false
	}
	state, ok := db.profiles[*db.current]
	if !ok {
		return entities.Profile{}, false
	}
	return state.profile, true
}

// Accounts returns the accounts database owned by a profile.
func (db *ProfilesDatabase) Accounts(id entities.ProfileID) (*AccountsDatabase, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	state, ok := db.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return state.accounts, nil
}

// UpdatePreferences rewrites the profile record with the given
// preference set (read-modify-atomically-rewrite).
func (db *ProfilesDatabase) UpdatePreferences(id entities.ProfileID, prefs entities.Preferences) (entities.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	state, ok := db.profiles[id]
	if !ok {
		return entities.Profile{}, ErrProfileNotFound
	}

	updated := state.profile.WithPreferences(prefs)
	if err := db.writeProfileLocked(updated); err != nil {
		return entities.Profile{}, err
	}
	state.profile = updated
	return updated, nil
}

// SetCurrentAccount records which of the profile's accounts is selected.
// The account must exist in the profile's accounts database.
func (db *ProfilesDatabase) SetCurrentAccount(id entities.ProfileID, accountID entities.AccountID) (entities.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	state, ok := db.profiles[id]
	if !ok {
		return entities.Profile{}, ErrProfileNotFound
	}
	if _, err := state.accounts.Account(accountID); err != nil {
		return entities.Profile{}, err
	}

	updated := state.profile.WithCurrentAccount(accountID)
	if err := db.writeProfileLocked(updated); err != nil {
		return entities.Profile{}, err
	}
	state.profile = updated
	return updated, nil
}

func (db *ProfilesDatabase) writeProfileLocked(profile entities.Profile) error {
	path := filepath.Join(profile.Directory, profileFileName)
	if err := atomicfile.WriteJSON(path, profile); err != nil {
		return fmt.Errorf("profile %s: write record: %w", profile.ID, err)
	}
	return nil
}

// DeleteAccount removes an account from a profile. If it was the
// profile's current account the selection is cleared rather than left
// dangling.
func (db *ProfilesDatabase) DeleteAccount(id entities.ProfileID, accountID entities.AccountID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	state, ok := db.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	if err := state.accounts.Delete(accountID); err != nil {
		return err
	}
	if cur := state.profile.CurrentAccountID; cur != nil && *cur == accountID {
		updated := state.profile.WithoutCurrentAccount()
		if err := db.writeProfileLocked(updated); err != nil {
			return err
		}
		state.profile = updated
	}
	return nil
}

// Delete removes a profile's directory subtree and index entry. If it
// was the current profile the selection is cleared.
func (db *ProfilesDatabase) Delete(id entities.ProfileID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	state, ok := db.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	if err := os.RemoveAll(state.profile.Directory); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	delete(db.profiles, id)
	if db.current != nil && *db.current == id {
		db.current = nil
	}
	return nil
}
