package entities

// Profile is an immutable snapshot of one profile record. The ID and
// directory are assigned by the owning database and are not serialized;
// the remaining fields round-trip through profile.json.
type Profile struct {
	ID               ProfileID   `json:"-"`
	Directory        string      `json:"-"`
	DisplayName      string      `json:"display_name"`
	CurrentAccountID *AccountID  `json:"current_account_id,omitempty"`
	Preferences      Preferences `json:"preferences"`
}

// WithDisplayName returns a copy of the profile with the name replaced.
func (p Profile) WithDisplayName(name string) Profile {
	p.DisplayName = name
	return p
}

// WithCurrentAccount returns a copy with the selected account replaced.
func (p Profile) WithCurrentAccount(id AccountID) Profile {
	p.CurrentAccountID = &id
	return p
}

// WithoutCurrentAccount returns a copy with no selected account.
func (p Profile) WithoutCurrentAccount() Profile {
	p.CurrentAccountID = nil
	return p
}

// WithPreferences returns a copy with the preference set replaced.
func (p Profile) WithPreferences(prefs Preferences) Profile {
	p.Preferences = prefs
	return p
}
