package events

import "github.com/mrlokans/circulation/internal/entities"

// FailureReason classifies why an operation could not complete.
type FailureReason string

const (
	ReasonDisplayNameAlreadyUsed FailureReason = "DISPLAY_NAME_ALREADY_USED"
	ReasonIO                     FailureReason = "IO"
	ReasonNoCurrentProfile       FailureReason = "NO_CURRENT_PROFILE"
)

// ProfileEventType discriminates profile bus events.
type ProfileEventType string

const (
	ProfileCreated            ProfileEventType = "profile-created"
	ProfileCreationFailed     ProfileEventType = "profile-creation-failed"
	ProfileSelected           ProfileEventType = "profile-selected"
	ProfileDeleted            ProfileEventType = "profile-deleted"
	ProfilePreferencesChanged ProfileEventType = "profile-preferences-changed"
)

// ProfileEvent is published on profile lifecycle and preference changes.
// For preference changes the Changed* flags describe exactly which
// sub-fields changed so subscribers can skip redundant refreshes.
type ProfileEvent struct {
	Type        ProfileEventType
	ProfileID   entities.ProfileID
	DisplayName string
	Reason      FailureReason
	Err         error

	ChangedReaderBookmarks   bool
	ChangedReaderPreferences bool
}

// AccountEventType discriminates account bus events.
type AccountEventType string

const (
	AccountCreationSucceeded AccountEventType = "account-creation-succeeded"
	AccountCreationFailed    AccountEventType = "account-creation-failed"
	AccountLoginSucceeded    AccountEventType = "account-login-succeeded"
	AccountLoginFailed       AccountEventType = "account-login-failed"
	AccountDeleted           AccountEventType = "account-deleted"
)

// AccountEvent is published on account lifecycle and authentication
// outcomes.
type AccountEvent struct {
	Type       AccountEventType
	ProfileID  entities.ProfileID
	AccountID  entities.AccountID
	ProviderID string
	Err        error
}

// BookEventType discriminates book bus events.
type BookEventType string

const (
	BookChanged BookEventType = "book-changed"
	BookRemoved BookEventType = "book-removed"
)

// BookEvent is published once per book affected by a catalog sync or a
// local artifact mutation.
type BookEvent struct {
	Type      BookEventType
	AccountID entities.AccountID
	BookID    entities.BookID
}
