package controller

import (
	"errors"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
)

// ErrBookmarkNotFound is returned when the current profile holds no
// bookmark for the requested book.
var ErrBookmarkNotFound = errors.New("no bookmark stored for book")

// BookmarkSet stores a reading position in the current profile's
// preferences and publishes a preferences-changed event flagged as a
// bookmark change only.
func (c *Controller) BookmarkSet(bookID entities.BookID, bookmark entities.Bookmark) *Task[entities.Bookmark] {
	return submit(c, func() (entities.Bookmark, error) {
		profile, ok := c.profiles.Current()
		if !ok {
			return entities.Bookmark{}, database.ErrNoCurrentProfile
		}

		prefs := profile.Preferences.WithBookmark(bookID, bookmark)
		updated, err := c.profiles.UpdatePreferences(profile.ID, prefs)
		if err != nil {
			return entities.Bookmark{}, err
		}

		c.ProfileEvents.Publish(events.ProfileEvent{
			Type:                   events.ProfilePreferencesChanged,
			ProfileID:              updated.ID,
			DisplayName:            updated.DisplayName,
			ChangedReaderBookmarks: true,
		})
		return bookmark, nil
	})
}

// BookmarkGet reads a stored reading position from the current profile.
func (c *Controller) BookmarkGet(bookID entities.BookID) *Task[entities.Bookmark] {
	return submit(c, func() (entities.Bookmark, error) {
		profile, ok := c.profiles.Current()
		if !ok {
			return entities.Bookmark{}, database.ErrNoCurrentProfile
		}
		bookmark, ok := profile.Preferences.Bookmark(bookID)
		if !ok {
			return entities.Bookmark{}, ErrBookmarkNotFound
		}
		return bookmark, nil
	})
}

// ReaderPreferencesSet replaces the current profile's reader settings
// and publishes a preferences-changed event flagged as a reader
// preference change only.
func (c *Controller) ReaderPreferencesSet(prefs entities.ReaderPreferences) *Task[entities.Profile] {
	return submit(c, func() (entities.Profile, error) {
		profile, ok := c.profiles.Current()
		if !ok {
			return entities.Profile{}, database.ErrNoCurrentProfile
		}

		updated, err := c.profiles.UpdatePreferences(profile.ID, profile.Preferences.WithReader(prefs))
		if err != nil {
			return entities.Profile{}, err
		}

		c.ProfileEvents.Publish(events.ProfileEvent{
			Type:                     events.ProfilePreferencesChanged,
			ProfileID:                updated.ID,
			DisplayName:              updated.DisplayName,
			ChangedReaderPreferences: true,
		})
		return updated, nil
	})
}
