package controller

import (
	"errors"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
)

// ProfileCreate creates a profile and, if provider is non-nil, its first
// account. Publishes ProfileCreated or ProfileCreationFailed with the
// failure reason before the handle resolves.
func (c *Controller) ProfileCreate(displayName string, provider *entities.Provider) *Task[entities.Profile] {
	return submit(c, func() (entities.Profile, error) {
		profile, err := c.profiles.CreateProfile(displayName, provider)
		if err != nil {
			c.ProfileEvents.Publish(events.ProfileEvent{
				Type:        events.ProfileCreationFailed,
				DisplayName: displayName,
				Reason:      creationFailureReason(err),
				Err:         err,
			})
			return entities.Profile{}, err
		}
		c.ProfileEvents.Publish(events.ProfileEvent{
			Type:        events.ProfileCreated,
			ProfileID:   profile.ID,
			DisplayName: profile.DisplayName,
		})
		return profile, nil
	})
}

func creationFailureReason(err error) events.FailureReason {
	if errors.Is(err, database.ErrDisplayNameUsed) {
		return events.ReasonDisplayNameAlreadyUsed
	}
	return events.ReasonIO
}

// ProfileSelect makes the given profile current and publishes
// ProfileSelected. Fails without an event if the profile is unknown.
func (c *Controller) ProfileSelect(id entities.ProfileID) *Task[entities.Profile] {
	return submit(c, func() (entities.Profile, error) {
		if err := c.profiles.SetCurrent(id); err != nil {
			return entities.Profile{}, err
		}
		profile, err := c.profiles.Profile(id)
		if err != nil {
			return entities.Profile{}, err
		}
		c.ProfileEvents.Publish(events.ProfileEvent{
			Type:        events.ProfileSelected,
			ProfileID:   profile.ID,
			DisplayName: profile.DisplayName,
		})
		return profile, nil
	})
}

// ProfileDelete removes a profile and everything it owns, clearing the
// current selection if it pointed at the deleted profile.
func (c *Controller) ProfileDelete(id entities.ProfileID) *Task[entities.ProfileID] {
	return submit(c, func() (entities.ProfileID, error) {
		if err := c.profiles.Delete(id); err != nil {
			return 0, err
		}
		c.ProfileEvents.Publish(events.ProfileEvent{
			Type:      events.ProfileDeleted,
			ProfileID: id,
		})
		return id, nil
	})
}
