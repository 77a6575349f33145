package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
	"github.com/mrlokans/circulation/internal/feeds"
)

// ProfileAccountCreate creates an account for the given provider under
// the current profile.
func (c *Controller) ProfileAccountCreate(provider entities.Provider) *Task[entities.Account] {
	return submit(c, func() (entities.Account, error) {
		profile, accounts, err := c.currentAccounts()
		if err != nil {
			c.AccountEvents.Publish(events.AccountEvent{
				Type:       events.AccountCreationFailed,
				ProviderID: provider.ID,
				Err:        err,
			})
			return entities.Account{}, err
		}

		account, err := accounts.CreateAccount(provider)
		if err != nil {
			c.AccountEvents.Publish(events.AccountEvent{
				Type:       events.AccountCreationFailed,
				ProfileID:  profile.ID,
				ProviderID: provider.ID,
				Err:        err,
			})
			return entities.Account{}, err
		}

		c.AccountEvents.Publish(events.AccountEvent{
			Type:       events.AccountCreationSucceeded,
			ProfileID:  profile.ID,
			AccountID:  account.ID,
			ProviderID: provider.ID,
		})
		return account, nil
	})
}

// ProfileAccountDelete removes an account from the current profile,
// clearing the profile's current-account selection if it pointed there.
func (c *Controller) ProfileAccountDelete(accountID entities.AccountID) *Task[entities.AccountID] {
	return submit(c, func() (entities.AccountID, error) {
		profile, ok := c.profiles.Current()
		if !ok {
			return 0, database.ErrNoCurrentProfile
		}
		if err := c.profiles.DeleteAccount(profile.ID, accountID); err != nil {
			return 0, err
		}
		c.AccountEvents.Publish(events.AccountEvent{
			Type:      events.AccountDeleted,
			ProfileID: profile.ID,
			AccountID: accountID,
		})
		return accountID, nil
	})
}

// ProfileAccountSelect records which of the current profile's accounts
// is selected as the implicit target.
func (c *Controller) ProfileAccountSelect(accountID entities.AccountID) *Task[entities.Profile] {
	return submit(c, func() (entities.Profile, error) {
		profile, ok := c.profiles.Current()
		if !ok {
			return entities.Profile{}, database.ErrNoCurrentProfile
		}
		return c.profiles.SetCurrentAccount(profile.ID, accountID)
	})
}

// ProfileAccountLogin checks the submitted credentials against the
// account's provider and, on success, stores them. A 401 clears any
// previously stored credentials; any other failure leaves the stored
// state untouched.
func (c *Controller) ProfileAccountLogin(ctx context.Context, accountID entities.AccountID, credentials entities.Credentials) *Task[entities.Account] {
	return submit(c, func() (entities.Account, error) {
		return c.login(ctx, accountID, credentials)
	})
}

// ProfileAccountCurrentLogin logs in the current profile's current
// account.
func (c *Controller) ProfileAccountCurrentLogin(ctx context.Context, credentials entities.Credentials) *Task[entities.Account] {
	return submit(c, func() (entities.Account, error) {
		profile, ok := c.profiles.Current()
		if !ok {
			return entities.Account{}, database.ErrNoCurrentProfile
		}
		if profile.CurrentAccountID == nil {
			return entities.Account{}, database.ErrNoCurrentAccount
		}
		return c.login(ctx, *profile.CurrentAccountID, credentials)
	})
}

func (c *Controller) login(ctx context.Context, accountID entities.AccountID, credentials entities.Credentials) (entities.Account, error) {
	profile, accounts, err := c.currentAccounts()
	if err != nil {
		return entities.Account{}, err
	}
	account, err := accounts.Account(accountID)
	if err != nil {
		return entities.Account{}, err
	}

	// Providers without an authentication requirement log in trivially:
	// no network call, no stored secret.
	if !account.Provider.AuthRequired {
		c.publishLogin(events.AccountLoginSucceeded, profile.ID, account, nil)
		return account, nil
	}

	resp, err := c.transport.Execute(ctx, feeds.Request{
		Method:      http.MethodGet,
		URL:         account.Provider.LoginURL,
		Credentials: &credentials,
	})
	if err != nil {
		c.publishLogin(events.AccountLoginFailed, profile.ID, account, err)
		return entities.Account{}, fmt.Errorf("login account %s: %w", accountID, err)
	}

	switch {
	case resp.Status == http.StatusUnauthorized:
		if _, err := accounts.SetCredentials(accountID, nil); err != nil {
			c.publishLogin(events.AccountLoginFailed, profile.ID, account, err)
			return entities.Account{}, err
		}
		c.publishLogin(events.AccountLoginFailed, profile.ID, account, feeds.ErrInvalidCredentials)
		return entities.Account{}, feeds.ErrInvalidCredentials

	case resp.Status >= 200 && resp.Status < 300:
		updated, err := accounts.SetCredentials(accountID, &credentials)
		if err != nil {
			c.publishLogin(events.AccountLoginFailed, profile.ID, account, err)
			return entities.Account{}, err
		}
		c.publishLogin(events.AccountLoginSucceeded, profile.ID, updated, nil)
		return updated, nil

	default:
		err := fmt.Errorf("login account %s: unexpected status %d", accountID, resp.Status)
		c.publishLogin(events.AccountLoginFailed, profile.ID, account, err)
		return entities.Account{}, err
	}
}

func (c *Controller) publishLogin(typ events.AccountEventType, profileID entities.ProfileID, account entities.Account, err error) {
	c.AccountEvents.Publish(events.AccountEvent{
		Type:       typ,
		ProfileID:  profileID,
		AccountID:  account.ID,
		ProviderID: account.Provider.ID,
		Err:        err,
	})
}
