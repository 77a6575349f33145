package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
	"github.com/mrlokans/circulation/internal/feeds"
)

// SyncResult summarizes one catalog reconciliation.
type SyncResult struct {
	Changed int
	Removed int
}

// SyncBooks fetches the account's remote catalog feed and reconciles it
// into the account's book database, publishing BookChanged/BookRemoved
// per affected book.
//
// The operation is a no-op when the provider requires auth and no
// credentials are stored. A 401 clears the stored credentials and
// publishes AccountLoginFailed but still resolves the handle
// successfully: the sync merely discovered that trust has lapsed.
func (c *Controller) SyncBooks(ctx context.Context, accountID entities.AccountID) *Task[SyncResult] {
	return submit(c, func() (SyncResult, error) {
		profile, accounts, err := c.currentAccounts()
		if err != nil {
			return SyncResult{}, err
		}
		account, err := accounts.Account(accountID)
		if err != nil {
			return SyncResult{}, err
		}

		if account.Provider.AuthRequired && account.Credentials == nil {
			return SyncResult{}, nil
		}

		resp, err := c.transport.Execute(ctx, feeds.Request{
			Method:      http.MethodGet,
			URL:         account.Provider.CatalogURL,
			Credentials: account.Credentials,
		})
		if err != nil {
			return SyncResult{}, fmt.Errorf("sync account %s: %w", accountID, err)
		}

		switch {
		case resp.Status == http.StatusUnauthorized:
			if _, err := accounts.SetCredentials(accountID, nil); err != nil {
				return SyncResult{}, err
			}
			c.publishLogin(events.AccountLoginFailed, profile.ID, account, feeds.ErrInvalidCredentials)
			return SyncResult{}, nil

		case resp.Status < 200 || resp.Status >= 300:
			return SyncResult{}, fmt.Errorf("sync account %s: unexpected status %d", accountID, resp.Status)
		}

		entries, err := c.parser.Parse(resp.Body)
		if err != nil {
			return SyncResult{}, fmt.Errorf("sync account %s: %w", accountID, err)
		}
		return c.reconcile(accountID, entries)
	})
}

// reconcile applies the fetched entries to the account's book database:
// every returned entry is created or updated, every book no longer in
// the feed is removed.
func (c *Controller) reconcile(accountID entities.AccountID, entries []entities.CatalogEntry) (SyncResult, error) {
	_, accounts, err := c.currentAccounts()
	if err != nil {
		return SyncResult{}, err
	}
	books, err := accounts.Books(accountID)
	if err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	seen := make(map[entities.BookID]bool, len(entries))
	for _, entry := range entries {
		id := entities.NewBookID(entry.ID)
		seen[id] = true
		if _, err := books.Create(id, entry); err != nil {
			return result, err
		}
		c.BookEvents.Publish(events.BookEvent{Type: events.BookChanged, AccountID: accountID, BookID: id})
		result.Changed++
	}

	for _, book := range books.Books() {
		if seen[book.ID] {
			continue
		}
		entry, err := books.Entry(book.ID)
		if err != nil {
			continue
		}
		if err := entry.Delete(); err != nil {
			return result, err
		}
		c.BookEvents.Publish(events.BookEvent{Type: events.BookRemoved, AccountID: accountID, BookID: book.ID})
		result.Removed++
	}
	return result, nil
}

// BookBorrow submits a download job for a book's EPUB payload via the
// download collaborator. The artifact is attached to the book entry by
// the download processor once the payload has been fetched.
func (c *Controller) BookBorrow(ctx context.Context, accountID entities.AccountID, bookID entities.BookID) *Task[entities.Book] {
	return submit(c, func() (entities.Book, error) {
		profile, accounts, err := c.currentAccounts()
		if err != nil {
			return entities.Book{}, err
		}
		books, err := accounts.Books(accountID)
		if err != nil {
			return entities.Book{}, err
		}
		entry, err := books.Entry(bookID)
		if err != nil {
			return entities.Book{}, err
		}

		book := entry.Book()
		if book.Entry.Acquisition == "" {
			return entities.Book{}, fmt.Errorf("borrow book %s: catalog entry has no acquisition link", bookID)
		}
		if c.downloads == nil {
			return entities.Book{}, fmt.Errorf("borrow book %s: no downloader configured", bookID)
		}

		job := DownloadJob{
			ProfileID: profile.ID,
			AccountID: accountID,
			BookID:    bookID,
			URL:       book.Entry.Acquisition,
		}
		if err := c.downloads.SubmitDownload(ctx, job); err != nil {
			return entities.Book{}, fmt.Errorf("borrow book %s: %w", bookID, err)
		}
		return book, nil
	})
}
