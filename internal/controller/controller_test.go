package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
	"github.com/mrlokans/circulation/internal/feeds"
)

// fakeTransport replays a scripted response and records every request
// it sees.
type fakeTransport struct {
	mu       sync.Mutex
	requests []feeds.Request
	status   int
	body     []byte
	err      error
}

func (t *fakeTransport) Execute(_ context.Context, req feeds.Request) (*feeds.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return &feeds.Response{Status: t.status, Body: t.body}, nil
}

func (t *fakeTransport) requestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func catalogBody(t *testing.T, entries ...entities.CatalogEntry) []byte {
	t.Helper()
	body, err := json.Marshal(entries)
	require.NoError(t, err)
	return body
}

func libraryProvider() entities.Provider {
	return entities.Provider{
		ID:           "https://library.example.org",
		DisplayName:  "Example Library",
		AuthRequired: true,
		LoginURL:     "https://library.example.org/loans",
		CatalogURL:   "https://library.example.org/catalog",
	}
}

// setupController builds a controller over a fresh on-disk database
// with one selected profile owning one account for the given provider.
func setupController(t *testing.T, transport feeds.Transport, provider entities.Provider) (*Controller, entities.AccountID) {
	t.Helper()
	profiles, err := database.OpenProfilesDatabase(t.TempDir())
	require.NoError(t, err)

	ctrl := New(Config{
		Profiles:  profiles,
		Transport: transport,
		Parser:    feeds.NewJSONFeedParser(),
		Workers:   2,
	})
	t.Cleanup(ctrl.Stop)

	profile, err := ctrl.ProfileCreate("reader", &provider).Wait()
	require.NoError(t, err)
	_, err = ctrl.ProfileSelect(profile.ID).Wait()
	require.NoError(t, err)
	require.NotNil(t, profile.CurrentAccountID)
	return ctrl, *profile.CurrentAccountID
}

func storedCredentials(t *testing.T, ctrl *Controller, accountID entities.AccountID) *entities.Credentials {
	t.Helper()
	profile, ok := ctrl.Profiles().Current()
	require.True(t, ok)
	accounts, err := ctrl.Profiles().Accounts(profile.ID)
	require.NoError(t, err)
	account, err := accounts.Account(accountID)
	require.NoError(t, err)
	return account.Credentials
}

func collectAccountEvents(ctrl *Controller) func() []events.AccountEvent {
	var mu sync.Mutex
	var seen []events.AccountEvent
	ctrl.AccountEvents.Subscribe(func(e events.AccountEvent) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})
	return func() []events.AccountEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]events.AccountEvent(nil), seen...)
	}
}

func TestProfileCreate(t *testing.T) {
	profiles, err := database.OpenProfilesDatabase(t.TempDir())
	require.NoError(t, err)
	ctrl := New(Config{Profiles: profiles, Workers: 2})
	defer ctrl.Stop()

	var mu sync.Mutex
	var seen []events.ProfileEvent
	ctrl.ProfileEvents.Subscribe(func(e events.ProfileEvent) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})

	t.Run("publishes created event before handle resolves", func(t *testing.T) {
		profile, err := ctrl.ProfileCreate("alice", nil).Wait()
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, seen, 1)
		assert.Equal(t, events.ProfileCreated, seen[0].Type)
		assert.Equal(t, profile.ID, seen[0].ProfileID)
		assert.Equal(t, "alice", seen[0].DisplayName)
	})

	t.Run("duplicate display name fails with reason", func(t *testing.T) {
		_, err := ctrl.ProfileCreate("alice", nil).Wait()
		require.ErrorIs(t, err, database.ErrDisplayNameUsed)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, seen, 2)
		assert.Equal(t, events.ProfileCreationFailed, seen[1].Type)
		assert.Equal(t, events.ReasonDisplayNameAlreadyUsed, seen[1].Reason)
		assert.Equal(t, "alice", seen[1].DisplayName)
	})

	t.Run("select unknown profile fails without event", func(t *testing.T) {
		_, err := ctrl.ProfileSelect(99).Wait()
		require.ErrorIs(t, err, database.ErrProfileNotFound)

		mu.Lock()
		defer mu.Unlock()
		assert.Len(t, seen, 2)
	})
}

func TestProfileAccountLogin(t *testing.T) {
	validBody := []byte(`{"loans":[]}`)

	t.Run("successful login stores credentials", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: validBody}
		ctrl, accountID := setupController(t, transport, libraryProvider())
		eventsSeen := collectAccountEvents(ctrl)

		creds := entities.Credentials{Barcode: "card-123", PIN: "1234"}
		account, err := ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.NoError(t, err)
		require.NotNil(t, account.Credentials)
		assert.Equal(t, "card-123", account.Credentials.Barcode)

		stored := storedCredentials(t, ctrl, accountID)
		require.NotNil(t, stored)
		assert.Equal(t, "1234", stored.PIN)

		seen := eventsSeen()
		require.Len(t, seen, 1)
		assert.Equal(t, events.AccountLoginSucceeded, seen[0].Type)
		assert.Equal(t, accountID, seen[0].AccountID)
	})

	t.Run("401 clears stored credentials and fails the handle", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: validBody}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		creds := entities.Credentials{Barcode: "card-123", PIN: "1234"}
		_, err := ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.NoError(t, err)

		transport.status = http.StatusUnauthorized
		eventsSeen := collectAccountEvents(ctrl)

		_, err = ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.ErrorIs(t, err, feeds.ErrInvalidCredentials)
		assert.Nil(t, storedCredentials(t, ctrl, accountID))

		seen := eventsSeen()
		require.Len(t, seen, 1)
		assert.Equal(t, events.AccountLoginFailed, seen[0].Type)
		assert.ErrorIs(t, seen[0].Err, feeds.ErrInvalidCredentials)
	})

	t.Run("transport error leaves stored credentials untouched", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: validBody}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		creds := entities.Credentials{Barcode: "card-123", PIN: "1234"}
		_, err := ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.NoError(t, err)

		transport.err = errors.New("connection refused")
		_, err = ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.Error(t, err)
		require.NotErrorIs(t, err, feeds.ErrInvalidCredentials)

		stored := storedCredentials(t, ctrl, accountID)
		require.NotNil(t, stored)
		assert.Equal(t, "card-123", stored.Barcode)
	})

	t.Run("server error leaves stored credentials untouched", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: validBody}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		creds := entities.Credentials{Barcode: "card-123", PIN: "1234"}
		_, err := ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.NoError(t, err)

		transport.status = http.StatusInternalServerError
		_, err = ctrl.ProfileAccountLogin(context.Background(), accountID, creds).Wait()
		require.Error(t, err)
		require.NotNil(t, storedCredentials(t, ctrl, accountID))
	})

	t.Run("provider without auth logs in without network", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK}
		provider := libraryProvider()
		provider.AuthRequired = false
		ctrl, accountID := setupController(t, transport, provider)
		eventsSeen := collectAccountEvents(ctrl)

		account, err := ctrl.ProfileAccountLogin(context.Background(), accountID, entities.Credentials{}).Wait()
		require.NoError(t, err)
		assert.Nil(t, account.Credentials)
		assert.Zero(t, transport.requestCount())

		seen := eventsSeen()
		require.Len(t, seen, 1)
		assert.Equal(t, events.AccountLoginSucceeded, seen[0].Type)
	})

	t.Run("current login targets the selected account", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: validBody}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		creds := entities.Credentials{Barcode: "card-9", PIN: "0000"}
		account, err := ctrl.ProfileAccountCurrentLogin(context.Background(), creds).Wait()
		require.NoError(t, err)
		assert.Equal(t, accountID, account.ID)
		require.NotNil(t, storedCredentials(t, ctrl, accountID))
	})
}

func TestSyncBooks(t *testing.T) {
	entry := func(id, title string) entities.CatalogEntry {
		return entities.CatalogEntry{ID: id, Title: title}
	}

	t.Run("no-op without stored credentials", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		result, err := ctrl.SyncBooks(context.Background(), accountID).Wait()
		require.NoError(t, err)
		assert.Zero(t, result.Changed)
		assert.Zero(t, result.Removed)
		assert.Zero(t, transport.requestCount())
	})

	t.Run("reconciles added and removed books", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK}
		transport.body = catalogBody(t, entry("urn:1", "First"), entry("urn:2", "Second"))
		ctrl, accountID := setupController(t, transport, libraryProvider())

		_, err := ctrl.ProfileAccountLogin(context.Background(), accountID,
			entities.Credentials{Barcode: "card", PIN: "1"}).Wait()
		require.NoError(t, err)

		var mu sync.Mutex
		var bookEvents []events.BookEvent
		ctrl.BookEvents.Subscribe(func(e events.BookEvent) {
			mu.Lock()
			bookEvents = append(bookEvents, e)
			mu.Unlock()
		})

		result, err := ctrl.SyncBooks(context.Background(), accountID).Wait()
		require.NoError(t, err)
		assert.Equal(t, 2, result.Changed)
		assert.Equal(t, 0, result.Removed)

		// Second feed drops one book and keeps the other.
		transport.body = catalogBody(t, entry("urn:1", "First, renewed"))
		result, err = ctrl.SyncBooks(context.Background(), accountID).Wait()
		require.NoError(t, err)
		assert.Equal(t, 1, result.Changed)
		assert.Equal(t, 1, result.Removed)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, bookEvents, 4)
		assert.Equal(t, events.BookChanged, bookEvents[0].Type)
		assert.Equal(t, events.BookChanged, bookEvents[1].Type)
		assert.Equal(t, events.BookChanged, bookEvents[2].Type)
		assert.Equal(t, events.BookRemoved, bookEvents[3].Type)
		assert.Equal(t, entities.NewBookID("urn:2"), bookEvents[3].BookID)

		profile, _ := ctrl.Profiles().Current()
		accounts, err := ctrl.Profiles().Accounts(profile.ID)
		require.NoError(t, err)
		books, err := accounts.Books(accountID)
		require.NoError(t, err)
		remaining := books.Books()
		require.Len(t, remaining, 1)
		assert.Equal(t, "First, renewed", remaining[0].Entry.Title)
	})

	t.Run("401 clears credentials but resolves successfully", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: []byte(`{}`)}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		_, err := ctrl.ProfileAccountLogin(context.Background(), accountID,
			entities.Credentials{Barcode: "card", PIN: "1"}).Wait()
		require.NoError(t, err)

		transport.status = http.StatusUnauthorized
		eventsSeen := collectAccountEvents(ctrl)

		result, err := ctrl.SyncBooks(context.Background(), accountID).Wait()
		require.NoError(t, err)
		assert.Zero(t, result.Changed)
		assert.Nil(t, storedCredentials(t, ctrl, accountID))

		seen := eventsSeen()
		require.Len(t, seen, 1)
		assert.Equal(t, events.AccountLoginFailed, seen[0].Type)
		assert.ErrorIs(t, seen[0].Err, feeds.ErrInvalidCredentials)
	})

	t.Run("server error fails the handle", func(t *testing.T) {
		transport := &fakeTransport{status: http.StatusOK, body: []byte(`{}`)}
		ctrl, accountID := setupController(t, transport, libraryProvider())

		_, err := ctrl.ProfileAccountLogin(context.Background(), accountID,
			entities.Credentials{Barcode: "card", PIN: "1"}).Wait()
		require.NoError(t, err)

		transport.status = http.StatusBadGateway
		_, err = ctrl.SyncBooks(context.Background(), accountID).Wait()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 502")
	})
}

func TestBookmarks(t *testing.T) {
	transport := &fakeTransport{status: http.StatusOK}
	ctrl, _ := setupController(t, transport, libraryProvider())

	var mu sync.Mutex
	var prefEvents []events.ProfileEvent
	ctrl.ProfileEvents.Subscribe(func(e events.ProfileEvent) {
		if e.Type != events.ProfilePreferencesChanged {
			return
		}
		mu.Lock()
		prefEvents = append(prefEvents, e)
		mu.Unlock()
	})

	bookID := entities.NewBookID("urn:1")

	t.Run("get without set", func(t *testing.T) {
		_, err := ctrl.BookmarkGet(bookID).Wait()
		require.ErrorIs(t, err, ErrBookmarkNotFound)
	})

	t.Run("last write wins", func(t *testing.T) {
		_, err := ctrl.BookmarkSet(bookID, entities.Bookmark{ChapterID: "none", Position: "1"}).Wait()
		require.NoError(t, err)
		_, err = ctrl.BookmarkSet(bookID, entities.Bookmark{ChapterID: "none", Position: "2"}).Wait()
		require.NoError(t, err)

		bookmark, err := ctrl.BookmarkGet(bookID).Wait()
		require.NoError(t, err)
		assert.Equal(t, entities.Bookmark{ChapterID: "none", Position: "2"}, bookmark)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, prefEvents, 2)
		for _, e := range prefEvents {
			assert.True(t, e.ChangedReaderBookmarks)
			assert.False(t, e.ChangedReaderPreferences)
		}
	})

	t.Run("reader preferences flag their own change", func(t *testing.T) {
		profile, err := ctrl.ReaderPreferencesSet(entities.ReaderPreferences{
			FontFamily:  "serif",
			FontScale:   1.25,
			ColorScheme: "sepia",
		}).Wait()
		require.NoError(t, err)
		assert.Equal(t, "serif", profile.Preferences.Reader.FontFamily)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, prefEvents, 3)
		assert.False(t, prefEvents[2].ChangedReaderBookmarks)
		assert.True(t, prefEvents[2].ChangedReaderPreferences)
	})
}

// recordingDownloader captures submitted jobs instead of running them.
type recordingDownloader struct {
	mu   sync.Mutex
	jobs []DownloadJob
}

func (d *recordingDownloader) SubmitDownload(_ context.Context, job DownloadJob) error {
	d.mu.Lock()
	d.jobs = append(d.jobs, job)
	d.mu.Unlock()
	return nil
}

func TestBookBorrow(t *testing.T) {
	transport := &fakeTransport{status: http.StatusOK}
	transport.body = catalogBody(t, entities.CatalogEntry{
		ID:          "urn:1",
		Title:       "First",
		Acquisition: "https://library.example.org/borrow/urn:1",
	}, entities.CatalogEntry{
		ID:    "urn:2",
		Title: "No acquisition link",
	})

	profiles, err := database.OpenProfilesDatabase(t.TempDir())
	require.NoError(t, err)
	downloader := &recordingDownloader{}
	ctrl := New(Config{
		Profiles:  profiles,
		Transport: transport,
		Parser:    feeds.NewJSONFeedParser(),
		Downloads: downloader,
		Workers:   2,
	})
	defer ctrl.Stop()

	provider := libraryProvider()
	profile, err := ctrl.ProfileCreate("reader", &provider).Wait()
	require.NoError(t, err)
	_, err = ctrl.ProfileSelect(profile.ID).Wait()
	require.NoError(t, err)
	accountID := *profile.CurrentAccountID

	_, err = ctrl.ProfileAccountLogin(context.Background(), accountID,
		entities.Credentials{Barcode: "card", PIN: "1"}).Wait()
	require.NoError(t, err)
	_, err = ctrl.SyncBooks(context.Background(), accountID).Wait()
	require.NoError(t, err)

	t.Run("submits a download job", func(t *testing.T) {
		bookID := entities.NewBookID("urn:1")
		book, err := ctrl.BookBorrow(context.Background(), accountID, bookID).Wait()
		require.NoError(t, err)
		assert.Equal(t, bookID, book.ID)

		downloader.mu.Lock()
		defer downloader.mu.Unlock()
		require.Len(t, downloader.jobs, 1)
		assert.Equal(t, "https://library.example.org/borrow/urn:1", downloader.jobs[0].URL)
		assert.Equal(t, accountID, downloader.jobs[0].AccountID)
	})

	t.Run("rejects entries without an acquisition link", func(t *testing.T) {
		_, err := ctrl.BookBorrow(context.Background(), accountID, entities.NewBookID("urn:2")).Wait()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no acquisition link")
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := ctrl.BookBorrow(context.Background(), accountID, entities.NewBookID("urn:404")).Wait()
		require.ErrorIs(t, err, database.ErrBookNotFound)
	})
}
