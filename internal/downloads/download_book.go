package downloads

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
)

// DownloadBookTask fetches one EPUB payload and attaches it to its book
// entry.
type DownloadBookTask struct {
	ProfileID int    `json:"profile_id"`
	AccountID int    `json:"account_id"`
	BookID    string `json:"book_id"`
	URL       string `json:"url"`
}

// Config returns the queue configuration for book downloads.
func (t DownloadBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "download_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DownloadBookProcessor creates the processor for download tasks. The
// payload is fetched to a temporary file and then attached through the
// book entry's atomic writer; bus, when non-nil, gets a BookChanged
// event per attached payload.
func DownloadBookProcessor(profiles *database.ProfilesDatabase, bus *events.Bus[events.BookEvent]) backlite.QueueProcessor[DownloadBookTask] {
	httpClient := &http.Client{Timeout: 5 * time.Minute}

	return func(ctx context.Context, task DownloadBookTask) error {
		entry, err := lookupEntry(profiles, task)
		if err != nil {
			return err
		}

		tmpPath, err := fetchToTemp(ctx, httpClient, task.URL)
		if err != nil {
			return fmt.Errorf("download book %s: %w", task.BookID, err)
		}
		defer os.Remove(tmpPath)

		if err := entry.WriteEPUB(tmpPath); err != nil {
			return err
		}

		if bus != nil {
			bus.Publish(events.BookEvent{
				Type:      events.BookChanged,
				AccountID: entities.AccountID(task.AccountID),
				BookID:    entities.BookID(task.BookID),
			})
		}
		log.Printf("[DOWNLOAD] Attached payload for book %s", task.BookID)
		return nil
	}
}

func lookupEntry(profiles *database.ProfilesDatabase, task DownloadBookTask) (*database.BookEntry, error) {
	accounts, err := profiles.Accounts(entities.ProfileID(task.ProfileID))
	if err != nil {
		return nil, fmt.Errorf("download book %s: %w", task.BookID, err)
	}
	books, err := accounts.Books(entities.AccountID(task.AccountID))
	if err != nil {
		return nil, fmt.Errorf("download book %s: %w", task.BookID, err)
	}
	entry, err := books.Entry(entities.BookID(task.BookID))
	if err != nil {
		return nil, fmt.Errorf("download book %s: %w", task.BookID, err)
	}
	return entry, nil
}

func fetchToTemp(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch payload: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "circulation_download_")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// NewDownloadBookQueue creates the backlite queue for download tasks.
func NewDownloadBookQueue(profiles *database.ProfilesDatabase, bus *events.Bus[events.BookEvent]) backlite.Queue {
	return backlite.NewQueue(DownloadBookProcessor(profiles, bus))
}
