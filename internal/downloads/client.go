// Package downloads implements the byte-stream download collaborator as
// a persistent task queue: borrow operations submit jobs, queue workers
// fetch the payloads and attach them to their book entries.
package downloads

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/circulation/internal/controller"
)

// Config holds queue tuning knobs.
type Config struct {
	Workers         int
	ReleaseAfter    time.Duration
	CleanupInterval time.Duration
}

// Client wraps backlite to provide the download queue.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.RWMutex
	started bool
}

// NewClient creates a download queue client with a dedicated SQLite
// database at dbPath.
func NewClient(dbPath string, cfg Config) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open downloads database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &stdLogger{},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{client: client, db: db, config: cfg}, nil
}

// Register registers task queues with the client. Must be called before
// Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing jobs. Non-blocking; use Stop() for graceful
// shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	log.Printf("Download queue started with %d workers", c.config.Workers)
	c.client.Start(ctx)
}

// Stop waits for active jobs to finish, up to the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	success := c.client.Stop(ctx)
	if success {
		log.Println("Download queue stopped gracefully")
	} else {
		log.Println("Download queue stopped with timeout (some jobs may not have completed)")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// SubmitDownload enqueues one download job.
func (c *Client) SubmitDownload(ctx context.Context, job controller.DownloadJob) error {
	task := DownloadBookTask{
		ProfileID: int(job.ProfileID),
		AccountID: int(job.AccountID),
		BookID:    string(job.BookID),
		URL:       job.URL,
	}
	if _, err := c.client.Add(task).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue download for book %s: %w", job.BookID, err)
	}
	return nil
}

var _ controller.Downloader = (*Client)(nil)

// stdLogger implements backlite.Logger using standard library log.
type stdLogger struct{}

func (l *stdLogger) Info(message string, params ...any) {
	log.Printf("[DOWNLOAD] "+message, params...)
}

func (l *stdLogger) Error(message string, params ...any) {
	log.Printf("[DOWNLOAD ERROR] "+message, params...)
}
