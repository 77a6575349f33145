// Package controller sequences operations across the on-disk databases,
// the event buses and the network collaborators. Every public operation
// runs on a worker pool and returns a Task handle immediately; its
// events are published synchronously before the handle resolves.
package controller

import (
	"context"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/events"
	"github.com/mrlokans/circulation/internal/feeds"
)

// DownloadJob describes one EPUB payload to fetch for a book entry.
type DownloadJob struct {
	ProfileID entities.ProfileID
	AccountID entities.AccountID
	BookID    entities.BookID
	URL       string
}

// Downloader is the byte-stream download collaborator: jobs are
// submitted and executed elsewhere.
type Downloader interface {
	SubmitDownload(ctx context.Context, job DownloadJob) error
}

// Config wires a Controller's collaborators.
type Config struct {
	Profiles  *database.ProfilesDatabase
	Transport feeds.Transport
	Parser    feeds.Parser
	Downloads Downloader
	Workers   int
}

// Controller is the stateless orchestrator over the databases and the
// network collaborators.
type Controller struct {
	profiles  *database.ProfilesDatabase
	transport feeds.Transport
	parser    feeds.Parser
	downloads Downloader
	pool      *pool

	ProfileEvents *events.Bus[events.ProfileEvent]
	AccountEvents *events.Bus[events.AccountEvent]
	BookEvents    *events.Bus[events.BookEvent]
}

// New creates a controller and starts its worker pool.
func New(cfg Config) *Controller {
	return &Controller{
		profiles:      cfg.Profiles,
		transport:     cfg.Transport,
		parser:        cfg.Parser,
		downloads:     cfg.Downloads,
		pool:          newPool(cfg.Workers),
		ProfileEvents: events.NewBus[events.ProfileEvent](),
		AccountEvents: events.NewBus[events.AccountEvent](),
		BookEvents:    events.NewBus[events.BookEvent](),
	}
}

// Profiles exposes the read-only database views.
func (c *Controller) Profiles() *database.ProfilesDatabase { return c.profiles }

// Stop drains in-flight operations and stops the workers.
func (c *Controller) Stop() {
	c.pool.stop()
}

// submit schedules fn on the pool and returns its handle.
func submit[T any](c *Controller, fn func() (T, error)) *Task[T] {
	task := newTask[T]()
	c.pool.submit(func() {
		task.complete(fn())
	})
	return task
}

// currentAccounts resolves the current profile and its accounts
// database, the implicit target of operations without an explicit ID.
func (c *Controller) currentAccounts() (entities.Profile, *database.AccountsDatabase, error) {
	profile, ok := c.profiles.Current()
	if !ok {
		return entities.Profile{}, nil, database.ErrNoCurrentProfile
	}
	accounts, err := c.profiles.Accounts(profile.ID)
	if err != nil {
		return entities.Profile{}, nil, err
	}
	return profile, accounts, nil
}
