// Package scheduler drives periodic catalog syncs for the current
// profile's accounts.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/circulation/internal/controller"
)

// CatalogSyncScheduler runs SyncBooks for every account of the current
// profile on a cron schedule.
type CatalogSyncScheduler struct {
	controller *controller.Controller
	schedule   string

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isSyncing bool
}

// NewCatalogSyncScheduler creates a scheduler with a standard 5-field
// cron schedule.
func NewCatalogSyncScheduler(c *controller.Controller, schedule string) *CatalogSyncScheduler {
	return &CatalogSyncScheduler{
		controller: c,
		schedule:   schedule,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the schedule. Calling Start on a running scheduler is a
// no-op.
func (s *CatalogSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.runSync(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true
	log.Printf("Catalog sync scheduler: started with schedule '%s'", s.schedule)
	return nil
}

// Stop halts the schedule; an in-flight sync finishes on its own.
func (s *CatalogSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.cron.Remove(s.entryID)
	s.cron.Stop()
	s.isRunning = false
	log.Printf("Catalog sync scheduler: stopped")
}

// TriggerNow runs one sync pass immediately, outside the schedule.
func (s *CatalogSyncScheduler) TriggerNow(ctx context.Context) {
	s.runSync(ctx)
}

func (s *CatalogSyncScheduler) runSync(ctx context.Context) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Catalog sync scheduler: previous sync still running, skipping")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	profile, ok := s.controller.Profiles().Current()
	if !ok {
		log.Printf("Catalog sync scheduler: no current profile, skipping")
		return
	}
	accounts, err := s.controller.Profiles().Accounts(profile.ID)
	if err != nil {
		log.Printf("Catalog sync scheduler: %v", err)
		return
	}

	for _, account := range accounts.Accounts() {
		result, err := s.controller.SyncBooks(ctx, account.ID).Wait()
		if err != nil {
			log.Printf("Catalog sync scheduler: account %s: %v", account.ID, err)
			continue
		}
		log.Printf("Catalog sync scheduler: account %s: %d changed, %d removed",
			account.ID, result.Changed, result.Removed)
	}
}
