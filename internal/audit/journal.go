// Package audit records every published profile, account and book event
// into a local relational journal so recent activity can be inspected
// after the fact.
package audit

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/circulation/internal/controller"
	"github.com/mrlokans/circulation/internal/events"
)

// Event is one journal row.
type Event struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Bus       string    `gorm:"index" json:"bus"`
	Type      string    `gorm:"index" json:"type"`
	ProfileID *int      `json:"profile_id,omitempty"`
	AccountID *int      `json:"account_id,omitempty"`
	BookID    string    `json:"book_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Journal persists events to a SQLite file.
type Journal struct {
	db *gorm.DB
}

// Open opens (or creates) the journal database and migrates its schema.
func Open(path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Attach subscribes the journal to a controller's buses. The returned
// function detaches it again.
func (j *Journal) Attach(c *controller.Controller) func() {
	subs := []*events.Subscription{
		c.ProfileEvents.Subscribe(func(e events.ProfileEvent) {
			pid := int(e.ProfileID)
			j.record(Event{
				Bus:       "profiles",
				Type:      string(e.Type),
				ProfileID: &pid,
				Detail:    errDetail(e.Err, e.DisplayName),
			})
		}),
		c.AccountEvents.Subscribe(func(e events.AccountEvent) {
			pid, aid := int(e.ProfileID), int(e.AccountID)
			j.record(Event{
				Bus:       "accounts",
				Type:      string(e.Type),
				ProfileID: &pid,
				AccountID: &aid,
				Detail:    errDetail(e.Err, e.ProviderID),
			})
		}),
		c.BookEvents.Subscribe(func(e events.BookEvent) {
			aid := int(e.AccountID)
			j.record(Event{
				Bus:       "books",
				Type:      string(e.Type),
				AccountID: &aid,
				BookID:    string(e.BookID),
			})
		}),
	}
	return func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
}

func errDetail(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}

func (j *Journal) record(e Event) {
	if err := j.db.Create(&e).Error; err != nil {
		// Journalling must never fail the operation it observes.
		return
	}
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(limit int) ([]Event, error) {
	var out []Event
	err := j.db.Order("id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return out, nil
}

// DeleteBefore removes events created before the cutoff and returns how
// many were deleted.
func (j *Journal) DeleteBefore(cutoff time.Time) (int64, error) {
	result := j.db.Where("created_at < ?", cutoff).Delete(&Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	db, err := j.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
