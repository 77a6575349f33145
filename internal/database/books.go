package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mrlokans/circulation/internal/atomicfile"
	"github.com/mrlokans/circulation/internal/entities"
)

const (
	metaFileName    = "meta.json"
	epubFileName    = "book.epub"
	coverFileName   = "cover.jpg"
	drmLoanFileName = "loan.drm"
)

// BookDatabase is the per-account collection of book entries. Each entry
// is a subdirectory named by the BookID holding the catalog metadata and
// any locally cached artifacts.
type BookDatabase struct {
	accountID entities.AccountID
	dir       string

	mu      sync.RWMutex
	entries map[entities.BookID]*BookEntry
}

// OpenBookDatabase scans dir and reconstructs the book set. Every
// problem found during the scan is collected into an OpenError; any
// problem fails the open. A missing directory is created empty.
func OpenBookDatabase(accountID entities.AccountID, dir string) (*BookDatabase, error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, &OpenError{Dir: dir, Causes: []error{fmt.Errorf("%s: Not a directory", dir)}}
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &OpenError{Dir: dir, Causes: []error{err}}
		}
	case err != nil:
		return nil, &OpenError{Dir: dir, Causes: []error{err}}
	}

	db := &BookDatabase{
		accountID: accountID,
		dir:       dir,
		entries:   make(map[entities.BookID]*BookEntry),
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, &OpenError{Dir: dir, Causes: []error{err}}
	}

	var causes []error
	for _, de := range dirents {
		if !de.IsDir() {
			causes = append(causes, fmt.Errorf("%s: not a book directory", de.Name()))
			continue
		}
		entry, err := db.loadEntry(entities.BookID(de.Name()))
		if err != nil {
			causes = append(causes, err)
			continue
		}
		db.entries[entry.ID()] = entry
	}
	if len(causes) > 0 {
		return nil, &OpenError{Dir: dir, Causes: causes}
	}
	return db, nil
}

func (db *BookDatabase) loadEntry(id entities.BookID) (*BookEntry, error) {
	bookDir := filepath.Join(db.dir, string(id))
	data, err := os.ReadFile(filepath.Join(bookDir, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("book %s: read metadata: %w", id, err)
	}
	var catalog entities.CatalogEntry
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("book %s: parse metadata: %w", id, err)
	}

	book := entities.Book{ID: id, AccountID: db.accountID, Entry: catalog}
	if path := filepath.Join(bookDir, epubFileName); isRegularFile(path) {
		book = book.WithEPUBFile(path)
	}
	if path := filepath.Join(bookDir, coverFileName); isRegularFile(path) {
		book = book.WithCoverFile(path)
	}
	if path := filepath.Join(bookDir, drmLoanFileName); isRegularFile(path) {
		book = book.WithDRMLoanFile(path)
	}
	return &BookEntry{db: db, dir: bookDir, book: book}, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Directory returns the database root directory.
func (db *BookDatabase) Directory() string { return db.dir }

// Create registers a new book entry for the given key, persisting the
// catalog entry atomically. If the key already exists the entry's
// metadata is updated in place so re-syncing never duplicates a book.
func (db *BookDatabase) Create(id entities.BookID, catalog entities.CatalogEntry) (*BookEntry, error) {
	db.mu.Lock()
	existing, ok := db.entries[id]
	db.mu.Unlock()
	if ok {
		if err := existing.WriteCatalogEntry(catalog); err != nil {
			return nil, err
		}
		return existing, nil
	}

	bookDir := filepath.Join(db.dir, string(id))
	if err := os.MkdirAll(bookDir, 0755); err != nil {
		return nil, &BookError{BookID: id, Op: "create", Err: err}
	}
	if err := atomicfile.WriteJSON(filepath.Join(bookDir, metaFileName), catalog); err != nil {
		os.RemoveAll(bookDir)
		return nil, &BookError{BookID: id, Op: "create", Err: err}
	}

	entry := &BookEntry{
		db:   db,
		dir:  bookDir,
		book: entities.Book{ID: id, AccountID: db.accountID, Entry: catalog},
	}

	db.mu.Lock()
	// Another writer may have raced us; last writer wins.
	db.entries[id] = entry
	db.mu.Unlock()
	return entry, nil
}

// Entry returns the handle for a book key.
func (db *BookDatabase) Entry(id entities.BookID) (*BookEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	entry, ok := db.entries[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return entry, nil
}

// Books returns a snapshot of all book records ordered by ID.
func (db *BookDatabase) Books() []entities.Book {
	db.mu.RLock()
	books := make([]entities.Book, 0, len(db.entries))
	for _, entry := range db.entries {
		books = append(books, entry.Book())
	}
	db.mu.RUnlock()

	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

func (db *BookDatabase) remove(id entities.BookID) {
	db.mu.Lock()
	delete(db.entries, id)
	db.mu.Unlock()
}

// BookEntry is a live handle onto one book's directory. All mutations
// are atomic replaces; failures are reported as BookError.
type BookEntry struct {
	db  *BookDatabase
	dir string

	mu   sync.RWMutex
	book entities.Book
}

// ID returns the book's key.
func (e *BookEntry) ID() entities.BookID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.ID
}

// Directory returns the entry's directory.
func (e *BookEntry) Directory() string { return e.dir }

// Book returns the current record snapshot.
func (e *BookEntry) Book() entities.Book {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book
}

// WriteCatalogEntry atomically replaces the persisted catalog metadata.
func (e *BookEntry) WriteCatalogEntry(catalog entities.CatalogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := atomicfile.WriteJSON(filepath.Join(e.dir, metaFileName), catalog); err != nil {
		return &BookError{BookID: e.book.ID, Op: "write metadata for", Err: err}
	}
	e.book = e.book.WithEntry(catalog)
	return nil
}

// WriteEPUB atomically copies the EPUB payload at src into the entry.
func (e *BookEntry) WriteEPUB(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	dst := filepath.Join(e.dir, epubFileName)
	if err := atomicfile.CopyFile(src, dst); err != nil {
		return &BookError{BookID: e.book.ID, Op: "write epub for", Err: err}
	}
	e.book = e.book.WithEPUBFile(dst)
	return nil
}

// WriteCoverImage atomically copies the cover image at src into the entry.
func (e *BookEntry) WriteCoverImage(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	dst := filepath.Join(e.dir, coverFileName)
	if err := atomicfile.CopyFile(src, dst); err != nil {
		return &BookError{BookID: e.book.ID, Op: "write cover for", Err: err}
	}
	e.book = e.book.WithCoverFile(dst)
	return nil
}

// WriteDRMLoan atomically stores the opaque loan blob. The blob is never
// interpreted, only round-tripped.
func (e *BookEntry) WriteDRMLoan(blob []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	dst := filepath.Join(e.dir, drmLoanFileName)
	if err := atomicfile.WriteFile(dst, blob); err != nil {
		return &BookError{BookID: e.book.ID, Op: "write loan for", Err: err}
	}
	e.book = e.book.WithDRMLoanFile(dst)
	return nil
}

// DRMLoan returns the stored loan blob, or nil if none is present.
func (e *BookEntry) DRMLoan() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.book.DRMLoanFile == "" {
		return nil, nil
	}
	blob, err := os.ReadFile(e.book.DRMLoanFile)
	if err != nil {
		return nil, &BookError{BookID: e.book.ID, Op: "read loan for", Err: err}
	}
	return blob, nil
}

// Delete removes the entry's directory subtree and unregisters it from
// the database index.
func (e *BookEntry) Delete() error {
	e.mu.Lock()
	id := e.book.ID
	e.mu.Unlock()

	if err := os.RemoveAll(e.dir); err != nil {
		return &BookError{BookID: id, Op: "delete", Err: err}
	}
	e.db.remove(id)
	return nil
}
