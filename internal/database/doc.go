// Package database implements the hierarchical on-disk persistence layer.
//
// # Layout
//
// A profiles database owns the whole directory tree:
//
//	<root>/<profileID>/profile.json
//	<root>/<profileID>/accounts/<accountID>/account.json
//	<root>/<profileID>/accounts/<accountID>/books/<bookID>/meta.json
//	<root>/<profileID>/accounts/<accountID>/books/<bookID>/book.epub  (optional)
//	<root>/<profileID>/accounts/<accountID>/books/<bookID>/cover.jpg  (optional)
//	<root>/<profileID>/accounts/<accountID>/books/<bookID>/loan.drm   (optional)
//
// Directory names are the literal decimal identifiers (books use their
// opaque string key). Every write goes through the atomicfile package,
// so a reader never observes a partially written record.
//
// # Opening
//
// Each database is constructed once at process start by scanning its
// directory:
//
//	profiles, err := database.OpenProfilesDatabase("/var/lib/circulation")
//	var open *database.OpenError
//	if errors.As(err, &open) {
//		// open.Causes holds every problem found during the scan
//	}
//
// Opening is all-or-nothing: problems with individual entries are
// collected rather than aborting the scan, but any collected problem
// fails the open.
//
// # Concurrency
//
// Databases are safe for concurrent use from multiple goroutines without
// external locking. Structural mutation and ID allocation are serialized
// internally; snapshots (Profiles, Accounts, Books) are ordered by ID.
package database
