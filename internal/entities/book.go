package entities

// Book is an immutable snapshot of one book record. The catalog entry is
// the authoritative display metadata; the file fields point at optional
// locally cached artifacts inside the book's directory.
type Book struct {
	ID          BookID
	AccountID   AccountID
	Entry       CatalogEntry
	EPUBFile    string
	CoverFile   string
	DRMLoanFile string
}

// HasEPUB reports whether a local EPUB payload is attached.
func (b Book) HasEPUB() bool { return b.EPUBFile != "" }

// HasCover reports whether a local cover image is attached.
func (b Book) HasCover() bool { return b.CoverFile != "" }

// WithEntry returns a copy with the catalog entry replaced.
func (b Book) WithEntry(entry CatalogEntry) Book {
	b.Entry = entry
	return b
}

// WithEPUBFile returns a copy with the EPUB artifact path replaced.
func (b Book) WithEPUBFile(path string) Book {
	b.EPUBFile = path
	return b
}

// WithCoverFile returns a copy with the cover artifact path replaced.
func (b Book) WithCoverFile(path string) Book {
	b.CoverFile = path
	return b
}

// WithDRMLoanFile returns a copy with the DRM loan blob path replaced.
func (b Book) WithDRMLoanFile(path string) Book {
	b.DRMLoanFile = path
	return b
}
