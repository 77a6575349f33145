package entities

// Bookmark records a reading position inside a book: the chapter (or
// spine item) and the position within it.
type Bookmark struct {
	ChapterID string `json:"chapter_id"`
	Position  string `json:"position"`
}

// ReaderPreferences holds the profile's reader display settings.
type ReaderPreferences struct {
	FontFamily  string  `json:"font_family,omitempty"`
	FontScale   float64 `json:"font_scale,omitempty"`
	ColorScheme string  `json:"color_scheme,omitempty"`
}

// Preferences is the per-profile preference set. Values are immutable;
// mutation goes through the With* constructors which return a copy.
type Preferences struct {
	Bookmarks map[BookID]Bookmark `json:"bookmarks,omitempty"`
	Reader    ReaderPreferences   `json:"reader,omitempty"`
}

// Bookmark returns the stored bookmark for a book, if any.
func (p Preferences) Bookmark(id BookID) (Bookmark, bool) {
	b, ok := p.Bookmarks[id]
	return b, ok
}

// WithBookmark returns a copy of the preferences with the bookmark for
// the given book replaced.
func (p Preferences) WithBookmark(id BookID, b Bookmark) Preferences {
	out := p
	out.Bookmarks = make(map[BookID]Bookmark, len(p.Bookmarks)+1)
	for k, v := range p.Bookmarks {
		out.Bookmarks[k] = v
	}
	out.Bookmarks[id] = b
	return out
}

// WithReader returns a copy of the preferences with the reader settings
// replaced.
func (p Preferences) WithReader(r ReaderPreferences) Preferences {
	out := p
	out.Reader = r
	return out
}
