// Package models contains the data types shared by the client, the session
// state machine and the reference backend.
package models

// Kind is the type of a directory entry.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindFile || k == KindDirectory
}

// DirectoryEntry is one file or directory inside a listing.
// Names are unique within a listing. Size is 0 for directories.
type DirectoryEntry struct {
	Name string `json:"name"`
	Kind Kind   `json:"type"`
	Size int64  `json:"size"`
}

// IsDir reports whether the entry is a directory.
func (e DirectoryEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Listing is an immutable snapshot of one directory's entries.
//
// The zero value is the invalid sentinel: the navigated path did not resolve
// to a directory. A valid listing with no entries is an empty directory.
type Listing struct {
	Entries []DirectoryEntry
	Valid   bool
}

// NewListing returns a valid listing holding a copy of entries.
func NewListing(entries []DirectoryEntry) Listing {
	cp := make([]DirectoryEntry, len(entries))
	copy(cp, entries)
	return Listing{Entries: cp, Valid: true}
}

// InvalidListing returns the sentinel for a path that is not a directory.
func InvalidListing() Listing {
	return Listing{}
}

// Len returns the number of entries.
func (l Listing) Len() int {
	return len(l.Entries)
}
