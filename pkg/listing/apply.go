package listing

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/fruitsalade/filebrowser/pkg/models"
)

// comparator orders two entries; negative means a sorts first.
type comparator func(a, b models.DirectoryEntry) int

// Apply filters entries by a case-insensitive substring of their name and
// sorts the result according to spec. An invalid spec leaves the filtered
// entries in their original order. The input slice is never modified.
//
// Apply is pure: repeated calls with the same arguments return equal results.
func Apply(entries []models.DirectoryEntry, spec SortSpec, filterText string) []models.DirectoryEntry {
	out := Filter(entries, filterText)

	if !spec.Valid() {
		return out
	}
	cmp := comparatorFor(spec)
	if cmp == nil {
		return out
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// Filter returns the entries whose name contains filterText, ignoring case.
// An empty filter keeps every entry. The result is always a fresh slice.
func Filter(entries []models.DirectoryEntry, filterText string) []models.DirectoryEntry {
	out := make([]models.DirectoryEntry, 0, len(entries))
	if filterText == "" {
		return append(out, entries...)
	}

	needle := strings.ToLower(filterText)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
		}
	}
	return out
}

// comparatorFor returns nil for an unsorted spec.
func comparatorFor(spec SortSpec) comparator {
	// Collators keep internal buffers, so each Apply call gets its own.
	names := newNameComparator()

	var cmp comparator
	switch spec.Field {
	case FieldName:
		cmp = names
	case FieldKind:
		cmp = func(a, b models.DirectoryEntry) int {
			if r := kindRank(a.Kind) - kindRank(b.Kind); r != 0 {
				return r
			}
			return names(a, b)
		}
	case FieldSize:
		cmp = func(a, b models.DirectoryEntry) int {
			switch {
			case a.Size < b.Size:
				return -1
			case a.Size > b.Size:
				return 1
			}
			return names(a, b)
		}
	default:
		return nil
	}

	if spec.Direction == DirectionDescending {
		return func(a, b models.DirectoryEntry) int {
			return -cmp(a, b)
		}
	}
	return cmp
}

// kindRank puts files before directories under ascending order.
func kindRank(k models.Kind) int {
	if k == models.KindDirectory {
		return 1
	}
	return 0
}

func newNameComparator() comparator {
	c := collate.New(language.Und)
	return func(a, b models.DirectoryEntry) int {
		return c.CompareString(a.Name, b.Name)
	}
}
