package listing

import (
	"slices"
	"testing"

	"github.com/fruitsalade/filebrowser/pkg/models"
)

func file(name string, size int64) models.DirectoryEntry {
	return models.DirectoryEntry{Name: name, Kind: models.KindFile, Size: size}
}

func dir(name string) models.DirectoryEntry {
	return models.DirectoryEntry{Name: name, Kind: models.KindDirectory}
}

func names(entries []models.DirectoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestApplyEmpty(t *testing.T) {
	got := Apply(nil, DefaultSort(), "")
	if len(got) != 0 {
		t.Fatalf("Apply(nil) returned %d entries", len(got))
	}
	if got == nil {
		t.Error("Apply(nil) should return an empty, non-nil slice")
	}
}

func TestApplySorting(t *testing.T) {
	asc := func(f Field) SortSpec { return SortSpec{Field: f, Direction: DirectionAscending} }
	desc := func(f Field) SortSpec { return SortSpec{Field: f, Direction: DirectionDescending} }

	sameSize := []models.DirectoryEntry{file("b", 99), file("c", 99), file("a", 99)}
	mixed := []models.DirectoryEntry{dir("b"), file("c", 0), file("a", 99)}
	sizes := []models.DirectoryEntry{file("b", 9991), file("c", 9991), file("a", 9992)}

	tests := []struct {
		name    string
		entries []models.DirectoryEntry
		spec    SortSpec
		want    []string
	}{
		{"name ascending", sameSize, asc(FieldName), []string{"a", "b", "c"}},
		{"name descending", sameSize, desc(FieldName), []string{"c", "b", "a"}},
		{"kind ascending puts files first", mixed, asc(FieldKind), []string{"a", "c", "b"}},
		{"kind descending negates tie-break", mixed, desc(FieldKind), []string{"b", "c", "a"}},
		{"size ascending ties by name", sizes, asc(FieldSize), []string{"b", "c", "a"}},
		{"size descending ties by name reversed", sizes, desc(FieldSize), []string{"a", "c", "b"}},
		{"unsorted keeps input order", sizes, Unsorted(), []string{"b", "c", "a"}},
		{
			"case variants sort adjacently",
			[]models.DirectoryEntry{file("AA", 99), file("aa", 99), file("aA", 99)},
			asc(FieldName),
			[]string{"aa", "aA", "AA"},
		},
		{
			"locale order is not byte order",
			[]models.DirectoryEntry{file("b", 1), file("B", 1), file("a", 1), file("Z", 1)},
			asc(FieldName),
			[]string{"a", "b", "B", "Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Apply(tt.entries, tt.spec, ""))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Apply(%s) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestApplyFiltering(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.DirectoryEntry
		filter  string
		want    []string
	}{
		{
			"keeps only matching names",
			[]models.DirectoryEntry{file("b", 9991), dir("c"), file("a", 9992)},
			"a",
			[]string{"a"},
		},
		{
			"ignores case",
			[]models.DirectoryEntry{file("A", 1), file("a", 2), file("B", 3)},
			"a",
			[]string{"A", "a"},
		},
		{
			"upper-case filter matches lower-case names",
			[]models.DirectoryEntry{file("readme.md", 1), file("main.go", 2)},
			"README",
			[]string{"readme.md"},
		},
		{
			"unicode lower-casing",
			[]models.DirectoryEntry{file("ÉTÉ.txt", 1), file("hiver.txt", 2)},
			"été",
			[]string{"ÉTÉ.txt"},
		},
		{
			"empty filter keeps everything in order",
			[]models.DirectoryEntry{file("z", 1), file("y", 2), file("x", 3)},
			"",
			[]string{"z", "y", "x"},
		},
		{
			"no match",
			[]models.DirectoryEntry{file("z", 1)},
			"q",
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Apply(tt.entries, Unsorted(), tt.filter))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Apply(filter=%q) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestApplySortAndFilter(t *testing.T) {
	entries := []models.DirectoryEntry{dir("ab"), dir("c"), file("aa", 9992)}

	tests := []struct {
		spec SortSpec
		want []string
	}{
		{SortSpec{FieldName, DirectionAscending}, []string{"aa", "ab"}},
		{SortSpec{FieldName, DirectionDescending}, []string{"ab", "aa"}},
		{SortSpec{FieldKind, DirectionAscending}, []string{"aa", "ab"}},
		{SortSpec{FieldKind, DirectionDescending}, []string{"ab", "aa"}},
		{SortSpec{FieldSize, DirectionAscending}, []string{"ab", "aa"}},
		{SortSpec{FieldSize, DirectionDescending}, []string{"aa", "ab"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec.String(), func(t *testing.T) {
			got := names(Apply(entries, tt.spec, "a"))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Apply(%s, a) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestApplyProperties(t *testing.T) {
	entries := []models.DirectoryEntry{
		file("Zeta", 10), dir("alpha"), file("beta", 10), dir("Gamma"),
		file("delta", 3), file("Alphabet", 3), dir("épique"), file("eta", 0),
	}

	t.Run("does not modify input", func(t *testing.T) {
		before := slices.Clone(entries)
		Apply(entries, SortSpec{FieldSize, DirectionDescending}, "a")
		if !slices.Equal(before, entries) {
			t.Error("Apply modified its input")
		}
	})

	t.Run("name descending is the reverse of ascending", func(t *testing.T) {
		asc := names(Apply(entries, SortSpec{FieldName, DirectionAscending}, ""))
		desc := names(Apply(entries, SortSpec{FieldName, DirectionDescending}, ""))
		slices.Reverse(desc)
		if !slices.Equal(asc, desc) {
			t.Errorf("reversed descending %v != ascending %v", desc, asc)
		}
	})

	t.Run("filter is idempotent", func(t *testing.T) {
		once := Apply(entries, Unsorted(), "a")
		twice := Apply(once, Unsorted(), "a")
		if !slices.Equal(once, twice) {
			t.Errorf("filter not idempotent: %v vs %v", names(once), names(twice))
		}
	})

	t.Run("sort is idempotent", func(t *testing.T) {
		for _, f := range []Field{FieldName, FieldKind, FieldSize} {
			spec := SortSpec{f, DirectionDescending}
			once := Apply(entries, spec, "")
			twice := Apply(once, spec, "")
			if !slices.Equal(once, twice) {
				t.Errorf("%s not idempotent: %v vs %v", spec, names(once), names(twice))
			}
		}
	})

	t.Run("equal keys tie-break by name with direction", func(t *testing.T) {
		byName := newNameComparator()
		for _, dirn := range []Direction{DirectionAscending, DirectionDescending} {
			for _, f := range []Field{FieldKind, FieldSize} {
				got := Apply(entries, SortSpec{f, dirn}, "")
				for i := 1; i < len(got); i++ {
					a, b := got[i-1], got[i]
					if (f == FieldSize && a.Size != b.Size) || (f == FieldKind && a.Kind != b.Kind) {
						continue
					}
					c := byName(a, b)
					if (dirn == DirectionAscending && c > 0) || (dirn == DirectionDescending && c < 0) {
						t.Errorf("%s %s: tie %q/%q out of name order", f, dirn, a.Name, b.Name)
					}
				}
			}
		}
	})
}

func TestApplyInvalidSpecKeepsOrder(t *testing.T) {
	entries := []models.DirectoryEntry{file("b", 2), dir("c"), file("a", 1)}
	for _, spec := range []SortSpec{
		{Field: FieldName},
		{Direction: DirectionAscending},
		{Field: "date", Direction: DirectionAscending},
		{Field: FieldSize, Direction: "up"},
	} {
		if spec.Valid() {
			t.Fatalf("%+v should be invalid", spec)
		}
		got := names(Apply(entries, spec, ""))
		if !slices.Equal(got, []string{"b", "c", "a"}) {
			t.Errorf("Apply(%+v) = %v, want original order", spec, got)
		}
	}
}
