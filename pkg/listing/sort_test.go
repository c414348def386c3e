package listing

import "testing"

func TestToggle(t *testing.T) {
	tests := []struct {
		name  string
		from  SortSpec
		field Field
		want  SortSpec
	}{
		{"unsorted to ascending", Unsorted(), FieldSize, SortSpec{FieldSize, DirectionAscending}},
		{"ascending to descending", SortSpec{FieldSize, DirectionAscending}, FieldSize, SortSpec{FieldSize, DirectionDescending}},
		{"descending to unsorted", SortSpec{FieldSize, DirectionDescending}, FieldSize, Unsorted()},
		{"other column restarts ascending", SortSpec{FieldName, DirectionDescending}, FieldKind, SortSpec{FieldKind, DirectionAscending}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Toggle(tt.field); got != tt.want {
				t.Errorf("Toggle(%s) from %s = %s, want %s", tt.field, tt.from, got, tt.want)
			}
		})
	}

	// Three clicks on the same column return to where it started.
	spec := Unsorted()
	for i := 0; i < 3; i++ {
		spec = spec.Toggle(FieldName)
	}
	if spec != Unsorted() {
		t.Errorf("three toggles = %s, want unsorted", spec)
	}
}

func TestSortSpecValid(t *testing.T) {
	tests := []struct {
		spec SortSpec
		want bool
	}{
		{Unsorted(), true},
		{DefaultSort(), true},
		{SortSpec{FieldKind, DirectionDescending}, true},
		{SortSpec{FieldName, DirectionNone}, false},
		{SortSpec{FieldNone, DirectionAscending}, false},
		{SortSpec{Field("type"), DirectionAscending}, false},
		{SortSpec{FieldName, Direction("asc")}, false},
	}
	for _, tt := range tests {
		if got := tt.spec.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestParseFieldAndDirection(t *testing.T) {
	for _, s := range []string{"name", "kind", "size"} {
		if _, err := ParseField(s); err != nil {
			t.Errorf("ParseField(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "type", "Name"} {
		if _, err := ParseField(s); err == nil {
			t.Errorf("ParseField(%q) should fail", s)
		}
	}
	for _, s := range []string{"ascending", "descending"} {
		if _, err := ParseDirection(s); err != nil {
			t.Errorf("ParseDirection(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "asc", "up"} {
		if _, err := ParseDirection(s); err == nil {
			t.Errorf("ParseDirection(%q) should fail", s)
		}
	}
}
