// Package listing implements client-side sorting and filtering of directory
// listings.
package listing

import "fmt"

// Field selects the column a listing is sorted by.
type Field string

const (
	FieldNone Field = ""
	FieldName Field = "name"
	FieldKind Field = "kind"
	FieldSize Field = "size"
)

// ParseField parses a sortable field name. The empty field is not accepted.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldName, FieldKind, FieldSize:
		return f, nil
	default:
		return FieldNone, fmt.Errorf("unknown sort field %q", s)
	}
}

// Direction is the sort order.
type Direction string

const (
	DirectionNone       Direction = ""
	DirectionAscending  Direction = "ascending"
	DirectionDescending Direction = "descending"
)

// ParseDirection parses a sort direction. The empty direction is not accepted.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionAscending, DirectionDescending:
		return d, nil
	default:
		return DirectionNone, fmt.Errorf("unknown sort direction %q", s)
	}
}

// SortSpec is the (field, direction) pair controlling entry order.
// Field and Direction are either both empty (unsorted) or both set.
type SortSpec struct {
	Field     Field
	Direction Direction
}

// DefaultSort is name ascending.
func DefaultSort() SortSpec {
	return SortSpec{Field: FieldName, Direction: DirectionAscending}
}

// Unsorted keeps entries in the order the server returned them.
func Unsorted() SortSpec {
	return SortSpec{}
}

// IsUnsorted reports whether s leaves entries in their original order.
func (s SortSpec) IsUnsorted() bool {
	return s.Field == FieldNone
}

// Valid reports whether s is either fully unsorted or a known field with a
// known direction.
func (s SortSpec) Valid() bool {
	if s.Field == FieldNone || s.Direction == DirectionNone {
		return s.Field == FieldNone && s.Direction == DirectionNone
	}
	if _, err := ParseField(string(s.Field)); err != nil {
		return false
	}
	_, err := ParseDirection(string(s.Direction))
	return err == nil
}

// Toggle returns the spec after the user clicks the column for field.
// A new column starts ascending; the active column cycles
// ascending -> descending -> unsorted.
func (s SortSpec) Toggle(field Field) SortSpec {
	if s.Field != field {
		return SortSpec{Field: field, Direction: DirectionAscending}
	}
	if s.Direction == DirectionAscending {
		return SortSpec{Field: field, Direction: DirectionDescending}
	}
	return Unsorted()
}

func (s SortSpec) String() string {
	if s.IsUnsorted() {
		return "unsorted"
	}
	return string(s.Field) + " " + string(s.Direction)
}
