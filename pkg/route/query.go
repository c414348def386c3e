// Package route maps navigable browser locations to path segments and
// sort/filter state, and back.
package route

import (
	"net/url"

	"github.com/fruitsalade/filebrowser/pkg/listing"
)

// Query parameter names.
const (
	ParamSort   = "sort"
	ParamDir    = "dir"
	ParamFilter = "filter"
)

// ViewState is the sort/filter state carried in a location's query.
type ViewState struct {
	Sort   listing.SortSpec
	Filter string
}

// DefaultViewState is name ascending with no filter.
func DefaultViewState() ViewState {
	return ViewState{Sort: listing.DefaultSort()}
}

// ParseQuery reads the sort/filter state from query parameters.
//
// With neither sort nor dir present the default sort applies. With both
// present and valid they are adopted verbatim. Anything else (only one of
// the two, or unknown values) leaves the listing unsorted. filter is read
// verbatim.
func ParseQuery(q url.Values) ViewState {
	vs := ViewState{Filter: q.Get(ParamFilter)}

	_, hasSort := q[ParamSort]
	_, hasDir := q[ParamDir]
	switch {
	case !hasSort && !hasDir:
		vs.Sort = listing.DefaultSort()
	case hasSort && hasDir:
		field, ferr := listing.ParseField(q.Get(ParamSort))
		dir, derr := listing.ParseDirection(q.Get(ParamDir))
		if ferr == nil && derr == nil {
			vs.Sort = listing.SortSpec{Field: field, Direction: dir}
		}
	}
	return vs
}

// Values serializes the state. All three parameters are always present so
// that ParseQuery(vs.Values()) reproduces vs exactly.
func (vs ViewState) Values() url.Values {
	return url.Values{
		ParamSort:   {string(vs.Sort.Field)},
		ParamDir:    {string(vs.Sort.Direction)},
		ParamFilter: {vs.Filter},
	}
}

// Encode returns the state as an encoded query string.
func (vs ViewState) Encode() string {
	return vs.Values().Encode()
}

// ToggleSort returns the state after a click on the column for field.
func (vs ViewState) ToggleSort(field listing.Field) ViewState {
	vs.Sort = vs.Sort.Toggle(field)
	return vs
}

// WithFilter returns the state with a new filter text.
func (vs ViewState) WithFilter(filter string) ViewState {
	vs.Filter = filter
	return vs
}
