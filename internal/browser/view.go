package browser

import (
	"github.com/dustin/go-humanize"

	"github.com/fruitsalade/filebrowser/pkg/listing"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/route"
	"github.com/fruitsalade/filebrowser/pkg/session"
)

// Notices shown in place of the table.
const (
	NoticeNotFound      = "Page not found"
	NoticeInvalidPath   = "Invalid path: this location is not a directory"
	NoticeEmptyDir      = "This directory is empty"
	NoticeNoMatches     = "No entries match the filter"
	NoticeLoginRequired = "Please log in"
)

// Sort indicators per column.
const (
	IndicatorAscending  = "↑"
	IndicatorDescending = "↓"
	IndicatorUnsorted   = "↕"
)

// Column is one sortable table header.
type Column struct {
	Field     listing.Field
	Title     string
	Indicator string
}

// Row is one rendered entry.
type Row struct {
	Name string `json:"name"`
	Kind string `json:"type"`
	// Size is human readable; empty for directories.
	Size  string `json:"size"`
	Bytes int64  `json:"bytes"`
	// Link is the navigable URL for directories.
	Link string `json:"link,omitempty"`
}

// View is everything a front end needs to draw the browser.
type View struct {
	Phase       session.Phase
	Loading     bool
	Error       string
	Location    string
	Breadcrumbs []route.Crumb
	Sort        listing.SortSpec
	Filter      string
	Columns     []Column
	Rows        []Row
	// Notice replaces the table when set.
	Notice string
}

var columns = []struct {
	field listing.Field
	title string
}{
	{listing.FieldKind, "Type"},
	{listing.FieldName, "Name"},
	{listing.FieldSize, "Size"},
}

func buildColumns(spec listing.SortSpec) []Column {
	out := make([]Column, 0, len(columns))
	for _, c := range columns {
		ind := IndicatorUnsorted
		if spec.Field == c.field {
			if spec.Direction == listing.DirectionAscending {
				ind = IndicatorAscending
			} else {
				ind = IndicatorDescending
			}
		}
		out = append(out, Column{Field: c.field, Title: c.title, Indicator: ind})
	}
	return out
}

// FormatSize renders a byte count with SI units. Directories have no size.
func FormatSize(e models.DirectoryEntry) string {
	if e.IsDir() {
		return ""
	}
	return humanize.Bytes(uint64(e.Size))
}

func buildRows(path []string, entries []models.DirectoryEntry, vs route.ViewState) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		r := Row{Name: e.Name, Kind: string(e.Kind), Size: FormatSize(e), Bytes: e.Size}
		if e.IsDir() {
			r.Link = route.FilesURL(route.Child(path, e.Name), vs)
		}
		rows = append(rows, r)
	}
	return rows
}
