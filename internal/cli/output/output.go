// Package output renders browser views as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/fruitsalade/filebrowser/internal/browser"
	"github.com/fruitsalade/filebrowser/pkg/route"
)

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

// PrintJSON writes data as indented JSON.
func PrintJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// listingJSON is the JSON shape of a rendered view.
type listingJSON struct {
	Location string        `json:"location"`
	Sort     string        `json:"sort"`
	Dir      string        `json:"dir"`
	Filter   string        `json:"filter"`
	Notice   string        `json:"notice,omitempty"`
	Error    string        `json:"error,omitempty"`
	Entries  []browser.Row `json:"entries"`
}

// PrintView writes v in the given format.
func PrintView(w io.Writer, v browser.View, format Format) error {
	if format == FormatJSON {
		rows := v.Rows
		if rows == nil {
			rows = []browser.Row{}
		}
		return PrintJSON(w, listingJSON{
			Location: v.Location,
			Sort:     string(v.Sort.Field),
			Dir:      string(v.Sort.Direction),
			Filter:   v.Filter,
			Notice:   v.Notice,
			Error:    v.Error,
			Entries:  rows,
		})
	}

	if len(v.Breadcrumbs) > 0 {
		fmt.Fprintln(w, Breadcrumbs(v.Breadcrumbs))
	}
	if v.Filter != "" {
		fmt.Fprintf(w, "Filter: %q\n", v.Filter)
	}
	if v.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", v.Error)
	}
	if v.Notice != "" && len(v.Rows) == 0 {
		fmt.Fprintln(w, v.Notice)
		return nil
	}
	if len(v.Rows) == 0 {
		return nil
	}
	return PrintTable(w, v)
}

// Breadcrumbs renders the trail as "Home / a / b".
func Breadcrumbs(crumbs []route.Crumb) string {
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	return strings.Join(names, " / ")
}

// Headers returns the column titles with their sort indicators.
func Headers(v browser.View) []string {
	out := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = c.Title + " " + c.Indicator
	}
	return out
}

// PrintTable writes the rows of v as a borderless table.
func PrintTable(w io.Writer, v browser.View) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(Headers(v))

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, r := range v.Rows {
		name := r.Name
		if r.Link != "" {
			name += "/"
		}
		table.Append([]string{r.Kind, name, r.Size})
	}

	table.Render()
	return nil
}
