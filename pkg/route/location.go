package route

import (
	"net/url"
	"strings"
)

// FilesRoot is the navigable prefix of the file browser.
const FilesRoot = "/files"

// Kind classifies a location.
type Kind int

const (
	// KindFiles is /files or /files/<segments>.
	KindFiles Kind = iota
	// KindRedirect is the root, which redirects to FilesRoot.
	KindRedirect
	// KindNotFound is any other path.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindFiles:
		return "files"
	case KindRedirect:
		return "redirect"
	default:
		return "not-found"
	}
}

// Location is a parsed navigable URL.
type Location struct {
	Kind     Kind
	Segments []string
	State    ViewState
	// RedirectTo is set for KindRedirect.
	RedirectTo string
}

// ParseLocation parses a navigable URL such as
// "/files/docs/2024?sort=size&dir=descending&filter=pdf".
// Only the path and query are considered; scheme and host are ignored.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, err
	}

	p := u.EscapedPath()
	switch {
	case p == "" || p == "/":
		return Location{Kind: KindRedirect, RedirectTo: FilesRoot}, nil
	case p == FilesRoot || strings.HasPrefix(p, FilesRoot+"/"):
		segs, err := splitEscaped(strings.TrimPrefix(p, FilesRoot))
		if err != nil {
			return Location{}, err
		}
		return Location{
			Kind:     KindFiles,
			Segments: segs,
			State:    ParseQuery(u.Query()),
		}, nil
	default:
		return Location{Kind: KindNotFound}, nil
	}
}

// String renders the location back into a navigable URL.
func (l Location) String() string {
	switch l.Kind {
	case KindFiles:
		return FilesURL(l.Segments, l.State)
	case KindRedirect:
		return l.RedirectTo
	default:
		return ""
	}
}

// SplitSegments splits a catch-all path on "/" and drops empty segments
// produced by leading, trailing or repeated slashes.
func SplitSegments(p string) []string {
	parts := strings.Split(p, "/")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func splitEscaped(p string) ([]string, error) {
	segs := SplitSegments(p)
	for i, s := range segs {
		dec, err := url.PathUnescape(s)
		if err != nil {
			return nil, err
		}
		segs[i] = dec
	}
	return SplitSegments(strings.Join(segs, "/")), nil
}

// JoinSegments joins segments with "/", skipping empty ones. The result has
// no leading or trailing slash; the root is "".
func JoinSegments(segments []string) string {
	return strings.Join(SplitSegments(strings.Join(segments, "/")), "/")
}

// Parent returns the segments of the enclosing directory.
func Parent(segments []string) []string {
	if len(segments) == 0 {
		return nil
	}
	return append([]string(nil), segments[:len(segments)-1]...)
}

// Child returns the segments of name inside segments.
func Child(segments []string, name string) []string {
	out := make([]string, 0, len(segments)+1)
	out = append(out, segments...)
	return append(out, name)
}

// FilesPath returns the escaped path for segments, without a query.
func FilesPath(segments []string) string {
	segs := SplitSegments(strings.Join(segments, "/"))
	if len(segs) == 0 {
		return FilesRoot
	}
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = url.PathEscape(s)
	}
	return FilesRoot + "/" + strings.Join(escaped, "/")
}

// FilesURL returns the navigable URL for segments with the given state.
func FilesURL(segments []string, vs ViewState) string {
	return FilesPath(segments) + "?" + vs.Encode()
}
