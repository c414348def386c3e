package route

// Crumb is one link in the breadcrumb trail.
type Crumb struct {
	Name string
	Path string
	// Current marks the last crumb, which is not a link.
	Current bool
}

// HomeCrumb is the label of the root crumb.
const HomeCrumb = "Home"

// Breadcrumbs returns the trail for segments. Only the Home crumb is shown
// when the path is not a valid directory.
func Breadcrumbs(segments []string, valid bool) []Crumb {
	segs := SplitSegments(JoinSegments(segments))
	crumbs := []Crumb{{Name: HomeCrumb, Path: FilesRoot, Current: len(segs) == 0 || !valid}}
	if !valid {
		return crumbs
	}
	for i, s := range segs {
		crumbs = append(crumbs, Crumb{
			Name:    s,
			Path:    FilesPath(segs[:i+1]),
			Current: i == len(segs)-1,
		})
	}
	return crumbs
}
