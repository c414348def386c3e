// Package browser is the presentation layer: it binds a navigable location
// to the session state machine and turns session snapshots into views.
package browser

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fruitsalade/filebrowser/pkg/listing"
	"github.com/fruitsalade/filebrowser/pkg/route"
	"github.com/fruitsalade/filebrowser/pkg/session"
)

// Controller drives one session from user actions.
type Controller struct {
	sess *session.Session

	mu       sync.Mutex
	segments []string
	state    route.ViewState
	notFound bool
}

// New returns a controller positioned at /files with the default view.
func New(sess *session.Session) *Controller {
	return &Controller{sess: sess, state: route.DefaultViewState()}
}

// Session returns the underlying session.
func (c *Controller) Session() *session.Session {
	return c.sess
}

// Start probes for an existing session and opens raw.
func (c *Controller) Start(ctx context.Context, raw string) error {
	c.sess.Bootstrap(ctx)
	return c.Open(ctx, raw)
}

// Open navigates to a URL such as "/files/a/b?sort=size&dir=ascending".
// The root redirects to /files. Other paths produce the not-found view.
func (c *Controller) Open(ctx context.Context, raw string) error {
	loc, err := route.ParseLocation(raw)
	if err != nil {
		return fmt.Errorf("parse location %q: %w", raw, err)
	}
	if loc.Kind == route.KindRedirect {
		loc, err = route.ParseLocation(loc.RedirectTo)
		if err != nil {
			return err
		}
	}

	c.mu.Lock()
	if loc.Kind == route.KindNotFound {
		c.notFound = true
		c.mu.Unlock()
		return nil
	}
	c.notFound = false
	c.segments = loc.Segments
	c.state = loc.State
	c.mu.Unlock()

	c.sess.NavigateTo(ctx, loc.Segments)
	return nil
}

// Enter navigates into the child directory name.
func (c *Controller) Enter(ctx context.Context, name string) {
	c.mu.Lock()
	segs := route.Child(c.segments, name)
	c.segments = segs
	c.notFound = false
	c.mu.Unlock()
	c.sess.NavigateTo(ctx, segs)
}

// Up navigates to the parent directory.
func (c *Controller) Up(ctx context.Context) {
	c.mu.Lock()
	segs := route.Parent(c.segments)
	c.segments = segs
	c.notFound = false
	c.mu.Unlock()
	c.sess.NavigateTo(ctx, segs)
}

// Reload fetches the current directory again.
func (c *Controller) Reload(ctx context.Context) {
	c.mu.Lock()
	segs := slices.Clone(c.segments)
	c.mu.Unlock()
	c.sess.NavigateTo(ctx, segs)
}

// ToggleSort applies a click on the column for field.
func (c *Controller) ToggleSort(field listing.Field) {
	c.mu.Lock()
	c.state = c.state.ToggleSort(field)
	c.mu.Unlock()
}

// SetFilter replaces the filter text.
func (c *Controller) SetFilter(text string) {
	c.mu.Lock()
	c.state = c.state.WithFilter(text)
	c.mu.Unlock()
}

// Login submits credentials and, on success, loads the current location.
func (c *Controller) Login(ctx context.Context, username, password string) session.State {
	st := c.sess.Login(ctx, username, password)
	if !st.Authenticated() {
		return st
	}
	c.mu.Lock()
	segs := slices.Clone(c.segments)
	c.mu.Unlock()
	return c.sess.NavigateTo(ctx, segs)
}

// Logout ends the session.
func (c *Controller) Logout(ctx context.Context) session.State {
	return c.sess.Logoff(ctx)
}

// Location returns the navigable URL of the current view.
func (c *Controller) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return route.FilesURL(c.segments, c.state)
}

// ViewState returns the current sort and filter.
func (c *Controller) ViewState() route.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the current session snapshot.
func (c *Controller) View() View {
	st := c.sess.Snapshot()

	c.mu.Lock()
	vs := c.state
	segs := slices.Clone(c.segments)
	notFound := c.notFound
	c.mu.Unlock()

	v := View{
		Phase:    st.Phase,
		Loading:  st.Loading,
		Error:    st.Error,
		Location: route.FilesURL(segs, vs),
		Sort:     vs.Sort,
		Filter:   vs.Filter,
		Columns:  buildColumns(vs.Sort),
	}

	switch {
	case notFound:
		v.Notice = NoticeNotFound
		return v
	case !st.Authenticated():
		if st.Phase == session.PhaseUnauthenticated {
			v.Notice = NoticeLoginRequired
		}
		return v
	}

	v.Breadcrumbs = route.Breadcrumbs(segs, !st.PathInvalid)
	switch {
	case st.PathInvalid:
		v.Notice = NoticeInvalidPath
	case !st.Listing.Valid:
		// nothing loaded yet, or the last fetch failed
	default:
		entries := listing.Apply(st.Listing.Entries, vs.Sort, vs.Filter)
		v.Rows = buildRows(segs, entries, vs)
		switch {
		case st.Listing.Len() == 0:
			v.Notice = NoticeEmptyDir
		case len(v.Rows) == 0:
			v.Notice = NoticeNoMatches
		}
	}
	return v
}
