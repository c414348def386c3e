// Package session is the authentication and navigation state machine of
// the file browser. All mutation goes through Bootstrap, Login, Logoff and
// NavigateTo; observers read snapshots or subscribe to them.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/events"
	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/pkg/client"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/route"
)

// API is the remote collaborator. *client.Client implements it.
type API interface {
	ListDirectory(ctx context.Context, segments []string) ([]models.DirectoryEntry, error)
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

var _ API = (*client.Client)(nil)

// Session owns the state of one browsing session.
type Session struct {
	api API
	log *zap.Logger

	mu       sync.Mutex
	state    State
	inflight int
	navSeq   uint64

	updates *events.Broadcaster[State]
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default is the global logger named
// "session".
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New returns a session in the initializing phase with loading set, as it
// is before Bootstrap completes.
func New(api API, opts ...Option) *Session {
	s := &Session{
		api:     api,
		state:   State{Phase: PhaseInitializing, Loading: true},
		updates: events.NewBroadcaster[State](events.DefaultBuffer),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logging.Named("session")
	}
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel receiving a snapshot after every change.
// Snapshots are dropped for subscribers that fall behind; Snapshot always
// has the latest.
func (s *Session) Subscribe() <-chan State {
	return s.updates.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Session) Unsubscribe(ch <-chan State) {
	s.updates.Unsubscribe(ch)
}

// Close closes all subscriber channels.
func (s *Session) Close() {
	s.updates.Close()
}

// begin marks an operation outstanding. Callers hold mu.
func (s *Session) begin(clearError bool) {
	s.inflight++
	s.state.Loading = true
	if clearError {
		s.state.Error = ""
	}
}

// end marks an operation finished and publishes the result. Callers hold mu.
func (s *Session) end() State {
	s.inflight--
	if s.inflight < 0 {
		s.inflight = 0
	}
	s.state.Loading = s.inflight > 0
	return s.publish()
}

func (s *Session) publish() State {
	snap := s.state.clone()
	s.updates.Publish(snap)
	return snap.clone()
}

func (s *Session) setPhase(p Phase) {
	if s.state.Phase == p {
		return
	}
	s.log.Info("session phase changed",
		zap.Stringer("from", s.state.Phase), zap.Stringer("to", p))
	metrics.RecordSessionTransition(s.state.Phase.String(), p.String())
	s.state.Phase = p
	if p != PhaseAuthenticated {
		s.state.Path = nil
		s.state.Listing = models.InvalidListing()
		s.state.PathInvalid = false
	}
}

// Bootstrap probes the API for an existing session by listing the root.
// Any failure other than success leaves the session unauthenticated
// without an error message.
func (s *Session) Bootstrap(ctx context.Context) State {
	s.mu.Lock()
	s.begin(false)
	s.publish()
	s.mu.Unlock()

	_, err := s.api.ListDirectory(ctx, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.setPhase(PhaseAuthenticated)
	case client.IsUnauthorized(err):
		s.setPhase(PhaseUnauthenticated)
	default:
		s.log.Warn("session probe failed", zap.Error(err))
		s.setPhase(PhaseUnauthenticated)
	}
	return s.end()
}

// Login submits credentials. Rejected credentials and other failures set
// distinct error messages and leave the phase unchanged.
func (s *Session) Login(ctx context.Context, username, password string) State {
	s.mu.Lock()
	s.begin(true)
	s.publish()
	s.mu.Unlock()

	err := s.api.Login(ctx, username, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.state.Error = ""
		s.setPhase(PhaseAuthenticated)
	case client.IsUnauthorized(err):
		s.log.Info("login rejected", zap.String("username", username))
		s.state.Error = MsgInvalidCredentials
	default:
		s.log.Warn("login failed", zap.String("username", username), zap.Error(err))
		s.state.Error = MsgLoginFailed
	}
	return s.end()
}

// Logoff ends the session. On failure the phase is unchanged and an error
// message is set.
func (s *Session) Logoff(ctx context.Context) State {
	s.mu.Lock()
	s.begin(true)
	s.publish()
	s.mu.Unlock()

	err := s.api.Logout(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("logout failed", zap.Error(err))
		s.state.Error = MsgLogoutFailed
		return s.end()
	}
	s.navSeq++ // responses to earlier navigations no longer apply
	s.setPhase(PhaseUnauthenticated)
	return s.end()
}

// NavigateTo loads the directory at segments. Empty segments are dropped.
// It does nothing unless the session is authenticated.
//
// When navigations overlap, only the most recently started one updates the
// listing; earlier responses are discarded when they arrive.
func (s *Session) NavigateTo(ctx context.Context, segments []string) State {
	segs := route.SplitSegments(route.JoinSegments(segments))

	s.mu.Lock()
	if s.state.Phase != PhaseAuthenticated {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap
	}
	s.navSeq++
	seq := s.navSeq
	s.state.Path = segs
	s.begin(true)
	s.publish()
	s.mu.Unlock()

	entries, err := s.api.ListDirectory(ctx, segs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.navSeq {
		metrics.RecordStaleNavigation()
		s.log.Debug("discarding stale listing",
			zap.String("path", route.JoinSegments(segs)), zap.Uint64("seq", seq))
		return s.end()
	}

	switch {
	case err == nil:
		s.state.Listing = models.NewListing(entries)
		s.state.PathInvalid = false
	case client.IsNotFound(err):
		s.state.Listing = models.InvalidListing()
		s.state.PathInvalid = true
	case client.IsUnauthorized(err):
		s.log.Info("session expired while browsing")
		s.setPhase(PhaseUnauthenticated)
	default:
		s.log.Warn("listing failed",
			zap.String("path", route.JoinSegments(segs)), zap.Error(err))
		s.state.Listing = models.InvalidListing()
		s.state.PathInvalid = false
		s.state.Error = MsgFetchFailed
	}
	return s.end()
}
