package session

import (
	"slices"

	"github.com/fruitsalade/filebrowser/pkg/models"
)

// Phase is the authentication phase of a session.
type Phase int

const (
	// PhaseInitializing is the phase before Bootstrap has finished.
	PhaseInitializing Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// User-visible error messages.
const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgLoginFailed        = "Login failed"
	MsgLogoutFailed       = "Logout failed"
	MsgFetchFailed        = "Failed to fetch files"
)

// State is a snapshot of a session. Snapshots are values: mutating one does
// not affect the session.
type State struct {
	Phase Phase
	// Loading is true while any operation is outstanding.
	Loading bool
	// Error is the message of the most recent failed operation, or "".
	Error string
	// Path is the most recently requested directory.
	Path []string
	// Listing is the current directory, or the invalid sentinel.
	Listing models.Listing
	// PathInvalid is set when Path does not resolve to a directory.
	PathInvalid bool
}

// Authenticated reports whether the session is logged in.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

func (s State) clone() State {
	s.Path = slices.Clone(s.Path)
	return s
}
