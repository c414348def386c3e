package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
)

const issuer = "filebrowser"

// Default session lifetimes.
const (
	DefaultInactivityTimeout  = 10 * time.Minute
	DefaultMaxSessionDuration = 8 * time.Hour
)

var (
	// ErrSessionNotFound is returned for unknown, deleted or unparsable tokens.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the inactivity or maximum lifetime has passed.
	ErrSessionExpired = errors.New("session expired")
)

// Session is a server-side login session.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	LastSeen  time.Time
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Secret             []byte
	InactivityTimeout  time.Duration
	MaxSessionDuration time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Manager issues session tokens and tracks their sessions.
// Tokens are HS256 JWTs whose jti names the server-side session, so a
// deleted session cannot be revived with a still-valid signature.
type Manager struct {
	secret     []byte
	inactivity time.Duration
	maxAge     time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = DefaultInactivityTimeout
	}
	if cfg.MaxSessionDuration <= 0 {
		cfg.MaxSessionDuration = DefaultMaxSessionDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		secret:     cfg.Secret,
		inactivity: cfg.InactivityTimeout,
		maxAge:     cfg.MaxSessionDuration,
		now:        cfg.Now,
		sessions:   make(map[string]*Session),
	}, nil
}

// GenerateSecret returns a random 32-byte signing key.
func GenerateSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return b, nil
}

// Create starts a session for username and returns its signed token.
func (m *Manager) Create(username string) (string, Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		LastSeen:  now,
	}

	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(count)
	logging.Debug("session created", zap.String("username", username), zap.String("session_id", s.ID))
	return token, *s, nil
}

// Validate checks a token, refreshes the session's activity and returns it.
func (m *Manager) Validate(token string) (Session, error) {
	claims, err := m.parse(token, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[claims.ID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	now := m.now()
	if m.expired(s, now) {
		delete(m.sessions, s.ID)
		metrics.SetActiveSessions(len(m.sessions))
		return Session{}, ErrSessionExpired
	}
	s.LastSeen = now
	return *s, nil
}

// Delete ends the session named by token. Expired tokens are accepted.
func (m *Manager) Delete(token string) error {
	claims, err := m.parse(token, false)
	if err != nil {
		return ErrSessionNotFound
	}
	if !m.remove(claims.ID) {
		return ErrSessionNotFound
	}
	return nil
}

// Expiry returns when s ends if it sees no further activity.
func (m *Manager) Expiry(s Session) time.Time {
	idle := s.LastSeen.Add(m.inactivity)
	hard := s.CreatedAt.Add(m.maxAge)
	if hard.Before(idle) {
		return hard
	}
	return idle
}

// Cleanup removes expired sessions and returns how many were removed.
func (m *Manager) Cleanup() int {
	now := m.now()

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(count)
	if removed > 0 {
		logging.Debug("expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return !now.Before(m.Expiry(*s))
}

func (m *Manager) remove(id string) bool {
	if id == "" {
		return false
	}
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	if ok {
		metrics.SetActiveSessions(count)
	}
	return ok
}

func (m *Manager) parse(token string, validate bool) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return claims, err
	}
	if claims.ID == "" {
		return claims, fmt.Errorf("token has no session id")
	}
	return claims, nil
}
