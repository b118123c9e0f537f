package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("token expired")
	ErrMalformedToken   = errors.New("malformed token")
)

// Claims are the fields the backend puts in its tokens
type Claims struct {
	ID    models.ID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	jwt.RegisteredClaims
}

// LogoutBackend revokes the token server side
type LogoutBackend interface {
	Logout(ctx context.Context) error
}

// Manager owns the current bearer token. Tokens are decoded without
// verification; the backend verifies them on every request.
type Manager struct {
	store     storage.Store
	publisher events.Publisher
	clock     clockwork.Clock
	parser    *jwt.Parser

	mu      sync.RWMutex
	token   string
	claims  *Claims
	backend LogoutBackend
}

func NewManager(store storage.Store, publisher events.Publisher, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		store:     store,
		publisher: publisher,
		clock:     clock,
		parser:    jwt.NewParser(),
	}
}

// SetBackend wires the backend used to revoke tokens on logout
func (m *Manager) SetBackend(backend LogoutBackend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend = backend
}

// Decode parses token claims and rejects expired tokens
func (m *Manager) Decode(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := m.parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ID.IsZero() {
		return nil, fmt.Errorf("%w: missing id claim", ErrMalformedToken)
	}
	if claims.ExpiresAt != nil && !m.clock.Now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

// Login installs token as the current session and persists it
func (m *Manager) Login(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, storage.TokenKey, token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.claims = claims
	m.mu.Unlock()

	log.Info().Str("user_id", claims.ID.String()).Msg("logged in")
	m.publishChanged(claims)
	return userFromClaims(claims), nil
}

// Restore reloads a persisted token. Malformed and expired tokens are
// dropped from storage.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	token, ok, err := m.store.Get(ctx, storage.TokenKey)
	if err != nil {
		return false, fmt.Errorf("failed to load token: %w", err)
	}
	if !ok || token == "" {
		return false, nil
	}

	claims, err := m.Decode(token)
	if err != nil {
		log.Info().Err(err).Msg("discarding persisted token")
		if delErr := m.store.Delete(ctx, storage.TokenKey); delErr != nil {
			log.Warn().Err(delErr).Msg("failed to delete persisted token")
		}
		return false, nil
	}

	m.mu.Lock()
	m.token = token
	m.claims = claims
	m.mu.Unlock()

	log.Debug().Str("user_id", claims.ID.String()).Msg("session restored")
	return true, nil
}

// Logout revokes the token best effort and forgets it locally
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	backend := m.backend
	loggedIn := m.token != ""
	m.mu.RUnlock()

	if loggedIn && backend != nil {
		if err := backend.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("backend logout failed")
		}
	}

	m.mu.Lock()
	m.token = ""
	m.claims = nil
	m.mu.Unlock()

	if err := m.store.Delete(ctx, storage.TokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	m.publishChanged(nil)
	return nil
}

// Headers implements clients.HeaderProvider
func (m *Manager) Headers(context.Context) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + m.token}
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns the logged-in user, if any
func (m *Manager) User() (*models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.claims == nil {
		return nil, false
	}
	if m.claims.ExpiresAt != nil && !m.clock.Now().Before(m.claims.ExpiresAt.Time) {
		return nil, false
	}
	return userFromClaims(m.claims), true
}

// RequireUser returns the logged-in user or asks the UI to log in
func (m *Manager) RequireUser() (*models.User, error) {
	if user, ok := m.User(); ok {
		return user, nil
	}
	m.publish(events.EventTypeAuthRequired, events.AuthRequiredPayload{Reason: "login required"})
	return nil, ErrNotAuthenticated
}

func (m *Manager) publishChanged(claims *Claims) {
	payload := events.SessionChangedPayload{LoggedIn: claims != nil}
	if claims != nil {
		payload.UserID = claims.ID.String()
		payload.Email = claims.Email
	}
	m.publish(events.EventTypeSessionChanged, payload)
}

func (m *Manager) publish(typ events.EventType, payload any) {
	if m.publisher == nil {
		return
	}
	ev, err := events.New(typ, "", m.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build session event")
		return
	}
	m.publisher.Publish(ev)
}

func userFromClaims(c *Claims) *models.User {
	return &models.User{ID: c.ID, Email: c.Email, Name: c.Name}
}

// ExpiresAt returns the token expiry, zero if the token has none
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.claims == nil || m.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return m.claims.ExpiresAt.Time
}
