package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, id any, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"id":    id,
		"email": "an@example.com",
		"name":  "An",
		"exp":   exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fakeBackend struct {
	calls int
	err   error
}

func (f *fakeBackend) Logout(context.Context) error {
	f.calls++
	return f.err
}

func newManager(t *testing.T) (*Manager, *storage.MemoryStore, *events.Subscription) {
	t.Helper()
	store := storage.NewMemoryStore()
	bus := events.NewBus(16)
	t.Cleanup(bus.Close)
	return NewManager(store, bus, clockwork.NewFakeClockAt(now)), store, bus.Subscribe("")
}

func TestLoginPersistsAndExposesHeaders(t *testing.T) {
	m, store, sub := newManager(t)
	ctx := context.Background()
	token := signToken(t, 7, now.Add(time.Hour))

	assert.Nil(t, m.Headers(ctx))

	user, err := m.Login(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.ID("7"), user.ID)
	assert.Equal(t, "an@example.com", user.Email)

	assert.Equal(t, map[string]string{"Authorization": "Bearer " + token}, m.Headers(ctx))
	stored, ok, _ := store.Get(ctx, storage.TokenKey)
	assert.True(t, ok)
	assert.Equal(t, token, stored)

	ev := <-sub.C
	assert.Equal(t, events.EventTypeSessionChanged, ev.Type)
	var payload events.SessionChangedPayload
	require.NoError(t, ev.Decode(&payload))
	assert.True(t, payload.LoggedIn)
	assert.Equal(t, "7", payload.UserID)
}

func TestLoginRejectsBadTokens(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	_, err := m.Login(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = m.Login(ctx, signToken(t, 7, now.Add(-time.Minute)))
	assert.ErrorIs(t, err, ErrTokenExpired)

	assert.Equal(t, "", m.Token())
}

func TestRestore(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()

	ok, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	token := signToken(t, "u-1", now.Add(time.Hour))
	require.NoError(t, store.Set(ctx, storage.TokenKey, token))
	ok, err = m.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	user, ok := m.User()
	require.True(t, ok)
	assert.Equal(t, models.ID("u-1"), user.ID)
}

func TestRestoreDropsExpiredToken(t *testing.T) {
	m, store, _ := newManager(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.TokenKey, signToken(t, 7, now.Add(-time.Hour))))

	ok, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, storage.TokenKey)
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	m, store, sub := newManager(t)
	ctx := context.Background()
	backend := &fakeBackend{err: errors.New("offline")}
	m.SetBackend(backend)

	_, err := m.Login(ctx, signToken(t, 7, now.Add(time.Hour)))
	require.NoError(t, err)
	<-sub.C

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, "", m.Token())
	_, ok, _ := store.Get(ctx, storage.TokenKey)
	assert.False(t, ok)

	ev := <-sub.C
	var payload events.SessionChangedPayload
	require.NoError(t, ev.Decode(&payload))
	assert.False(t, payload.LoggedIn)
}

func TestRequireUser(t *testing.T) {
	m, _, sub := newManager(t)

	_, err := m.RequireUser()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	ev := <-sub.C
	assert.Equal(t, events.EventTypeAuthRequired, ev.Type)

	_, err = m.Login(context.Background(), signToken(t, 7, now.Add(time.Hour)))
	require.NoError(t, err)
	user, err := m.RequireUser()
	require.NoError(t, err)
	assert.Equal(t, models.ID("7"), user.ID)
}
