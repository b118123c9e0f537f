package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	mu      sync.Mutex
	cart    *models.Cart
	getErr  error
	deletes int

	// deleting, when set, is signalled on entry to DeleteCart, which then
	// waits for release
	deleting chan struct{}
	release  chan struct{}
}

func (f *fakeBackend) GetCart(context.Context) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, f.getErr
}

func (f *fakeBackend) DeleteCart(context.Context) error {
	if f.deleting != nil {
		f.deleting <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	f.cart = nil
	return nil
}

func (f *fakeBackend) Deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

func cartOf(id string, quantity int) *models.Cart {
	return &models.Cart{
		CartID: models.ID(id),
		CartDetails: []models.CartDetail{
			{ID: "1", Quantity: quantity, Price: 100000, TicketType: models.CartTicketType{ID: "3", Type: "VIP"}},
		},
	}
}

type fixture struct {
	clock   *clockwork.FakeClock
	mr      *miniredis.Miniredis
	store   storage.Store
	bus     *events.Bus
	service *Service
	server  *httptest.Server

	mu       sync.Mutex
	backends map[string]*fakeBackend // by token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		clock:    clockwork.NewFakeClockAt(epoch),
		mr:       mr,
		store:    storage.NewRedisStore(rdb, storage.RedisOptions{Prefix: "boxoffice"}),
		bus:      events.NewBus(256),
		backends: make(map[string]*fakeBackend),
	}

	cfg := DefaultConfig()
	cfg.JWTSecret = testSecret
	f.service = NewService(cfg, f.clock, f.store, f.backend, f.bus)

	mux := http.NewServeMux()
	f.service.RegisterRoutes(mux)
	f.server = httptest.NewServer(NewHTTPServer("", mux, nil).Handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.service.Start(ctx)
	}()
	require.Eventually(t, func() bool { return f.bus.SubscriberCount() > 0 }, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		f.server.Close()
		cancel()
		<-done
		f.bus.Close()
	})
	return f
}

func (f *fixture) backend(token string) CartBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.backends[token]
	if !ok {
		b = &fakeBackend{}
		f.backends[token] = b
	}
	return b
}

// user signs a token for userID and gives them cart
func (f *fixture) user(t *testing.T, userID int, cart *models.Cart) (string, *fakeBackend) {
	t.Helper()
	token := signToken(t, userID, epoch.Add(time.Hour), testSecret)
	b := f.backend(token).(*fakeBackend)
	b.mu.Lock()
	b.cart = cart
	b.mu.Unlock()
	return token, b
}

func signToken(t *testing.T, userID int, exp time.Time, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    userID,
		"email": "user" + strconv.Itoa(userID) + "@example.com",
		"exp":   exp.Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) start(t *testing.T, token string) ReservationView {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/reservations", token, map[string]any{"event_id": "9"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[ReservationView](t, resp)
}
