package reservation

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCarts struct {
	mu        sync.Mutex
	deletes   int
	deleteErr error
	deleteCtx []error
	cart      *models.Cart
	getErr    error
}

func (f *fakeCarts) DeleteCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	f.deleteCtx = append(f.deleteCtx, ctx.Err())
	return f.deleteErr
}

func (f *fakeCarts) GetCart(context.Context) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, f.getErr
}

func (f *fakeCarts) Deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes
}

type harness struct {
	clock     *clockwork.FakeClock
	store     *storage.MemoryStore
	deadlines *DeadlineStore
	carts     *fakeCarts
	bus       *events.Bus
	sub       *events.Subscription
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := storage.NewMemoryStore()
	bus := events.NewBus(256)
	h := &harness{
		clock:     clockwork.NewFakeClockAt(epoch),
		store:     store,
		deadlines: NewDeadlineStore(store),
		carts:     &fakeCarts{},
		bus:       bus,
		sub:       bus.Subscribe(""),
	}
	t.Cleanup(bus.Close)
	return h
}

func (h *harness) coordinator() *Coordinator {
	return NewCoordinator(DefaultConfig(), h.clock, h.deadlines, h.carts, h.bus)
}

func (h *harness) cacheDeadline(t *testing.T, cartID string, deadline time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, storage.DeadlineKey(cartID), strconv.FormatInt(deadline.UnixMilli(), 10)))
	require.NoError(t, h.store.Set(ctx, storage.CartIDKey, cartID))
}

func (h *harness) stored(key string) (string, bool) {
	v, ok, _ := h.store.Get(context.Background(), key)
	return v, ok
}

// drain returns every event currently buffered
func (h *harness) drain() []*events.Event {
	var out []*events.Event
	for {
		select {
		case ev := <-h.sub.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (h *harness) waitFor(t *testing.T, typ events.EventType) *events.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.sub.C:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
			return nil
		}
	}
}

func ofType(evs []*events.Event, typ events.EventType) []*events.Event {
	var out []*events.Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func tickPayload(t *testing.T, ev *events.Event) events.TimerTickPayload {
	t.Helper()
	var p events.TimerTickPayload
	require.NoError(t, ev.Decode(&p))
	return p
}
