package gateway

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDoesNotBlockOtherCartsDuringCleanup(t *testing.T) {
	f := newFixture(t)
	reg := f.service.Registry()
	token, backend := f.user(t, 7, cartOf("42", 1))
	backend.deleting = make(chan struct{})
	backend.release = make(chan struct{})

	overdue := epoch.Add(-time.Minute)
	require.NoError(t, f.mr.Set("boxoffice:user:7:checkoutEnd_42", strconv.FormatInt(overdue.UnixMilli(), 10)))

	type startResult struct {
		res     *Reservation
		created bool
		err     error
	}
	started := make(chan startResult, 1)
	go func() {
		res, created, err := reg.Start(context.Background(), &Principal{UserID: "7", Token: token}, "9", nil)
		started <- startResult{res, created, err}
	}()

	select {
	case <-backend.deleting:
	case <-time.After(2 * time.Second):
		t.Fatal("expired reservation never deleted its cart")
	}

	lookup := make(chan error, 1)
	go func() {
		_, err := reg.Get("other-cart")
		lookup <- err
	}()
	select {
	case err := <-lookup:
		assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("lookup of another cart waited for a cart delete")
	}
	assert.Equal(t, 0, reg.Count())

	close(backend.release)
	result := <-started
	require.NoError(t, result.err)
	assert.True(t, result.created)
	assert.Equal(t, reservation.StateExpired, result.res.Coordinator.State())
	assert.Equal(t, 1, backend.Deletes())
}

func TestConcurrentStartsShareOneReservation(t *testing.T) {
	f := newFixture(t)
	reg := f.service.Registry()
	token, _ := f.user(t, 7, cartOf("42", 1))
	p := &Principal{UserID: "7", Token: token}

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		results []*Reservation
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, isNew, err := reg.Start(context.Background(), p, "9", nil)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if isNew {
				created++
			}
			results = append(results, res)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	require.Len(t, results, callers)
	for _, res := range results {
		assert.Same(t, results[0], res)
	}
	assert.Equal(t, 1, reg.Count())
}

func TestStartForbidsAnotherUsersCart(t *testing.T) {
	f := newFixture(t)
	reg := f.service.Registry()
	owner, _ := f.user(t, 7, cartOf("42", 1))
	intruder, _ := f.user(t, 8, cartOf("42", 1))

	_, _, err := reg.Start(context.Background(), &Principal{UserID: "7", Token: owner}, "9", nil)
	require.NoError(t, err)

	_, _, err = reg.Start(context.Background(), &Principal{UserID: "8", Token: intruder}, "9", nil)
	assert.ErrorIs(t, err, ErrForbidden)
}
