package reservation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/boxoffice/go/internal/storage"
	"github.com/rs/zerolog/log"
)

// Source says where a resolved deadline came from
type Source string

const (
	SourceCarried Source = "carried"
	SourceCached  Source = "cached"
	SourceMinted  Source = "minted"
)

// DeadlineStore persists reservation deadlines and the cached cart id
type DeadlineStore struct {
	store storage.Store
}

func NewDeadlineStore(store storage.Store) *DeadlineStore {
	return &DeadlineStore{store: store}
}

// Load returns the cached deadline for cartID. Missing and malformed
// values both report ok=false.
func (d *DeadlineStore) Load(ctx context.Context, cartID string) (time.Time, bool, error) {
	raw, ok, err := d.store.Get(ctx, storage.DeadlineKey(cartID))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load deadline for cart %s: %w", cartID, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ms <= 0 {
		log.Warn().
			Str("cart_id", cartID).
			Str("value", raw).
			Msg("ignoring malformed reservation deadline")
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// Save stores deadline as epoch milliseconds
func (d *DeadlineStore) Save(ctx context.Context, cartID string, deadline time.Time) error {
	value := strconv.FormatInt(deadline.UnixMilli(), 10)
	if err := d.store.Set(ctx, storage.DeadlineKey(cartID), value); err != nil {
		return fmt.Errorf("failed to save deadline for cart %s: %w", cartID, err)
	}
	return nil
}

// Clear removes the deadline for cartID and the cached cart id
func (d *DeadlineStore) Clear(ctx context.Context, cartID string) error {
	if err := d.store.Delete(ctx, storage.DeadlineKey(cartID), storage.CartIDKey); err != nil {
		return fmt.Errorf("failed to clear reservation for cart %s: %w", cartID, err)
	}
	return nil
}

// ClearDeadline removes only the deadline, keeping the cached cart id
func (d *DeadlineStore) ClearDeadline(ctx context.Context, cartID string) error {
	if err := d.store.Delete(ctx, storage.DeadlineKey(cartID)); err != nil {
		return fmt.Errorf("failed to clear deadline for cart %s: %w", cartID, err)
	}
	return nil
}

func (d *DeadlineStore) RememberCart(ctx context.Context, cartID string) error {
	if err := d.store.Set(ctx, storage.CartIDKey, cartID); err != nil {
		return fmt.Errorf("failed to cache cart id: %w", err)
	}
	return nil
}

func (d *DeadlineStore) CachedCartID(ctx context.Context) (string, bool, error) {
	id, ok, err := d.store.Get(ctx, storage.CartIDKey)
	if err != nil {
		return "", false, fmt.Errorf("failed to load cached cart id: %w", err)
	}
	if !ok || strings.TrimSpace(id) == "" {
		return "", false, nil
	}
	return id, true, nil
}

// Resolve picks the deadline for cartID: a carried deadline wins over the
// cached one, and a fresh now+window deadline is minted when neither
// exists. A deadline is never pushed later than one already cached, and a
// carried one is capped at now+window.
// Storage failures are logged and the reservation proceeds in memory.
func (d *DeadlineStore) Resolve(ctx context.Context, cartID string, carried *time.Time, now time.Time, window time.Duration) (time.Time, Source) {
	cached, hasCached, err := d.Load(ctx, cartID)
	if err != nil {
		log.Warn().Err(err).Str("cart_id", cartID).Msg("treating unreadable deadline as absent")
		hasCached = false
	}

	var (
		deadline time.Time
		source   Source
	)
	switch {
	case carried != nil && !carried.IsZero():
		deadline, source = *carried, SourceCarried
		if limit := now.Add(window); deadline.After(limit) {
			log.Warn().
				Str("cart_id", cartID).
				Time("carried", deadline).
				Time("limit", limit).
				Msg("carried deadline beyond reservation window, capping")
			deadline = limit
		}
		if hasCached && cached.Before(deadline) {
			deadline, source = cached, SourceCached
		}
	case hasCached:
		deadline, source = cached, SourceCached
	default:
		deadline, source = now.Add(window), SourceMinted
	}

	// persisted with millisecond precision; keep memory identical
	deadline = time.UnixMilli(deadline.UnixMilli())

	if !hasCached {
		if err := d.Save(ctx, cartID, deadline); err != nil {
			log.Warn().Err(err).Str("cart_id", cartID).Msg("reservation deadline not persisted")
		}
	}

	log.Debug().
		Str("cart_id", cartID).
		Time("deadline", deadline).
		Str("source", string(source)).
		Msg("resolved reservation deadline")

	return deadline, source
}
