package storage

import (
	"context"
	"strings"
)

// Keys persisted on behalf of the client
const (
	CartIDKey         = "cartId"
	TokenKey          = "token"
	deadlineKeyPrefix = "checkoutEnd_"
)

// Store is a small string key/value store that survives restarts of the
// client. Missing keys are reported with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// DeadlineKey returns the key holding the reservation deadline for a cart
func DeadlineKey(cartID string) string {
	return deadlineKeyPrefix + cartID
}

// CartIDFromDeadlineKey reverses DeadlineKey
func CartIDFromDeadlineKey(key string) (string, bool) {
	if !strings.HasPrefix(key, deadlineKeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, deadlineKeyPrefix)
	return id, id != ""
}

// Scoped prefixes every key with namespace before delegating to store.
// The gateway gives each user their own namespace inside one Redis.
func Scoped(store Store, namespace string) Store {
	if namespace == "" {
		return store
	}
	return &scopedStore{inner: store, namespace: namespace}
}

type scopedStore struct {
	inner     Store
	namespace string
}

func (s *scopedStore) key(k string) string {
	return s.namespace + ":" + k
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.key(key))
}

func (s *scopedStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.key(key), value)
}

func (s *scopedStore) Delete(ctx context.Context, keys ...string) error {
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = s.key(k)
	}
	return s.inner.Delete(ctx, scoped...)
}
