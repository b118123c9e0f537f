package reservation

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotRunning          = errors.New("reservation is not running")
	ErrAlreadyStarted      = errors.New("reservation already started")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrOfferResolved       = errors.New("resume offer already resolved")
)

// Config controls the reservation countdown
type Config struct {
	// Window is how long a freshly minted reservation lasts
	Window time.Duration
	// TickInterval is how often the countdown is re-evaluated
	TickInterval time.Duration
	// CleanupTimeout bounds the cart cancellation request
	CleanupTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Window:         15 * time.Minute,
		TickInterval:   time.Second,
		CleanupTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = def.CleanupTimeout
	}
	return c
}

// CartCanceller cancels the caller's current cart on the backend
type CartCanceller interface {
	DeleteCart(ctx context.Context) error
}

// State of a reservation
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateExpired
	StateCancelled
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateExpired || s == StateCancelled || s == StateCompleted
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
