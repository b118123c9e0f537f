package events

import (
	"time"
)

// Event payload types shared by the reservation, session, gateway and tui packages

// TimerTickPayload is the periodic countdown update
type TimerTickPayload struct {
	CartID           string    `json:"cart_id"`
	Deadline         time.Time `json:"deadline"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	Display          string    `json:"display"`
	TickedAt         time.Time `json:"ticked_at"`
}

// ReservationStartedPayload is published when a countdown begins running
type ReservationStartedPayload struct {
	CartID    string    `json:"cart_id"`
	EventID   string    `json:"event_id"`
	Deadline  time.Time `json:"deadline"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
}

// ReservationExpiredPayload carries the blocking timeout prompt
type ReservationExpiredPayload struct {
	CartID    string    `json:"cart_id"`
	EventID   string    `json:"event_id"`
	Deadline  time.Time `json:"deadline"`
	ExpiredAt time.Time `json:"expired_at"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Action    string    `json:"action"` // only route offered by the prompt
}

// ReservationCancelledPayload is published after a confirmed leave or a
// discarded resume offer
type ReservationCancelledPayload struct {
	CartID      string    `json:"cart_id"`
	EventID     string    `json:"event_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// ReservationCompletedPayload is published once checkout hands off to payment
type ReservationCompletedPayload struct {
	CartID      string    `json:"cart_id"`
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// LeaveRequestedPayload asks the UI to confirm leaving mid-countdown
type LeaveRequestedPayload struct {
	CartID           string   `json:"cart_id"`
	Title            string   `json:"title"`
	Question         string   `json:"question"`
	Details          []string `json:"details"`
	ConfirmText      string   `json:"confirm_text"`
	CancelText       string   `json:"cancel_text"`
	TimeRemainingSec int      `json:"time_remaining_sec"`
}

// ResumeOfferedPayload asks the UI whether to continue an unfinished booking
type ResumeOfferedPayload struct {
	CartID           string    `json:"cart_id"`
	EventID          string    `json:"event_id"`
	Deadline         time.Time `json:"deadline"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	Items            int       `json:"items"`
}

// NotificationLevel is the severity of a transient notification
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// NotificationPayload is a non-blocking toast
type NotificationPayload struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// AuthRequiredPayload asks the UI to open its login surface
type AuthRequiredPayload struct {
	Reason string `json:"reason"`
	Path   string `json:"path,omitempty"`
}

// SessionChangedPayload reports login and logout
type SessionChangedPayload struct {
	LoggedIn bool   `json:"logged_in"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
}
