package domain

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking records seats reserved on an event by a user.
type Booking struct {
	ID          string        `json:"id"`
	EventID     string        `json:"eventId"`
	UserID      string        `json:"userId"`
	Seats       int           `json:"seats"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	CancelledAt *time.Time    `json:"cancelledAt,omitempty"`
	// SeatsReleased is set once a cancelled booking's seats are back on the
	// event.
	SeatsReleased bool `json:"-"`
}

// BookingNotice is the message published when a booking changes state.
type BookingNotice struct {
	ID         string        `json:"id"`
	BookingID  string        `json:"bookingId"`
	EventID    string        `json:"eventId"`
	UserID     string        `json:"userId"`
	Seats      int           `json:"seats"`
	Status     BookingStatus `json:"status"`
	OccurredAt time.Time     `json:"occurredAt"`
}
