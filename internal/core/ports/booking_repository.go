package ports

import (
	"context"
	"time"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// BookingRepository persists bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error)
	// MarkCancelled flips a confirmed booking to cancelled. It returns
	// domain.ErrBookingCancelled when the booking was already cancelled.
	MarkCancelled(ctx context.Context, id string, at time.Time) (*domain.Booking, error)
	// MarkSeatsReleased records that a cancelled booking's seats were returned
	// to its event.
	MarkSeatsReleased(ctx context.Context, id string) error
}

// IdempotencyStore remembers which booking an Idempotency-Key produced.
type IdempotencyStore interface {
	// Claim reserves key for the caller. When the key is already held it
	// returns claimed=false and the booking id recorded for it, which is
	// empty while the first request is still in flight.
	Claim(ctx context.Context, userID, key string) (bookingID string, claimed bool, err error)
	// Complete records the booking a claimed key produced.
	Complete(ctx context.Context, userID, key, bookingID string) error
	// Abandon drops a claim whose request failed so the key can be retried.
	Abandon(ctx context.Context, userID, key string) error
}

// BookingNotifier receives booking state changes for asynchronous delivery.
type BookingNotifier interface {
	Notify(notice domain.BookingNotice)
}
