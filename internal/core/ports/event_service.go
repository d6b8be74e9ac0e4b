package ports

import (
	"context"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// ListEventsInput carries the parameters of the event listing.
type ListEventsInput struct {
	Category    string
	OrganizerID string
	Upcoming    bool
	Page        int
	Limit       int
}

// ListEventsResult is one page of events.
type ListEventsResult struct {
	Items      []*domain.Event
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// BookInput carries a seat reservation request.
type BookInput struct {
	EventID        string
	UserID         string
	Seats          int
	IdempotencyKey string
}

// BookResult is returned by Book. Replayed is true when the Idempotency-Key
// matched an earlier booking and nothing was reserved.
type BookResult struct {
	Booking  *domain.Booking
	Event    *domain.Event
	Replayed bool
}

// EventService defines use-case operations for events and bookings.
// Ownership is checked by the caller before Update, Deactivate and
// CancelBooking.
type EventService interface {
	Create(ctx context.Context, organizerID string, draft domain.EventDraft) (*domain.Event, error)
	Get(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, input ListEventsInput) (*ListEventsResult, error)
	Update(ctx context.Context, id string, changes domain.EventChanges) (*domain.Event, error)
	Deactivate(ctx context.Context, id string) error
	Book(ctx context.Context, input BookInput) (*BookResult, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]*domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	DeactivatePastEvents(ctx context.Context) (int64, error)
}
