package ports

import (
	"context"
	"time"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// ListEventsFilter carries the query parameters for listing events.
type ListEventsFilter struct {
	Category    domain.Category // optional
	OrganizerID string          // optional
	UpcomingAt  time.Time       // optional: only events dated after this instant
	ActiveOnly  bool
	Page        int // 1-based
	Limit       int
}

// EventRepository persists events. Every write that touches seats or capacity
// is applied atomically by the store: a reservation either fits under capacity
// as a whole or leaves the record unchanged.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)
	FindByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter ListEventsFilter) ([]*domain.Event, int64, error)
	// Update replaces the descriptive fields and capacity. Capacity is only
	// written while it stays >= the booked seats at write time.
	Update(ctx context.Context, event *domain.Event) (*domain.Event, error)
	// ReserveSeats increments booked seats by n only if the result stays
	// within capacity and the event is active.
	ReserveSeats(ctx context.Context, id string, n int) (*domain.Event, error)
	// ReleaseSeats decrements booked seats by n only if the result stays >= 0.
	// key names the release: repeating it with the same key leaves the seats
	// unchanged and returns the current record.
	ReleaseSeats(ctx context.Context, id, key string, n int) (*domain.Event, error)
	SetActive(ctx context.Context, id string, active bool) error
	// DeactivatePast marks active events dated before now inactive.
	DeactivatePast(ctx context.Context, now time.Time) (int64, error)
}
