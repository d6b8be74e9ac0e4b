package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// BookingRepository is a map-backed ports.BookingRepository.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[string]*domain.Booking)}
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	clone := *b
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		clone.CancelledAt = &t
	}
	return &clone
}

func (r *BookingRepository) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	stored := cloneBooking(b)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.bookings[stored.ID] = stored
	r.mu.Unlock()

	return cloneBooking(stored), nil
}

func (r *BookingRepository) FindByID(_ context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) ListByUser(_ context.Context, userID string) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Booking, 0)
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BookingRepository) MarkCancelled(_ context.Context, id string, at time.Time) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status == domain.BookingCancelled {
		return nil, domain.ErrBookingCancelled
	}
	b.Status = domain.BookingCancelled
	b.CancelledAt = &at
	b.SeatsReleased = false
	return cloneBooking(b), nil
}

func (r *BookingRepository) MarkSeatsReleased(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.SeatsReleased = true
	return nil
}

// IdempotencyStore is a map-backed ports.IdempotencyStore. A claimed key
// maps to an empty booking id until Complete runs.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]string)}
}

func (s *IdempotencyStore) Claim(_ context.Context, userID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := userID + ":" + key
	if id, ok := s.keys[k]; ok {
		return id, false, nil
	}
	s.keys[k] = ""
	return "", true, nil
}

func (s *IdempotencyStore) Complete(_ context.Context, userID, key, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[userID+":"+key] = bookingID
	return nil
}

func (s *IdempotencyStore) Abandon(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := userID + ":" + key
	if s.keys[k] == "" {
		delete(s.keys, k)
	}
	return nil
}
