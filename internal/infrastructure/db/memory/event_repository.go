package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
)

// EventRepository is a map-backed ports.EventRepository. Seat and capacity
// writes take a lock keyed by event id around the read-modify-write.
type EventRepository struct {
	mu       sync.RWMutex
	events   map[string]*domain.Event
	released map[string]map[string]struct{} // event id -> applied release keys
	locks    sync.Map                       // event id -> *sync.Mutex
}

func NewEventRepository() *EventRepository {
	return &EventRepository{
		events:   make(map[string]*domain.Event),
		released: make(map[string]map[string]struct{}),
	}
}

func (r *EventRepository) lock(id string) func() {
	m, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (r *EventRepository) Create(_ context.Context, event *domain.Event) (*domain.Event, error) {
	if err := domain.CheckSeats(event.BookedSeats, event.Capacity); err != nil {
		return nil, err
	}
	stored := *event
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.events[stored.ID] = &stored
	r.mu.Unlock()

	out := stored
	return &out, nil
}

func (r *EventRepository) FindByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	out := *ev
	return &out, nil
}

func (r *EventRepository) List(_ context.Context, f ports.ListEventsFilter) ([]*domain.Event, int64, error) {
	r.mu.RLock()
	var matched []*domain.Event
	for _, ev := range r.events {
		if f.ActiveOnly && !ev.IsActive {
			continue
		}
		if f.Category != "" && ev.Category != f.Category {
			continue
		}
		if f.OrganizerID != "" && ev.OrganizerID != f.OrganizerID {
			continue
		}
		if !f.UpcomingAt.IsZero() && !ev.Date.After(f.UpcomingAt) {
			continue
		}
		clone := *ev
		matched = append(matched, &clone)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })

	total := int64(len(matched))
	limit := f.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	skip := (f.Page - 1) * limit
	if skip < 0 {
		skip = 0
	}
	if skip > len(matched) {
		return []*domain.Event{}, total, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], total, nil
}

// mutate applies fn to a copy of the stored event under the per-event lock
// and stores the copy only if fn succeeds.
func (r *EventRepository) mutate(id string, fn func(ev *domain.Event) error) (*domain.Event, error) {
	unlock := r.lock(id)
	defer unlock()
	return r.apply(id, fn)
}

// apply is mutate without locking; the caller holds the per-event lock.
func (r *EventRepository) apply(id string, fn func(ev *domain.Event) error) (*domain.Event, error) {
	r.mu.RLock()
	stored, ok := r.events[id]
	var next domain.Event
	if ok {
		next = *stored
	}
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrEventNotFound
	}

	if err := fn(&next); err != nil {
		return nil, err
	}
	if err := domain.CheckSeats(next.BookedSeats, next.Capacity); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.events[id] = &next
	r.mu.Unlock()

	out := next
	return &out, nil
}

// Update writes the descriptive fields and capacity. Booked seats and the
// active flag keep their stored values.
func (r *EventRepository) Update(_ context.Context, event *domain.Event) (*domain.Event, error) {
	return r.mutate(event.ID, func(ev *domain.Event) error {
		if err := domain.CheckSeats(ev.BookedSeats, event.Capacity); err != nil {
			return err
		}
		ev.Title = event.Title
		ev.Description = event.Description
		ev.Date = event.Date
		ev.Location = event.Location
		ev.Price = event.Price
		ev.Capacity = event.Capacity
		ev.Category = event.Category
		ev.UpdatedAt = event.UpdatedAt
		return nil
	})
}

func (r *EventRepository) ReserveSeats(_ context.Context, id string, n int) (*domain.Event, error) {
	return r.mutate(id, func(ev *domain.Event) error {
		if !ev.IsActive {
			return domain.ErrEventInactive
		}
		ev.UpdatedAt = time.Now().UTC()
		return ev.Reserve(n)
	})
}

func (r *EventRepository) ReleaseSeats(ctx context.Context, id, key string, n int) (*domain.Event, error) {
	unlock := r.lock(id)
	defer unlock()

	r.mu.RLock()
	_, applied := r.released[id][key]
	r.mu.RUnlock()
	if applied {
		return r.FindByID(ctx, id)
	}

	ev, err := r.apply(id, func(ev *domain.Event) error {
		ev.UpdatedAt = time.Now().UTC()
		return ev.Release(n)
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.released[id] == nil {
		r.released[id] = make(map[string]struct{})
	}
	r.released[id][key] = struct{}{}
	r.mu.Unlock()
	return ev, nil
}

func (r *EventRepository) SetActive(_ context.Context, id string, active bool) error {
	_, err := r.mutate(id, func(ev *domain.Event) error {
		ev.IsActive = active
		ev.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

func (r *EventRepository) DeactivatePast(_ context.Context, now time.Time) (int64, error) {
	r.mu.RLock()
	var ids []string
	for id, ev := range r.events {
		if ev.IsActive && ev.Date.Before(now) {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	var n int64
	for _, id := range ids {
		if err := r.SetActive(context.Background(), id, false); err == nil {
			n++
		}
	}
	return n, nil
}
