package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
)

func seed(t *testing.T, r *EventRepository, capacity int, date time.Time) *domain.Event {
	t.Helper()
	ev, err := r.Create(context.Background(), &domain.Event{
		Title:    "Show",
		Capacity: capacity,
		Category: domain.CategoryTheater,
		Date:     date,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return ev
}

func TestEventRepository_CreateRejectsOverbooked(t *testing.T) {
	r := NewEventRepository()
	_, err := r.Create(context.Background(), &domain.Event{Capacity: 2, BookedSeats: 3})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestEventRepository_ConcurrentReservationsNeverOverbook(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 50, time.Now().Add(time.Hour))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ReserveSeats(context.Background(), ev.ID, 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := r.FindByID(context.Background(), ev.ID)
	if ok != 50 || got.BookedSeats != 50 {
		t.Fatalf("ok=%d booked=%d, want 50/50", ok, got.BookedSeats)
	}
}

func TestEventRepository_ConcurrentShrinkAndReserve(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 10, time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.ReserveSeats(context.Background(), ev.ID, 1)
		}()
		go func(capacity int) {
			defer wg.Done()
			next := *ev
			next.Capacity = capacity
			_, _ = r.Update(context.Background(), &next)
		}(5 + i%5)
	}
	wg.Wait()

	got, _ := r.FindByID(context.Background(), ev.ID)
	if err := domain.CheckSeats(got.BookedSeats, got.Capacity); err != nil {
		t.Fatalf("invariant broken: booked=%d capacity=%d", got.BookedSeats, got.Capacity)
	}
}

func TestEventRepository_ReserveInactive(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 10, time.Now().Add(time.Hour))
	if err := r.SetActive(context.Background(), ev.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := r.ReserveSeats(context.Background(), ev.ID, 1); !errors.Is(err, domain.ErrEventInactive) {
		t.Fatalf("expected ErrEventInactive, got %v", err)
	}
}

func TestEventRepository_UpdateKeepsBookedSeats(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 10, time.Now().Add(time.Hour))
	if _, err := r.ReserveSeats(context.Background(), ev.ID, 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	stale := *ev // BookedSeats is 0 in this copy
	stale.Title = "Renamed"
	updated, err := r.Update(context.Background(), &stale)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.BookedSeats != 4 || updated.Title != "Renamed" {
		t.Fatalf("unexpected event %+v", updated)
	}
}

func TestEventRepository_ReleaseBelowZero(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 10, time.Now().Add(time.Hour))
	if _, err := r.ReleaseSeats(context.Background(), ev.ID, "k", 1); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if _, err := r.ReleaseSeats(context.Background(), "missing", "k", 1); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventRepository_ListPaging(t *testing.T) {
	r := NewEventRepository()
	base := time.Now().Add(time.Hour)
	for i := 0; i < 5; i++ {
		seed(t, r, 10, base.Add(time.Duration(i)*time.Hour))
	}

	items, total, err := r.List(context.Background(), ports.ListEventsFilter{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(items) != 1 {
		t.Fatalf("total=%d len=%d, want 5/1", total, len(items))
	}

	items, _, _ = r.List(context.Background(), ports.ListEventsFilter{Page: 9, Limit: 2})
	if len(items) != 0 {
		t.Fatalf("expected empty page, got %d", len(items))
	}

	items, total, _ = r.List(context.Background(), ports.ListEventsFilter{UpcomingAt: base.Add(150 * time.Minute)})
	if total != 2 || len(items) != 2 {
		t.Fatalf("upcoming total=%d len=%d, want 2/2", total, len(items))
	}
}

func TestBookingRepository_MarkCancelledOnce(t *testing.T) {
	r := NewBookingRepository()
	b, _ := r.Create(context.Background(), &domain.Booking{EventID: "e", UserID: "u", Seats: 1, Status: domain.BookingConfirmed})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		cancelled int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.MarkCancelled(context.Background(), b.ID, time.Now()); err == nil {
				mu.Lock()
				cancelled++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if cancelled != 1 {
		t.Fatalf("cancelled %d times, want 1", cancelled)
	}
}

func TestUserRepository_Uniqueness(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	a, _ := r.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com"})
	if _, err := r.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for username, got %v", err)
	}
	if _, err := r.Create(ctx, &domain.User{Username: "bob", Email: "alice@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for email, got %v", err)
	}
	found, err := r.FindByEmail(ctx, " ALICE@example.com")
	if err != nil || found.ID != a.ID {
		t.Fatalf("FindByEmail: %v %+v", err, found)
	}
}

func TestUserRepository_PatchTouchesOnlyNamedFields(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	u, _ := r.Create(ctx, &domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleUser, IsActive: true, FirstName: "Alice"})

	inactive := false
	if _, err := r.Patch(ctx, u.ID, ports.UserPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("Patch status: %v", err)
	}
	name := "Alicia"
	got, err := r.Patch(ctx, u.ID, ports.UserPatch{FirstName: &name})
	if err != nil {
		t.Fatalf("Patch name: %v", err)
	}
	if got.IsActive {
		t.Fatal("name patch reactivated the account")
	}
	if got.FirstName != "Alicia" || got.Role != domain.RoleUser || got.Email != "alice@example.com" {
		t.Fatalf("unexpected record %+v", got)
	}
	if _, err := r.Patch(ctx, "missing", ports.UserPatch{FirstName: &name}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestEventRepository_UpdateKeepsStoredActiveFlag(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 10, time.Now().Add(time.Hour))

	stale, _ := r.FindByID(context.Background(), ev.ID)
	if err := r.SetActive(context.Background(), ev.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	stale.Title = "Renamed"
	updated, err := r.Update(context.Background(), stale)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IsActive {
		t.Fatal("update from a stale read reactivated the event")
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title = %q", updated.Title)
	}
}

func TestEventRepository_ReleaseIsIdempotentPerKey(t *testing.T) {
	r := NewEventRepository()
	ev := seed(t, r, 10, time.Now().Add(time.Hour))
	if _, err := r.ReserveSeats(context.Background(), ev.ID, 5); err != nil {
		t.Fatalf("ReserveSeats: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ReleaseSeats(context.Background(), ev.ID, "booking:b-1", 2); err != nil {
				t.Errorf("ReleaseSeats: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := r.FindByID(context.Background(), ev.ID)
	if got.BookedSeats != 3 {
		t.Fatalf("booked = %d, want 3", got.BookedSeats)
	}
	if _, err := r.ReleaseSeats(context.Background(), ev.ID, "booking:b-2", 2); err != nil {
		t.Fatalf("ReleaseSeats with a new key: %v", err)
	}
	got, _ = r.FindByID(context.Background(), ev.ID)
	if got.BookedSeats != 1 {
		t.Fatalf("booked = %d, want 1", got.BookedSeats)
	}
}
