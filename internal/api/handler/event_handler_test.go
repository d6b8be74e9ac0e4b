package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eventbooker/event-booker/internal/api/middleware"
	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
	"github.com/eventbooker/event-booker/internal/core/service"
	"github.com/eventbooker/event-booker/internal/infrastructure/db/memory"
)

func newEventHandler(t *testing.T) (*EventHandler, ports.EventService) {
	t.Helper()
	svc := service.NewEventService(
		memory.NewEventRepository(),
		memory.NewBookingRepository(),
		memory.NewIdempotencyStore(),
		nil,
		zerolog.Nop(),
	)
	return NewEventHandler(svc), svc
}

func seedEvent(t *testing.T, svc ports.EventService, organizer string, capacity int) *domain.Event {
	t.Helper()
	ev, err := svc.Create(context.Background(), organizer, domain.EventDraft{
		Title:       "Jazz Night",
		Description: "Live quartet",
		Date:        time.Now().Add(48 * time.Hour),
		Location:    "Main Hall",
		Price:       20,
		Capacity:    capacity,
		Category:    domain.CategoryConcerts,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	c := e.NewContext(req, rec)
	middleware.SetIdentity(c, domain.Identity{ID: userID, Role: domain.RoleUser, IsActive: true})
	return c
}

func TestEventHandler_Create(t *testing.T) {
	e := newEcho()
	h, _ := newEventHandler(t)

	body := `{"title":"Jazz Night","description":"Live quartet","date":"` +
		time.Now().Add(24*time.Hour).UTC().Format(time.RFC3339) +
		`","location":"Main Hall","price":15,"capacity":40,"category":"Concerts"}`
	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/api/events", body), rec, "org-1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp eventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Organizer != "org-1" || resp.Category != "concerts" || resp.AvailableSeats != 40 {
		t.Fatalf("unexpected event: %+v", resp)
	}
}

func TestEventHandler_Create_Validation(t *testing.T) {
	e := newEcho()
	h, _ := newEventHandler(t)

	c := authedContext(e, jsonRequest(http.MethodPost, "/api/events", `{"title":""}`), httptest.NewRecorder(), "org-1")
	err := h.Create(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEventHandler_Book_CreatedThenReplayed(t *testing.T) {
	e := newEcho()
	h, svc := newEventHandler(t)
	ev := seedEvent(t, svc, "org-1", 5)

	book := func() *httptest.ResponseRecorder {
		req := jsonRequest(http.MethodPost, "/api/events/"+ev.ID+"/bookings", `{"seats":2}`)
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		c := authedContext(e, req, rec, "u-1")
		c.SetParamNames("id")
		c.SetParamValues(ev.ID)
		if err := h.Book(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		return rec
	}

	first := book()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	second := book()
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", second.Code)
	}

	var resp bookingResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Replayed || resp.Event == nil || resp.Event.BookedSeats != 2 {
		t.Fatalf("unexpected replay body: %+v", resp)
	}
}

func TestEventHandler_Book_DefaultsToOneSeat(t *testing.T) {
	e := newEcho()
	h, svc := newEventHandler(t)
	ev := seedEvent(t, svc, "org-1", 5)

	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPost, "/", `{}`), rec, "u-1")
	c.SetParamNames("id")
	c.SetParamValues(ev.ID)
	if err := h.Book(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp bookingResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Booking == nil || resp.Booking.Seats != 1 {
		t.Fatalf("expected one seat, got %+v", resp.Booking)
	}
}

func TestEventHandler_Book_Rejections(t *testing.T) {
	e := newEcho()
	h, svc := newEventHandler(t)
	ev := seedEvent(t, svc, "org-1", 2)

	tests := []struct {
		name string
		body string
		want error
	}{
		{"negative seats", `{"seats":-1}`, domain.ErrValidation},
		{"over capacity", `{"seats":3}`, domain.ErrCapacityExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := authedContext(e, jsonRequest(http.MethodPost, "/", tt.body), httptest.NewRecorder(), "u-1")
			c.SetParamNames("id")
			c.SetParamValues(ev.ID)
			if err := h.Book(c); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEventHandler_List_OrganizerMeRequiresIdentity(t *testing.T) {
	e := newEcho()
	h, svc := newEventHandler(t)
	seedEvent(t, svc, "org-1", 5)
	seedEvent(t, svc, "org-2", 5)

	anon := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/events?organizer=me", nil), httptest.NewRecorder())
	if err := h.List(anon); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/api/events?organizer=me", nil), rec, "org-2")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp listEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Pagination.Total != 1 || resp.Events[0].Organizer != "org-2" {
		t.Fatalf("unexpected listing: %+v", resp)
	}
}

func TestEventHandler_EventOwner(t *testing.T) {
	e := newEcho()
	h, svc := newEventHandler(t)
	ev := seedEvent(t, svc, "org-7", 5)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(ev.ID)
	owner, err := h.EventOwner()(c)
	if err != nil || owner != "org-7" {
		t.Fatalf("owner = %q, err = %v", owner, err)
	}

	c.SetParamValues("missing")
	if _, err := h.EventOwner()(c); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventHandler_CancelBooking(t *testing.T) {
	e := newEcho()
	h, svc := newEventHandler(t)
	ev := seedEvent(t, svc, "org-1", 5)
	res, err := svc.Book(context.Background(), ports.BookInput{EventID: ev.ID, UserID: "u-1", Seats: 3})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodDelete, "/", nil), rec, "u-1")
	c.SetParamNames("bookingId")
	c.SetParamValues(res.Booking.ID)
	if err := h.CancelBooking(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	after, _ := svc.Get(context.Background(), ev.ID)
	if after.BookedSeats != 0 {
		t.Fatalf("booked = %d, want 0", after.BookedSeats)
	}
}
