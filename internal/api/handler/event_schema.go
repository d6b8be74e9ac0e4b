package handler

import (
	"time"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// --- Request types ---

type listEventsQuery struct {
	Category  string `query:"category"`
	Upcoming  bool   `query:"upcoming"`
	Organizer string `query:"organizer"`
	Page      int    `query:"page"`
	Limit     int    `query:"limit"`
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	Category    string    `json:"category"`
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Price       *float64   `json:"price"`
	Capacity    *int       `json:"capacity"`
	Category    *string    `json:"category"`
}

type bookRequest struct {
	Seats int `json:"seats" validate:"gte=1"`
}

// --- Response types ---
// Kept apart from domain types so the JSON contract does not follow internal
// changes.

type eventResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	Location       string    `json:"location"`
	Price          float64   `json:"price"`
	Capacity       int       `json:"capacity"`
	BookedSeats    int       `json:"bookedSeats"`
	AvailableSeats int       `json:"availableSeats"`
	Category       string    `json:"category"`
	Organizer      string    `json:"organizer"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type listEventsResponse struct {
	Events     []eventResponse    `json:"events"`
	Pagination paginationResponse `json:"pagination"`
}

type bookingResponse struct {
	Booking  *domain.Booking `json:"booking"`
	Event    *eventResponse  `json:"event,omitempty"`
	Replayed bool            `json:"replayed,omitempty"`
}

type listBookingsResponse struct {
	Bookings []*domain.Booking `json:"bookings"`
}

func toEventResponse(e *domain.Event) eventResponse {
	return eventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Date:           e.Date,
		Location:       e.Location,
		Price:          e.Price,
		Capacity:       e.Capacity,
		BookedSeats:    e.BookedSeats,
		AvailableSeats: e.AvailableSeats(),
		Category:       string(e.Category),
		Organizer:      e.OrganizerID,
		IsActive:       e.IsActive,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toEventChanges(r updateEventRequest) domain.EventChanges {
	ch := domain.EventChanges{
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Location:    r.Location,
		Price:       r.Price,
		Capacity:    r.Capacity,
	}
	if r.Category != nil {
		c := domain.Category(*r.Category)
		ch.Category = &c
	}
	return ch
}
