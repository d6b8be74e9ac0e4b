package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eventbooker/event-booker/internal/api/metrics"
	"github.com/eventbooker/event-booker/internal/api/middleware"
	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
)

// EventHandler handles events and their bookings.
type EventHandler struct {
	service ports.EventService
}

// NewEventHandler creates an EventHandler backed by the given service.
func NewEventHandler(service ports.EventService) *EventHandler {
	return &EventHandler{service: service}
}

// EventOwner resolves the organizer of the event in the :id path parameter.
func (h *EventHandler) EventOwner() middleware.OwnerFunc {
	return func(c echo.Context) (string, error) {
		ev, err := h.service.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return "", err
		}
		return ev.OrganizerID, nil
	}
}

// BookingOwner resolves the user of the booking in the :bookingId path
// parameter.
func (h *EventHandler) BookingOwner() middleware.OwnerFunc {
	return func(c echo.Context) (string, error) {
		b, err := h.service.GetBooking(c.Request().Context(), c.Param("bookingId"))
		if err != nil {
			return "", err
		}
		return b.UserID, nil
	}
}

// List handles GET /api/events. Authentication is optional; organizer=me
// requires it.
//
// @Summary      List active events
// @Tags         events
// @Produce      json
// @Param        category   query     string  false  "concerts, sports, theater, education or other"
// @Param        upcoming   query     bool    false  "Only events dated in the future"
// @Param        organizer  query     string  false  "me: events organized by the caller"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Page size (default 20, max 100)"
// @Success      200        {object}  listEventsResponse
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Router       /api/events [get]
func (h *EventHandler) List(c echo.Context) error {
	var q listEventsQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}

	in := ports.ListEventsInput{
		Category: strings.ToLower(strings.TrimSpace(q.Category)),
		Upcoming: q.Upcoming,
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if q.Organizer == "me" {
		identity, err := currentIdentity(c)
		if err != nil {
			return err
		}
		in.OrganizerID = identity.ID
	}

	res, err := h.service.List(c.Request().Context(), in)
	if err != nil {
		return err
	}

	out := listEventsResponse{
		Events: make([]eventResponse, 0, len(res.Items)),
		Pagination: paginationResponse{
			Page:       res.Page,
			Limit:      res.Limit,
			Total:      res.Total,
			TotalPages: res.TotalPages,
		},
	}
	for _, ev := range res.Items {
		out.Events = append(out.Events, toEventResponse(ev))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/events/:id.
//
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        id   path      string  true  "Event id"
// @Success      200  {object}  eventResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/events/{id} [get]
func (h *EventHandler) Get(c echo.Context) error {
	ev, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

// Create handles POST /api/events. The caller becomes the organizer.
//
// @Summary      Create an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createEventRequest  true  "Event details"
// @Success      201   {object}  eventResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/events [post]
func (h *EventHandler) Create(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ev, err := h.service.Create(c.Request().Context(), identity.ID, domain.EventDraft{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Price:       req.Price,
		Capacity:    req.Capacity,
		Category:    domain.Category(req.Category),
	})
	if err != nil {
		return err
	}

	metrics.EventsCreatedTotal.WithLabelValues(string(ev.Category)).Inc()
	return c.JSON(http.StatusCreated, toEventResponse(ev))
}

// Update handles PUT /api/events/:id. Organizer or admin only.
//
// @Summary      Update an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Event id"
// @Param        body  body      updateEventRequest  true  "Fields to change"
// @Success      200   {object}  eventResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/events/{id} [put]
func (h *EventHandler) Update(c echo.Context) error {
	var req updateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ev, err := h.service.Update(c.Request().Context(), c.Param("id"), toEventChanges(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

// Delete handles DELETE /api/events/:id by deactivating the event.
//
// @Summary      Deactivate an event
// @Tags         events
// @Security     BearerAuth
// @Param        id   path  string  true  "Event id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.service.Deactivate(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Book handles POST /api/events/:id/bookings. A repeated Idempotency-Key
// returns the original booking with 200 instead of booking again.
//
// @Summary      Book seats
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string       true   "Event id"
// @Param        Idempotency-Key  header    string       false  "Replay protection key"
// @Param        body             body      bookRequest  true   "Seats to book"
// @Success      201              {object}  bookingResponse
// @Success      200              {object}  bookingResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      503              {object}  errorResponse
// @Router       /api/events/{id}/bookings [post]
func (h *EventHandler) Book(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	req := bookRequest{Seats: 1}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.service.Book(c.Request().Context(), ports.BookInput{
		EventID:        c.Param("id"),
		UserID:         identity.ID,
		Seats:          req.Seats,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(metrics.BookingResult(err)).Inc()
		return err
	}

	ev := toEventResponse(res.Event)
	body := bookingResponse{Booking: res.Booking, Event: &ev, Replayed: res.Replayed}
	if res.Replayed {
		metrics.BookingsTotal.WithLabelValues("replayed").Inc()
		return c.JSON(http.StatusOK, body)
	}
	metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	metrics.SeatsReservedTotal.Add(float64(res.Booking.Seats))
	return c.JSON(http.StatusCreated, body)
}

// ListBookings handles GET /api/bookings: the caller's own bookings.
//
// @Summary      List my bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listBookingsResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/bookings [get]
func (h *EventHandler) ListBookings(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	bookings, err := h.service.ListBookings(c.Request().Context(), identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listBookingsResponse{Bookings: bookings})
}

// CancelBooking handles DELETE /api/bookings/:bookingId. Booking owner or
// admin only.
//
// @Summary      Cancel a booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        bookingId  path      string  true  "Booking id"
// @Success      200        {object}  bookingResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Failure      409        {object}  errorResponse
// @Router       /api/bookings/{bookingId} [delete]
func (h *EventHandler) CancelBooking(c echo.Context) error {
	booking, err := h.service.CancelBooking(c.Request().Context(), c.Param("bookingId"))
	if err != nil {
		return err
	}
	metrics.BookingCancellationsTotal.Inc()
	return c.JSON(http.StatusOK, bookingResponse{Booking: booking})
}
